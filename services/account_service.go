package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crowdfund/logger"
	"crowdfund/mail"
	"crowdfund/metrics"
	"crowdfund/models"
	"crowdfund/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AccountService struct {
	db            *gorm.DB
	store         storage.Store
	mailer        mail.Sender
	baseURL       string
	activationTTL time.Duration
	now           func() time.Time
}

func NewAccountService(db *gorm.DB, store storage.Store, mailer mail.Sender, baseURL string, activationTTL time.Duration) *AccountService {
	return &AccountService{
		db:            db,
		store:         store,
		mailer:        mailer,
		baseURL:       baseURL,
		activationTTL: activationTTL,
		now:           time.Now,
	}
}

type RegisterInput struct {
	Username        string          `form:"username" validate:"required,min=3,max=150"`
	FirstName       string          `form:"first_name" validate:"required,max=150"`
	LastName        string          `form:"last_name" validate:"required,max=150"`
	Email           string          `form:"email" validate:"required,email,max=254"`
	PhoneNumber     string          `form:"phone_number" validate:"required,max=15"`
	Birthdate       time.Time       `form:"birthdate" validate:"required"`
	Gender          models.Gender   `form:"gender" validate:"required,oneof=Male Female"`
	Country         string          `form:"country" validate:"required,max=50"`
	Bio             string          `form:"bio"`
	Password        string          `form:"password1" validate:"required,min=8"`
	ConfirmPassword string          `form:"password2" validate:"required,eqfield=Password"`
	ProfilePicture  *storage.Upload `form:"profile_picture" validate:"-"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Country = strings.TrimSpace(in.Country)
	in.Bio = strings.TrimSpace(in.Bio)
}

// checkUnique rejects identifiers already held by a user other than exceptID.
func checkUnique(db *gorm.DB, exceptID uint, columns map[string]string) error {
	var messages []string
	for _, column := range []string{"username", "email", "phone_number"} {
		value, ok := columns[column]
		if !ok || value == "" {
			continue
		}
		var count int64
		err := db.Model(&models.User{}).
			Where(column+" = ? AND id <> ?", value, exceptID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check %s: %w", column, err)
		}
		if count > 0 {
			messages = append(messages, strings.ReplaceAll(column, "_", " ")+" is already registered")
		}
	}
	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}

// Register creates an inactive account and mails its activation link. If the
// mail cannot be sent the account is removed again and ErrActivationEmail is
// returned.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	err := checkUnique(db, 0, map[string]string{
		"username":     in.Username,
		"email":        in.Email,
		"phone_number": in.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var pictureKey string
	if in.ProfilePicture != nil {
		pictureKey, err = s.saveImage(ctx, in.ProfilePicture)
		if err != nil {
			return nil, err
		}
	}

	phone := in.PhoneNumber
	birthdate := in.Birthdate
	user := &models.User{
		Username:       in.Username,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		PhoneNumber:    &phone,
		Birthdate:      &birthdate,
		Gender:         in.Gender,
		Country:        in.Country,
		ProfilePicture: pictureKey,
		Bio:            in.Bio,
		PasswordHash:   string(hash),
	}

	var token *models.ActivationToken
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		token = models.NewActivationToken(user.ID)
		return tx.Create(token).Error
	})
	if err != nil {
		if pictureKey != "" {
			s.removeObject(ctx, pictureKey)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("username, email or phone number is already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendActivation(ctx, user, token); err != nil {
		logger.Error("activation email failed, removing account", "user_id", user.ID, "error", err)
		s.discard(ctx, user, token)
		metrics.Registrations.WithLabelValues("mail_failed").Inc()
		return nil, ErrActivationEmail
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *AccountService) sendActivation(ctx context.Context, user *models.User, token *models.ActivationToken) error {
	link := mail.ActivationLink(s.baseURL, token)
	msg, err := mail.ActivationMessage(user, link, fmt.Sprintf("%.0f hours", s.activationTTL.Hours()))
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// discard undoes a registration whose activation mail was never delivered.
func (s *AccountService) discard(ctx context.Context, user *models.User, token *models.ActivationToken) {
	db := s.db.WithContext(context.WithoutCancel(ctx))
	if err := db.Delete(token).Error; err != nil {
		logger.Error("failed to delete activation token", "user_id", user.ID, "error", err)
	}
	if err := db.Delete(user).Error; err != nil {
		logger.Error("failed to delete user", "user_id", user.ID, "error", err)
	}
	if user.ProfilePicture != "" {
		s.removeObject(ctx, user.ProfilePicture)
	}
}

// Activate consumes an activation token. Expired tokens, and tokens for
// accounts that are already active, are deleted without activating anything.
func (s *AccountService) Activate(ctx context.Context, rawToken string) (*models.User, error) {
	parsed, err := uuid.Parse(rawToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	db := s.db.WithContext(ctx)
	var token models.ActivationToken
	if err := db.Preload("User").Where("token = ?", parsed).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if token.IsExpired(s.now(), s.activationTTL) {
		if err := db.Delete(&token).Error; err != nil {
			return nil, err
		}
		return nil, ErrTokenExpired
	}
	if token.User.IsActive {
		if err := db.Delete(&token).Error; err != nil {
			return nil, err
		}
		return nil, ErrInvalidToken
	}

	user := token.User
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("is_active", true).Error; err != nil {
			return err
		}
		return tx.Delete(&token).Error
	})
	if err != nil {
		return nil, fmt.Errorf("activate user %d: %w", user.ID, err)
	}

	user.IsActive = true
	logger.Info("user activated", "user_id", user.ID)
	return &user, nil
}

// Authenticate checks credentials. Inactive accounts are refused only after
// the password matches, so the reminder never confirms a guessed username.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	return &user, nil
}

type ProfileInput struct {
	FirstName      string          `form:"first_name" validate:"required,max=150"`
	LastName       string          `form:"last_name" validate:"required,max=150"`
	PhoneNumber    string          `form:"phone_number" validate:"max=15"`
	Birthdate      *time.Time      `form:"birthdate"`
	Gender         models.Gender   `form:"gender" validate:"omitempty,oneof=Male Female"`
	Country        string          `form:"country" validate:"max=50"`
	Bio            string          `form:"bio"`
	ProfilePicture *storage.Upload `form:"profile_picture" validate:"-"`
}

func (s *AccountService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Country = strings.TrimSpace(in.Country)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := checkUnique(db, user.ID, map[string]string{"phone_number": in.PhoneNumber}); err != nil {
		return nil, err
	}

	var phone *string
	if in.PhoneNumber != "" {
		phone = &in.PhoneNumber
	}
	updates := map[string]interface{}{
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"phone_number": phone,
		"birthdate":    in.Birthdate,
		"gender":       in.Gender,
		"country":      in.Country,
		"bio":          in.Bio,
	}

	oldPicture := user.ProfilePicture
	var newPicture string
	if in.ProfilePicture != nil {
		key, err := s.saveImage(ctx, in.ProfilePicture)
		if err != nil {
			return nil, err
		}
		newPicture = key
		updates["profile_picture"] = key
	}

	if err := db.Model(&models.User{ID: user.ID}).Updates(updates).Error; err != nil {
		if newPicture != "" {
			s.removeObject(ctx, newPicture)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("phone number is already registered")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if newPicture != "" && oldPicture != "" {
		s.removeObject(ctx, oldPicture)
	}

	var updated models.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		return nil, notFound(err)
	}
	return &updated, nil
}

// DeleteAccount removes the user together with everything they own, then
// drops their stored images.
func (s *AccountService) DeleteAccount(ctx context.Context, user *models.User) error {
	db := s.db.WithContext(ctx)

	var keys []string
	err := db.Model(&models.ProjectImage{}).
		Joins("JOIN projects ON projects.id = project_images.project_id").
		Where("projects.owner_id = ?", user.ID).
		Pluck("project_images.object_key", &keys).Error
	if err != nil {
		return fmt.Errorf("list images of user %d: %w", user.ID, err)
	}
	if user.ProfilePicture != "" {
		keys = append(keys, user.ProfilePicture)
	}

	if err := db.Delete(&models.User{}, user.ID).Error; err != nil {
		return fmt.Errorf("delete user %d: %w", user.ID, err)
	}
	for _, key := range keys {
		s.removeObject(ctx, key)
	}

	logger.Info("account deleted", "user_id", user.ID)
	return nil
}

// Donations lists the user's donations, newest first, with their projects.
func (s *AccountService) Donations(ctx context.Context, userID uint) ([]models.Donation, error) {
	var donations []models.Donation
	err := s.db.WithContext(ctx).
		Preload("Project").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&donations).Error
	if err != nil {
		return nil, fmt.Errorf("load donations for user %d: %w", userID, err)
	}
	return donations, nil
}

func (s *AccountService) saveImage(ctx context.Context, upload *storage.Upload) (string, error) {
	key, err := storage.Save(ctx, s.store, "profiles", upload)
	if err != nil {
		if isImageRejected(err) {
			return "", invalid("profile picture: " + err.Error())
		}
		return "", err
	}
	return key, nil
}

func (s *AccountService) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("failed to remove stored image", "key", key, "error", err)
	}
}
