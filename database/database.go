package database

import (
	"errors"

	"crowdfund/logger"
	"crowdfund/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(dsn string, verbose bool) error {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	return nil
}

// Migrate creates or updates every table the application uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ActivationToken{},
		&models.Category{},
		&models.Project{},
		&models.ProjectImage{},
		&models.Donation{},
		&models.Comment{},
		&models.Rating{},
		&models.ProjectReport{},
		&models.CommentReport{},
	)
}

// SeedCategories inserts any of names not already present and returns how many
// were created.
func SeedCategories(db *gorm.DB, names []string) (int, error) {
	created := 0
	for _, name := range names {
		var category models.Category
		err := db.Where("name = ?", name).First(&category).Error
		if err == nil {
			logger.Info("category already exists", "name", name)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		category = models.Category{Name: name}
		if err := db.Create(&category).Error; err != nil {
			return created, err
		}
		created++
		logger.Info("created category", "name", name)
	}
	return created, nil
}

func GetDB() *gorm.DB {
	return DB
}
