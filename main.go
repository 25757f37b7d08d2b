package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crowdfund/config"
	"crowdfund/database"
	"crowdfund/handlers"
	"crowdfund/logger"
	"crowdfund/mail"
	"crowdfund/middleware"
	"crowdfund/models"
	"crowdfund/services"
	"crowdfund/storage"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crowdfund",
	Short: "Crowdfunding web application",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var seedCategoriesCmd = &cobra.Command{
	Use:   "seed-categories",
	Short: "Create the default project categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := setup()
		if err := database.Init(cfg.DatabaseURL, cfg.IsDevelopment()); err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		created, err := database.SeedCategories(database.GetDB(), models.DefaultCategories)
		if err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully created %d new categories\n", created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, seedCategoriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and the process-wide logger and JWT secret.
func setup() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	middleware.SetJWTSecret(cfg.JWTSecret)
	return cfg
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.MinioEndpoint == "" {
		logger.Warn("MINIO_ENDPOINT not set, keeping uploaded images in memory")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewMinioStore(storage.Config{
		Endpoint:        cfg.MinioEndpoint,
		AccessKeyID:     cfg.MinioAccessKey,
		SecretAccessKey: cfg.MinioSecretKey,
		Bucket:          cfg.MinioBucket,
		UseSSL:          cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := setup()

	if err := database.Init(cfg.DatabaseURL, cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	db := database.GetDB()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize image store: %w", err)
	}

	mailer, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		return fmt.Errorf("initialize mailer: %w", err)
	}

	templates, err := handlers.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		return err
	}

	projects := services.NewProjectService(db, store)
	accounts := services.NewAccountService(db, store, mailer, cfg.BaseURL, cfg.ActivationExpiration)

	router := handlers.NewRouter(ctx, handlers.RouterDeps{
		Config:    cfg,
		DB:        db,
		Store:     store,
		Templates: templates,
		Projects:  projects,
		Accounts:  accounts,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "environment", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
