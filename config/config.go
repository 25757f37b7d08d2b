package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration time.Duration
	ServerPort    string
	BaseURL       string
	TemplatesDir  string

	ActivationExpiration time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LogLevel  string
	LogFormat string

	// Requests per minute allowed per client IP on the search suggestion endpoint.
	SuggestRatePerMinute int
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Only
	// enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Environment:          getEnv("ENVIRONMENT", "development"),
		DatabaseURL:          getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/crowdfund"),
		JWTSecret:            getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:        24 * time.Hour,
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		BaseURL:              getEnv("BASE_URL", "http://localhost:8080"),
		TemplatesDir:         getEnv("TEMPLATES_DIR", "templates"),
		ActivationExpiration: time.Duration(getEnvAsInt("ACTIVATION_TTL_HOURS", 24)) * time.Hour,
		SMTPHost:             getEnv("SMTP_HOST", "localhost"),
		SMTPPort:             getEnv("SMTP_PORT", "1025"),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		MailFrom:             getEnv("MAIL_FROM", "no-reply@crowdfund.local"),
		MinioEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:          getEnv("MINIO_BUCKET", "crowdfund-media"),
		MinioUseSSL:          getEnv("MINIO_USE_SSL", "false") == "true",
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		SuggestRatePerMinute: getEnvAsInt("SUGGEST_RATE_PER_MIN", 60),
		TrustProxy:           getEnv("TRUST_PROXY", "false") == "true",
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
