package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort string
	AppEnv  string

	LogLevel  string
	LogFormat string

	DBDriver    string
	DatabaseDSN string

	JWTSecret string

	AdminEmail   string
	AdminOwnerID string

	RabbitMQURL string
	RedisURL    string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryBaseURL   string
	UploadTimeout       time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "smartbite.db")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("ADMIN_EMAIL", "adminsmartbite@gmail.com")
	v.SetDefault("ADMIN_OWNER_ID", "admin")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("CLOUDINARY_BASE_URL", "https://api.cloudinary.com")
	v.SetDefault("UPLOAD_TIMEOUT", "30s")
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:             v.GetString("APP_PORT"),
		AppEnv:              v.GetString("APP_ENV"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		DBDriver:            strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		AdminEmail:          v.GetString("ADMIN_EMAIL"),
		AdminOwnerID:        v.GetString("ADMIN_OWNER_ID"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
		CloudinaryBaseURL:   v.GetString("CLOUDINARY_BASE_URL"),
		UploadTimeout:       v.GetDuration("UPLOAD_TIMEOUT"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.AdminOwnerID == "" {
		return Config{}, fmt.Errorf("ADMIN_OWNER_ID must not be empty")
	}
	return cfg, nil
}
