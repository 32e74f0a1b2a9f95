package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Session SessionConfig
	Mail    MailConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Port      string
	Env       string
	PublicURL string
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	ResetExpiry   time.Duration
}

// SessionConfig tunes profile resolution for authenticated requests.
type SessionConfig struct {
	FreshTTL        time.Duration
	StaleTTL        time.Duration
	FetchAttempts   int
	FetchTimeout    time.Duration
	Ceiling         time.Duration
	AllowStaleRoles bool
}

type MailConfig struct {
	RelayURL           string
	ContactNotifyEmail string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// LoadConfig reads an optional .env file into the environment and resolves every
// key through viper, falling back to defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		App: AppConfig{
			Port:      v.GetString("APP_PORT"),
			Env:       v.GetString("APP_ENV"),
			PublicURL: strings.TrimRight(v.GetString("APP_PUBLIC_URL"), "/"),
		},
		DB: DBConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  v.GetDuration("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: v.GetDuration("JWT_REFRESH_EXPIRY"),
			ResetExpiry:   v.GetDuration("JWT_RESET_EXPIRY"),
		},
		Session: SessionConfig{
			FreshTTL:        v.GetDuration("SESSION_FRESH_TTL"),
			StaleTTL:        v.GetDuration("SESSION_STALE_TTL"),
			FetchAttempts:   v.GetInt("SESSION_FETCH_ATTEMPTS"),
			FetchTimeout:    v.GetDuration("SESSION_FETCH_TIMEOUT"),
			Ceiling:         v.GetDuration("SESSION_CEILING"),
			AllowStaleRoles: v.GetBool("SESSION_ALLOW_STALE_ROLES"),
		},
		Mail: MailConfig{
			RelayURL:           strings.TrimRight(v.GetString("MAIL_RELAY_URL"), "/"),
			ContactNotifyEmail: v.GetString("CONTACT_NOTIFY_EMAIL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PUBLIC_URL", "http://localhost:3000")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "clinic")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ACCESS_EXPIRY", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_EXPIRY", 7*24*time.Hour)
	v.SetDefault("JWT_RESET_EXPIRY", 30*time.Minute)

	v.SetDefault("SESSION_FRESH_TTL", 5*time.Minute)
	v.SetDefault("SESSION_STALE_TTL", 24*time.Hour)
	v.SetDefault("SESSION_FETCH_ATTEMPTS", 3)
	v.SetDefault("SESSION_FETCH_TIMEOUT", 3*time.Second)
	v.SetDefault("SESSION_CEILING", 10*time.Second)
	v.SetDefault("SESSION_ALLOW_STALE_ROLES", false)

	v.SetDefault("MAIL_RELAY_URL", "http://localhost:3001")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
