package mailrelay

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string
	SMTP SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of mandatory, opportunistic, ssl or none.
	TLS string
}

// LoadConfig reads the relay settings from the environment and an optional .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("RELAY_PORT", "3001")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TLS", "opportunistic")

	cfg := &Config{
		Port: v.GetString("RELAY_PORT"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			TLS:      strings.ToLower(strings.TrimSpace(v.GetString("SMTP_TLS"))),
		},
	}

	if cfg.SMTP.From == "" {
		return nil, errors.New("SMTP_FROM is required")
	}
	switch cfg.SMTP.TLS {
	case "mandatory", "opportunistic", "ssl", "none":
	default:
		return nil, errors.New("SMTP_TLS must be one of mandatory, opportunistic, ssl or none")
	}

	return cfg, nil
}
