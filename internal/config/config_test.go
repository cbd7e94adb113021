package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDevConfig() *Config {
	return &Config{
		Port:      "8460",
		JWTSecret: "dev-secret",
		DBDriver:  "sqlite",
		Env:       "development",
	}
}

func validProdConfig() *Config {
	return &Config{
		Port:       "8460",
		JWTSecret:  strings.Repeat("s", 32),
		DBDriver:   "postgres",
		DBPassword: "a-real-password",
		DBSSLMode:  "require",
		Env:        "production",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		prod    bool
		wantErr string
	}{
		{"dev defaults pass", func(*Config) {}, false, ""},
		{"missing port", func(c *Config) { c.Port = "" }, false, "PORT is required"},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, false, "JWT_SECRET is required"},
		{"unknown db driver", func(c *Config) { c.DBDriver = "mysql" }, false, "unsupported DB_DRIVER"},
		{"prod passes", func(*Config) {}, true, ""},
		{"prod default jwt secret", func(c *Config) {
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true, "must be changed from the default"},
		{"prod short jwt secret", func(c *Config) { c.JWTSecret = "short" }, true, "at least 32 characters"},
		{"prod sqlite", func(c *Config) { c.DBDriver = "sqlite" }, true, "must be postgres"},
		{"prod weak db password", func(c *Config) { c.DBPassword = "password" }, true, "strong DB_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDevConfig()
			if tt.prod {
				cfg = validProdConfig()
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
