// Package bootstrap wires database, cache and development-only seeding into
// a runnable platform runtime.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"matchday/internal/cache"
	"matchday/internal/config"
	"matchday/internal/database"
	"matchday/internal/models"
	"matchday/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	Migrate bool
}

// InitRuntime connects to the database and Redis and optionally runs
// migrations. Redis being unreachable is not fatal; the platform degrades to
// in-process change delivery.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.Migrate {
		if err := database.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return db, r, nil
}

// ensureDevRootAdmin creates or repairs the development root admin account.
// Without it a fresh database has no admin able to create other accounts.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := validation.NormalizeUsername(cfg.DevRootUsername)
	if username == "" {
		username = "matchday_root"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	email := fmt.Sprintf("%s@matchday.local", username)

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, "email = ?", email).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Email:    email,
				Password: string(hashedPassword),
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
			profile := models.Profile{
				UserID:      root.ID,
				Username:    username,
				DisplayName: username,
				Role:        models.RoleAdmin,
			}
			return tx.Create(&profile).Error
		case findErr != nil:
			return findErr
		default:
			if err := tx.Model(&models.User{}).Where("id = ?", root.ID).
				Update("password", string(hashedPassword)).Error; err != nil {
				return err
			}
			return tx.Model(&models.Profile{}).Where("user_id = ?", root.ID).
				Update("role", models.RoleAdmin).Error
		}
	}); err != nil {
		return err
	}

	log.Printf("Development root admin %q is ready", username)
	return nil
}
