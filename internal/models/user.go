package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the platform auth identity. Usernames are mapped to a synthetic
// email-like identifier internally; the Email column stores that mapping.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the platform persists a new user.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
