package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile holds the public identity attached to an auth user. It is created
// alongside account signup and mutated only by avatar upload.
type Profile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;uniqueIndex" json:"user_id"`
	Username    string    `gorm:"not null;uniqueIndex" json:"username"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `gorm:"not null;default:user" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// BeforeCreate assigns a UUID when the platform persists a new profile.
func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
