package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a chat room message. Author display name and avatar are
// denormalized at write time so reads never join against profiles; a later
// profile rename does not retroactively update history.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the platform persists a new message.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
