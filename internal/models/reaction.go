package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reaction is an emoji reaction on a schedule. At most one reaction per
// (user, schedule) pair is intended; the client deletes any existing row
// before inserting a new one, the platform does not guarantee it.
type Reaction struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ScheduleID string    `gorm:"size:36;not null;index" json:"schedule_id"`
	UserID     string    `gorm:"size:36;not null;index" json:"user_id"`
	Emoji      string    `gorm:"not null" json:"emoji"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the platform persists a new reaction.
func (r *Reaction) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
