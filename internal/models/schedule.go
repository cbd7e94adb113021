// Package models contains data structures for the application's domain records.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collection names as they exist on the remote platform.
const (
	CollectionSchedules    = "schedules"
	CollectionComments     = "schedule_comments"
	CollectionCommentLikes = "schedule_comment_likes"
	CollectionReactions    = "schedule_reactions"
	CollectionMessages     = "messages"
	CollectionProfiles     = "profiles"
)

// Schedule represents a posted game schedule. Schedules are immutable once
// created; there is no edit path in the UI.
type Schedule struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	GameName    string    `gorm:"not null" json:"game_name"`
	Time        string    `gorm:"not null" json:"time"`
	Date        string    `gorm:"not null" json:"date"`
	Place       string    `gorm:"not null" json:"place"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the platform persists a new schedule.
func (s *Schedule) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
