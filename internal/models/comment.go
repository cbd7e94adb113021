package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a user comment on a schedule. Comments are append-only from the
// UI; they are never edited or deleted.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ScheduleID string    `gorm:"size:36;not null;index" json:"schedule_id"`
	UserID     string    `gorm:"size:36;not null;index" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the platform persists a new comment.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CommentLike marks a user's like on a comment. At most one like per
// (user, comment) pair is intended, but only client logic enforces it.
type CommentLike struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CommentID string    `gorm:"size:36;not null;index" json:"comment_id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the platform persists a new like.
func (l *CommentLike) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
