package database

import "matchday/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Schedule{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Reaction{},
		&models.Message{},
	}
}
