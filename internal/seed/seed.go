package seed

import (
	"fmt"
	"log"

	"matchday/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers     int
	NumSchedules int
	NumMessages  int
	ShouldClean  bool
}

// Demo populates the database with a plausible slice of activity: accounts,
// schedules, comment threads, likes, reactions and chat history.
func Demo(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 8
	}
	if opts.NumSchedules <= 0 {
		opts.NumSchedules = 12
	}
	if opts.NumMessages <= 0 {
		opts.NumMessages = 40
	}

	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
	}

	f := NewFactory(db)

	users := make([]*models.User, 0, opts.NumUsers)
	profiles := make([]*models.Profile, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, profile, err := f.CreateAccount()
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		users = append(users, user)
		profiles = append(profiles, profile)
	}

	for i := 0; i < opts.NumSchedules; i++ {
		owner := users[f.rnd.Intn(len(users))]
		schedule, err := f.CreateSchedule(owner)
		if err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}

		comments := make([]*models.Comment, 0)
		for j := 0; j < f.rnd.Intn(5); j++ {
			author := users[f.rnd.Intn(len(users))]
			comment, err := f.CreateComment(author, schedule)
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			comments = append(comments, comment)
		}

		for _, comment := range comments {
			for j := 0; j < f.rnd.Intn(3); j++ {
				if _, err := f.CreateCommentLike(users[f.rnd.Intn(len(users))], comment); err != nil {
					return fmt.Errorf("create like: %w", err)
				}
			}
		}

		// At most one reaction per (user, schedule) pair.
		for j, user := range users {
			if f.rnd.Intn(3) != 0 {
				continue
			}
			if _, err := f.CreateReaction(user, schedule); err != nil {
				return fmt.Errorf("create reaction for user %d: %w", j, err)
			}
		}
	}

	for i := 0; i < opts.NumMessages; i++ {
		idx := f.rnd.Intn(len(users))
		if _, err := f.CreateMessage(users[idx], profiles[idx]); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
	}

	log.Printf("Seeded %d users, %d schedules, %d messages", opts.NumUsers, opts.NumSchedules, opts.NumMessages)
	return nil
}

// Clean removes all seeded data in dependency order.
func Clean(db *gorm.DB) error {
	for _, model := range []any{
		&models.CommentLike{},
		&models.Reaction{},
		&models.Comment{},
		&models.Message{},
		&models.Schedule{},
		&models.Profile{},
		&models.User{},
	} {
		if err := db.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
