// Package seed provides helpers to create demo and test data for the
// platform database. Development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"matchday/internal/models"
	"matchday/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rnd *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:  db,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// backdated returns a timestamp spread over the last maxDays days so seeded
// data orders realistically.
func (f *Factory) backdated(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 30
	}
	return time.Now().
		Add(-time.Duration(f.rnd.Intn(maxDays*24)) * time.Hour).
		Add(-time.Duration(f.rnd.Intn(60)) * time.Minute)
}

// CreateAccount persists a user with its profile. The password for every
// seeded account is "password1".
func (f *Factory) CreateAccount(overrides ...func(*models.User, *models.Profile)) (*models.User, *models.Profile, error) {
	username := validation.NormalizeUsername(
		fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(10, 99)))
	username = strings.ReplaceAll(username, ".", "_")
	if len(username) > 20 {
		username = username[:20]
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:    fmt.Sprintf("%s@matchday.local", username),
		Password: string(hashed),
	}
	profile := &models.Profile{
		Username:    username,
		DisplayName: gofakeit.Name(),
		Role:        models.RoleUser,
	}
	for _, override := range overrides {
		override(user, profile)
	}

	err = f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

// CreateSchedule persists a sample schedule owned by the given user.
func (f *Factory) CreateSchedule(user *models.User, overrides ...func(*models.Schedule)) (*models.Schedule, error) {
	kickoff := time.Now().Add(time.Duration(f.rnd.Intn(14*24)) * time.Hour)
	schedule := &models.Schedule{
		Title:       fmt.Sprintf("%s vs %s", gofakeit.City(), gofakeit.City()),
		GameName:    gofakeit.RandomString([]string{"Football", "Basketball", "Futsal", "Baseball"}),
		Time:        kickoff.Format("15:04"),
		Date:        kickoff.Format("2006-01-02"),
		Place:       fmt.Sprintf("%s Arena", gofakeit.LastName()),
		Description: gofakeit.Sentence(8),
		UserID:      user.ID,
		CreatedAt:   f.backdated(30),
	}
	for _, override := range overrides {
		override(schedule)
	}
	return schedule, f.db.Create(schedule).Error
}

// CreateComment persists a comment on the schedule by the given user.
func (f *Factory) CreateComment(user *models.User, schedule *models.Schedule) (*models.Comment, error) {
	comment := &models.Comment{
		ScheduleID: schedule.ID,
		UserID:     user.ID,
		Content:    gofakeit.Sentence(f.rnd.Intn(10) + 3),
		CreatedAt:  f.backdated(7),
	}
	return comment, f.db.Create(comment).Error
}

// CreateCommentLike persists a like on the comment by the given user.
func (f *Factory) CreateCommentLike(user *models.User, comment *models.Comment) (*models.CommentLike, error) {
	like := &models.CommentLike{
		CommentID: comment.ID,
		UserID:    user.ID,
		CreatedAt: f.backdated(7),
	}
	return like, f.db.Create(like).Error
}

// CreateReaction persists an emoji reaction on the schedule by the given user.
func (f *Factory) CreateReaction(user *models.User, schedule *models.Schedule) (*models.Reaction, error) {
	reaction := &models.Reaction{
		ScheduleID: schedule.ID,
		UserID:     user.ID,
		Emoji:      validation.ReactionEmojis[f.rnd.Intn(len(validation.ReactionEmojis))],
		CreatedAt:  f.backdated(7),
	}
	return reaction, f.db.Create(reaction).Error
}

// CreateMessage persists a chat message with the author's identity
// denormalized in.
func (f *Factory) CreateMessage(user *models.User, profile *models.Profile) (*models.Message, error) {
	message := &models.Message{
		Content:     gofakeit.Sentence(f.rnd.Intn(12) + 2),
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		UserID:      user.ID,
		CreatedAt:   f.backdated(3),
	}
	return message, f.db.Create(message).Error
}
