package seed

import (
	"testing"

	"matchday/internal/database"
	"matchday/internal/models"
	"matchday/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestDemoSeedsRequestedCounts(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Demo(db, Options{NumUsers: 4, NumSchedules: 6, NumMessages: 10}))

	assert.EqualValues(t, 4, count(t, db, &models.User{}))
	assert.EqualValues(t, 4, count(t, db, &models.Profile{}))
	assert.EqualValues(t, 6, count(t, db, &models.Schedule{}))
	assert.EqualValues(t, 10, count(t, db, &models.Message{}))
}

func TestDemoProducesValidAccounts(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Demo(db, Options{NumUsers: 5, NumSchedules: 1, NumMessages: 1}))

	var profiles []models.Profile
	require.NoError(t, db.Find(&profiles).Error)
	for _, p := range profiles {
		assert.NoError(t, validation.ValidateUsername(p.Username), p.Username)
		assert.NotEmpty(t, p.DisplayName)
	}

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.Contains(t, u.Email, "@matchday.local")
	}
}

func TestDemoReactionsRespectSupportedEmojis(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Demo(db, Options{NumUsers: 6, NumSchedules: 8, NumMessages: 1}))

	var reactions []models.Reaction
	require.NoError(t, db.Find(&reactions).Error)
	for _, r := range reactions {
		assert.NoError(t, validation.ValidateEmoji(r.Emoji))
	}

	// One reaction per user per schedule at most.
	pairs := make(map[string]int)
	for _, r := range reactions {
		pairs[r.ScheduleID+"/"+r.UserID]++
	}
	for pair, n := range pairs {
		assert.Equal(t, 1, n, pair)
	}
}

func TestCleanRemovesEverything(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Demo(db, Options{NumUsers: 3, NumSchedules: 3, NumMessages: 5}))
	require.NoError(t, Clean(db))

	for _, model := range []any{
		&models.User{}, &models.Profile{}, &models.Schedule{},
		&models.Comment{}, &models.CommentLike{}, &models.Reaction{}, &models.Message{},
	} {
		assert.Zero(t, count(t, db, model))
	}
}

func TestDemoCleanOptionResets(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Demo(db, Options{NumUsers: 3, NumSchedules: 2, NumMessages: 2}))
	require.NoError(t, Demo(db, Options{NumUsers: 2, NumSchedules: 1, NumMessages: 1, ShouldClean: true}))

	assert.EqualValues(t, 2, count(t, db, &models.User{}))
	assert.EqualValues(t, 1, count(t, db, &models.Schedule{}))
}
