package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dietvite/backend/internal/models"
)

func TestRunMigrations(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrations?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, RunMigrations(db))

	user := models.User{Username: "tester", Email: "t@example.com", PasswordHash: "hash"}
	require.NoError(t, db.Create(&user).Error)
	assert.NotEqual(t, uuid.Nil, user.ID)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	challenge := models.NewChallenge(user.ID, start, 3, []string{"Protein (g)"})
	challenge.Nutrients["Protein (g)"][1] = 42.5
	challenge.Attendance[1] = true
	challenge.MealCounts[1] = 2
	require.NoError(t, db.Create(challenge).Error)

	var loaded models.Challenge
	require.NoError(t, db.First(&loaded, "user_id = ?", user.ID).Error)
	assert.Equal(t, []float64{0, 42.5, 0}, loaded.Nutrients["Protein (g)"])
	assert.Equal(t, []bool{false, true, false}, []bool(loaded.Attendance))
	assert.Equal(t, []int{0, 2, 0}, []int(loaded.MealCounts))
	assert.Equal(t, 3, loaded.TimeFrame)

	assert.NoError(t, HealthCheck(context.Background(), db))
}
