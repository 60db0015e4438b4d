package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/diet"
	"github.com/dietvite/backend/internal/models"
	"github.com/dietvite/backend/internal/service"
	"github.com/dietvite/backend/internal/testhelpers"
	"github.com/dietvite/backend/internal/testhelpers/mocks"
)

var challengeStart = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

type fakeArchiver struct {
	archived []*models.Challenge
	err      error
}

func (a *fakeArchiver) Archive(ctx context.Context, challenge *models.Challenge) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, challenge)
	return nil
}

type fakeCache struct {
	entries map[string]*diet.ScoreResult
	hits    int
}

func (c *fakeCache) Get(ctx context.Context, key string) (*diet.ScoreResult, bool, error) {
	result, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return result, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, result *diet.ScoreResult) error {
	c.entries[key] = result
	return nil
}

type challengeFixture struct {
	db     *gorm.DB
	gen    *mocks.MockGenerator
	clock  *clock
	svc    *service.ChallengeService
	userID uuid.UUID
}

func setupChallengeTest(t *testing.T) *challengeFixture {
	db := testhelpers.SetupTestDatabase(t)
	gen := new(mocks.MockGenerator)
	clk := &clock{now: challengeStart}

	svc := service.NewChallengeService(db, service.NewAgents(gen, testDietConfig()), testDietConfig()).
		WithClock(clk.Now)

	return &challengeFixture{db: db, gen: gen, clock: clk, svc: svc, userID: uuid.New()}
}

func (f *challengeFixture) expectFood(query, scan string) {
	f.gen.On("Generate", mock.Anything, config.AgentClassifier, userMessageContains("query="+query)).
		Return(`{"category": "food"}`, nil).Once()
	f.gen.On("Generate", mock.Anything, config.AgentNutriScanner, userMessageContains("query="+query)).
		Return(scan, nil).Once()
}

func (f *challengeFixture) reload(t *testing.T) *models.Challenge {
	challenge, err := f.svc.Get(context.Background(), f.userID)
	require.NoError(t, err)
	return challenge
}

func TestChallengeService_Reset(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()

	challenge, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, challenge.TimeFrame)
	assert.True(t, challenge.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, challenge.Attendance, 7)
	assert.Len(t, challenge.MealCounts, 7)
	assert.Equal(t, make([]float64, 7), []float64(challenge.Nutrients[protein]))
	assert.Equal(t, make([]float64, 7), []float64(challenge.Nutrients[calories]))

	stored := f.reload(t)
	assert.Equal(t, challenge.ID, stored.ID)
	assert.Equal(t, 0, stored.Version)
}

func TestChallengeService_ResetInvalidTimeFrame(t *testing.T) {
	f := setupChallengeTest(t)

	for _, days := range []int{0, -1, service.MaxTimeFrame + 1} {
		_, err := f.svc.Reset(context.Background(), f.userID, days)
		assert.ErrorIs(t, err, diet.ErrInvalidInput, "time frame %d", days)
	}

	_, err := f.svc.Get(context.Background(), f.userID)
	assert.ErrorIs(t, err, service.ErrNoChallenge)
}

func TestChallengeService_ResetArchivesPrevious(t *testing.T) {
	f := setupChallengeTest(t)
	archiver := &fakeArchiver{}
	f.svc.WithArchiver(archiver)
	ctx := context.Background()

	first, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)
	assert.Empty(t, archiver.archived)

	f.clock.advanceDays(3)
	second, err := f.svc.Reset(ctx, f.userID, 30)
	require.NoError(t, err)

	require.Len(t, archiver.archived, 1)
	assert.Equal(t, first.ID, archiver.archived[0].ID)
	assert.NotEqual(t, first.ID, second.ID)

	stored := f.reload(t)
	assert.Equal(t, second.ID, stored.ID)
	assert.Equal(t, 30, stored.TimeFrame)

	var count int64
	require.NoError(t, f.db.Model(&models.Challenge{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestChallengeService_ResetKeepsChallengeWhenArchiveFails(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()

	first, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.svc.WithArchiver(&fakeArchiver{err: errors.New("bucket unavailable")})
	_, err = f.svc.Reset(ctx, f.userID, 30)
	assert.Error(t, err)

	assert.Equal(t, first.ID, f.reload(t).ID)
}

func TestChallengeService_LogQueryGeneral(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.gen.On("Generate", mock.Anything, config.AgentClassifier, mock.Anything).Return(`{"category": "general"}`, nil)
	f.gen.On("Generate", mock.Anything, config.AgentKnowledgeBot, userMessageContains("query=is fat bad?")).
		Return("not all fats", nil)

	result, err := f.svc.LogQuery(ctx, f.userID, "is fat bad?")
	require.NoError(t, err)

	assert.Equal(t, service.CategoryGeneral, result.Category)
	assert.Equal(t, "not all fats", result.Answer)
	assert.Empty(t, result.Nutrients)

	stored := f.reload(t)
	assert.Equal(t, 0, stored.Version)
	assert.False(t, stored.Attendance[0])
	f.gen.AssertExpectations(t)
}

func TestChallengeService_LogQueryGeneralWithoutChallenge(t *testing.T) {
	f := setupChallengeTest(t)

	f.gen.On("Generate", mock.Anything, config.AgentClassifier, mock.Anything).Return(`{"category": "general"}`, nil)
	f.gen.On("Generate", mock.Anything, config.AgentKnowledgeBot, mock.Anything).Return("answer", nil)

	result, err := f.svc.LogQuery(context.Background(), f.userID, "what is fiber?")
	require.NoError(t, err)
	assert.Equal(t, "answer", result.Answer)
}

func TestChallengeService_LogQueryFood(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.clock.advanceDays(1)
	f.expectFood("two eggs", `{"Protein (g)": 12, "Calories (kcal)": 140, "Unobtainium (mg)": 3}`)
	result, err := f.svc.LogQuery(ctx, f.userID, "two eggs")
	require.NoError(t, err)

	assert.Equal(t, service.CategoryFood, result.Category)
	assert.Equal(t, "02-01-2024", result.Date)
	assert.Equal(t, map[string]float64{protein: 12, calories: 140}, result.Nutrients)

	f.expectFood("toast", `{"Protein (g)": 4, "Calories (kcal)": 90}`)
	_, err = f.svc.LogQuery(ctx, f.userID, "toast")
	require.NoError(t, err)

	stored := f.reload(t)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, []float64{0, 16, 0, 0, 0, 0, 0}, stored.Nutrients[protein])
	assert.Equal(t, []float64{0, 230, 0, 0, 0, 0, 0}, stored.Nutrients[calories])
	assert.Equal(t, []bool{false, true, false, false, false, false, false}, []bool(stored.Attendance))
	assert.Equal(t, []int{0, 2, 0, 0, 0, 0, 0}, []int(stored.MealCounts))
	assert.NotContains(t, stored.Nutrients, "Unobtainium (mg)")
	f.gen.AssertExpectations(t)
}

func TestChallengeService_LogQueryFoodWithoutChallenge(t *testing.T) {
	f := setupChallengeTest(t)

	f.gen.On("Generate", mock.Anything, config.AgentClassifier, mock.Anything).Return(`{"category": "food"}`, nil)

	_, err := f.svc.LogQuery(context.Background(), f.userID, "rice")
	assert.ErrorIs(t, err, service.ErrNoChallenge)
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, config.AgentNutriScanner, mock.Anything)
}

func TestChallengeService_LogQueryRejectsNegativeAmounts(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.expectFood("mystery", `{"Protein (g)": -5}`)
	_, err = f.svc.LogQuery(ctx, f.userID, "mystery")
	assert.ErrorIs(t, err, diet.ErrInvalidInput)

	stored := f.reload(t)
	assert.Equal(t, 0, stored.Version)
	assert.Equal(t, 0, stored.MealCounts[0])
}

func TestChallengeService_LogQueryMalformedScan(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.expectFood("soup", `I think it has some protein`)
	_, err = f.svc.LogQuery(ctx, f.userID, "soup")
	assert.ErrorIs(t, err, service.ErrMalformedOutput)
	assert.Equal(t, 0, f.reload(t).Version)
}

func TestChallengeService_LogQueryAfterChallengeEnds(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 3)
	require.NoError(t, err)

	f.clock.advanceDays(3)
	f.gen.On("Generate", mock.Anything, config.AgentClassifier, mock.Anything).Return(`{"category": "food"}`, nil)

	_, err = f.svc.LogQuery(ctx, f.userID, "pizza")
	assert.ErrorIs(t, err, diet.ErrInvalidInput)
}

func TestChallengeService_LogQueryConflict(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.gen.On("Generate", mock.Anything, config.AgentClassifier, mock.Anything).Return(`{"category": "food"}`, nil)
	f.gen.On("Generate", mock.Anything, config.AgentNutriScanner, mock.Anything).
		Run(func(args mock.Arguments) {
			// another request writes while the scanner is running
			require.NoError(t, f.db.Model(&models.Challenge{}).
				Where("user_id = ?", f.userID).
				Update("version", 1).Error)
		}).
		Return(`{"Protein (g)": 10}`, nil)

	_, err = f.svc.LogQuery(ctx, f.userID, "chicken")
	assert.ErrorIs(t, err, service.ErrConflict)

	stored := f.reload(t)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, 0.0, stored.Nutrients[protein][0])
}

func TestChallengeService_Gaps(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.expectFood("steak", `{"Protein (g)": 30, "Calories (kcal)": 500}`)
	_, err = f.svc.LogQuery(ctx, f.userID, "steak")
	require.NoError(t, err)

	// day 0 only
	gaps, err := f.svc.Gaps(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, diet.GapSheet{protein: 20, calories: 1500}, gaps)

	// an empty day 1 halves the averages
	f.clock.advanceDays(1)
	gaps, err = f.svc.Gaps(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, diet.GapSheet{protein: 35, calories: 1750}, gaps)
}

func TestChallengeService_GapsBeforeStart(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.clock.advanceDays(-1)
	_, err = f.svc.Gaps(ctx, f.userID)
	assert.ErrorIs(t, err, diet.ErrInvalidInput)
}

func TestChallengeService_SuggestionsAndReview(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.gen.On("Generate", mock.Anything, config.AgentDietBuilder, userMessageContains(`"Protein (g)":50`)).
		Return("add beans", nil)
	f.gen.On("Generate", mock.Anything, config.AgentNutriReflector, userMessageContains(`"Calories (kcal)":2000`)).
		Return("you ate nothing", nil)

	suggestions, err := f.svc.Suggestions(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "add beans", suggestions.Text)
	assert.Equal(t, diet.GapSheet{protein: 50, calories: 2000}, suggestions.Gaps)

	review, err := f.svc.Review(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "you ate nothing", review.Text)
}

func TestChallengeService_MissedDays(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	// nothing has been missed on the first day
	report, err := f.svc.MissedDays(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, report.Dates)
	assert.Empty(t, report.Reminder)

	f.clock.advanceDays(1)
	f.expectFood("oats", `{"Protein (g)": 5}`)
	_, err = f.svc.LogQuery(ctx, f.userID, "oats")
	require.NoError(t, err)

	// today (day 3) is still open and not counted
	f.clock.advanceDays(2)
	f.gen.On("Generate", mock.Anything, config.AgentMissyMonitor, userMessageContains("days=01-01-2024, 03-01-2024")).
		Return("come back!", nil)

	report, err = f.svc.MissedDays(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-01-2024", "03-01-2024"}, report.Dates)
	assert.Equal(t, "come back!", report.Reminder)
	f.gen.AssertExpectations(t)
}

func TestChallengeService_MissedDaysAfterChallengeEnds(t *testing.T) {
	f := setupChallengeTest(t)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 2)
	require.NoError(t, err)

	f.clock.advanceDays(10)
	f.gen.On("Generate", mock.Anything, config.AgentMissyMonitor, mock.Anything).Return("reminder", nil)

	report, err := f.svc.MissedDays(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-01-2024", "02-01-2024"}, report.Dates)
}

func TestChallengeService_Score(t *testing.T) {
	f := setupChallengeTest(t)
	cache := &fakeCache{entries: map[string]*diet.ScoreResult{}}
	f.svc.WithScoreCache(cache)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 7)
	require.NoError(t, err)

	f.expectFood("feast", `{"Protein (g)": 120, "Calories (kcal)": 2000}`)
	_, err = f.svc.LogQuery(ctx, f.userID, "feast")
	require.NoError(t, err)
	f.clock.advanceDays(2)

	got, err := f.svc.Score(ctx, f.userID)
	require.NoError(t, err)

	want, err := diet.ScoreAdherence(diet.AdherenceInput{
		Intake: diet.NutrientSeries{
			protein:  {120, 0, 0},
			calories: {2000, 0, 0},
		},
		Ideal:          diet.BalancedDietSheet{protein: 50, calories: 2000},
		DailyFrequency: []int{1, 0, 0},
		MissedDays:     1,
		StartDate:      "01-01-2024",
	}, diet.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, want, *got)
	assert.Equal(t, []string{"01-01-2024"}, got.CheatDates)
	assert.Equal(t, 0, cache.hits)

	again, err := f.svc.Score(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, cache.hits)

	// a new log changes the version and bypasses the cached entry
	f.expectFood("salad", `{"Calories (kcal)": 150}`)
	_, err = f.svc.LogQuery(ctx, f.userID, "salad")
	require.NoError(t, err)
	_, err = f.svc.Score(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}

func TestChallengeService_ScoreCacheAfterChallengeEnds(t *testing.T) {
	f := setupChallengeTest(t)
	cache := &fakeCache{entries: map[string]*diet.ScoreResult{}}
	f.svc.WithScoreCache(cache)
	uncached := service.NewChallengeService(f.db, service.NewAgents(f.gen, testDietConfig()), testDietConfig()).
		WithClock(f.clock.Now)
	ctx := context.Background()
	_, err := f.svc.Reset(ctx, f.userID, 2)
	require.NoError(t, err)

	f.clock.advanceDays(1)
	lastDay, err := f.svc.Score(ctx, f.userID)
	require.NoError(t, err)

	// window is capped at two days from here on, but day two now counts as missed
	f.clock.advanceDays(1)
	afterEnd, err := f.svc.Score(ctx, f.userID)
	require.NoError(t, err)
	want, err := uncached.Score(ctx, f.userID)
	require.NoError(t, err)

	assert.Equal(t, want, afterEnd)
	assert.Less(t, afterEnd.Score, lastDay.Score)
	assert.Equal(t, 0, cache.hits)

	f.clock.advanceDays(5)
	again, err := f.svc.Score(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, afterEnd, again)
	assert.Equal(t, 1, cache.hits)
}

func TestChallengeService_InconsistentRow(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  interface{}
	}{
		{name: "short meal counts", column: "meal_counts", value: datatypes.JSONSlice[int]{0}},
		{name: "short attendance", column: "attendance", value: datatypes.JSONSlice[bool]{false}},
		{name: "long meal counts", column: "meal_counts", value: datatypes.JSONSlice[int]{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupChallengeTest(t)
			ctx := context.Background()
			_, err := f.svc.Reset(ctx, f.userID, 3)
			require.NoError(t, err)
			require.NoError(t, f.db.Model(&models.Challenge{}).
				Where("user_id = ?", f.userID).
				Update(tt.column, tt.value).Error)
			f.clock.advanceDays(2)

			_, err = f.svc.Score(ctx, f.userID)
			assert.ErrorIs(t, err, diet.ErrInvalidInput)
			_, err = f.svc.Gaps(ctx, f.userID)
			assert.ErrorIs(t, err, diet.ErrInvalidInput)
			_, err = f.svc.MissedDays(ctx, f.userID)
			assert.ErrorIs(t, err, diet.ErrInvalidInput)

			f.gen.On("Generate", mock.Anything, config.AgentClassifier, userMessageContains("query=soup")).
				Return(`{"category": "food"}`, nil).Once()
			_, err = f.svc.LogQuery(ctx, f.userID, "soup")
			assert.ErrorIs(t, err, diet.ErrInvalidInput)

			// a reset replaces the broken row
			challenge, err := f.svc.Reset(ctx, f.userID, 3)
			require.NoError(t, err)
			assert.Len(t, challenge.MealCounts, 3)
			_, err = f.svc.Score(ctx, f.userID)
			assert.NoError(t, err)
		})
	}
}

func TestChallengeService_ScoreWithoutChallenge(t *testing.T) {
	f := setupChallengeTest(t)

	_, err := f.svc.Score(context.Background(), f.userID)
	assert.ErrorIs(t, err, service.ErrNoChallenge)
}
