package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/diet"
	"github.com/dietvite/backend/internal/models"
)

var (
	ErrNoChallenge = errors.New("no active challenge")
	ErrConflict    = errors.New("challenge was modified concurrently")
)

// MaxTimeFrame is the longest challenge a user can start
const MaxTimeFrame = 365

// QueryResult describes what a free-text query did
type QueryResult struct {
	Category  string             `json:"category"`
	Answer    string             `json:"answer,omitempty"`
	Nutrients map[string]float64 `json:"nutrients,omitempty"`
	Date      string             `json:"date,omitempty"`
}

// AdviceResult pairs generated text with the gaps it was based on
type AdviceResult struct {
	Gaps diet.GapSheet `json:"gap_sheet"`
	Text string        `json:"message"`
}

// MissedReport lists completed challenge days without any log
type MissedReport struct {
	Dates    []string `json:"missed_dates"`
	Reminder string   `json:"reminder,omitempty"`
}

// ChallengeService runs the diet challenge operations. Each operation reads
// the user's challenge once and writes it at most once.
type ChallengeService struct {
	db        *gorm.DB
	agents    *Agents
	diet      *config.DietConfig
	scoreOpts diet.Options
	cache     ScoreCache
	archiver  ChallengeArchiver
	now       func() time.Time
}

// Ensure ChallengeService implements IChallengeService
var _ IChallengeService = (*ChallengeService)(nil)

func NewChallengeService(db *gorm.DB, agents *Agents, dietCfg *config.DietConfig) *ChallengeService {
	return &ChallengeService{
		db:        db,
		agents:    agents,
		diet:      dietCfg,
		scoreOpts: diet.DefaultOptions(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithScoreCache enables score caching
func (s *ChallengeService) WithScoreCache(cache ScoreCache) *ChallengeService {
	s.cache = cache
	return s
}

// WithArchiver archives challenges replaced by Reset
func (s *ChallengeService) WithArchiver(archiver ChallengeArchiver) *ChallengeService {
	s.archiver = archiver
	return s
}

// WithClock replaces the wall clock, mainly for tests
func (s *ChallengeService) WithClock(now func() time.Time) *ChallengeService {
	s.now = now
	return s
}

// Get returns the user's current challenge
func (s *ChallengeService) Get(ctx context.Context, userID uuid.UUID) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return &challenge, nil
}

// current loads the challenge and rejects rows whose day slices do not
// cover the time frame. Reset keeps using Get so a bad row can be replaced.
func (s *ChallengeService) current(ctx context.Context, userID uuid.UUID) (*models.Challenge, error) {
	challenge, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if challenge.TimeFrame < 1 ||
		len(challenge.Attendance) != challenge.TimeFrame ||
		len(challenge.MealCounts) != challenge.TimeFrame {
		return nil, fmt.Errorf("%w: challenge %s has %d attendance and %d meal count slots for %d days",
			diet.ErrInvalidInput, challenge.ID, len(challenge.Attendance), len(challenge.MealCounts), challenge.TimeFrame)
	}
	return challenge, nil
}

// Reset replaces the user's challenge with an empty one of timeFrame days
// starting today.
func (s *ChallengeService) Reset(ctx context.Context, userID uuid.UUID, timeFrame int) (*models.Challenge, error) {
	if timeFrame < 1 || timeFrame > MaxTimeFrame {
		return nil, fmt.Errorf("%w: time frame must be between 1 and %d days", diet.ErrInvalidInput, MaxTimeFrame)
	}

	previous, err := s.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoChallenge) {
		return nil, err
	}
	if previous != nil && s.archiver != nil {
		if err := s.archiver.Archive(ctx, previous); err != nil {
			return nil, err
		}
	}

	challenge := models.NewChallenge(userID, s.now(), timeFrame, s.diet.Nutrients)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Challenge{}).Error; err != nil {
			return err
		}
		return tx.Create(challenge).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset challenge: %w", err)
	}

	log.Printf("Started %d-day challenge %s for user %s", timeFrame, challenge.ID, userID)
	return challenge, nil
}

// LogQuery classifies a free-text query. Food is scanned into nutrient
// deltas and added to today's slot; anything else gets a knowledge answer.
func (s *ChallengeService) LogQuery(ctx context.Context, userID uuid.UUID, query string) (*QueryResult, error) {
	category, err := s.agents.Classify(ctx, query)
	if err != nil {
		return nil, err
	}

	if category != CategoryFood {
		answer, err := s.agents.Answer(ctx, query)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Category: category, Answer: answer}, nil
	}

	challenge, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	day, err := diet.DayIndex(challenge.StartDate, s.now(), challenge.TimeFrame)
	if err != nil {
		return nil, err
	}

	scanned, err := s.agents.ScanNutrients(ctx, query)
	if err != nil {
		return nil, err
	}
	deltas, err := s.acceptDeltas(scanned)
	if err != nil {
		return nil, err
	}

	for name, v := range deltas {
		slots := challenge.Nutrients[name]
		if len(slots) != challenge.TimeFrame {
			// nutrient added to the vocabulary after the challenge started
			padded := make([]float64, challenge.TimeFrame)
			copy(padded, slots)
			slots = padded
		}
		slots[day] += v
		challenge.Nutrients[name] = slots
	}
	challenge.Attendance[day] = true
	challenge.MealCounts[day]++

	if err := s.save(ctx, challenge); err != nil {
		return nil, err
	}

	return &QueryResult{
		Category:  category,
		Nutrients: deltas,
		Date:      diet.FormatDay(challenge.StartDate, day),
	}, nil
}

// acceptDeltas keeps values for known nutrients and rejects negative ones
func (s *ChallengeService) acceptDeltas(scanned map[string]float64) (map[string]float64, error) {
	known := make(map[string]bool, len(s.diet.Nutrients))
	for _, n := range s.diet.Nutrients {
		known[n] = true
	}

	deltas := make(map[string]float64, len(scanned))
	for name, v := range scanned {
		if !known[name] {
			log.Printf("Ignoring unknown nutrient %q from scanner", name)
			continue
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative amount %v for %q", diet.ErrInvalidInput, v, name)
		}
		deltas[name] = v
	}
	return deltas, nil
}

// save writes the per-day columns if nobody else has written since the read
func (s *ChallengeService) save(ctx context.Context, challenge *models.Challenge) error {
	result := s.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ? AND version = ?", challenge.ID, challenge.Version).
		Updates(map[string]interface{}{
			"nutrients":   challenge.Nutrients,
			"attendance":  challenge.Attendance,
			"meal_counts": challenge.MealCounts,
			"version":     challenge.Version + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	challenge.Version++
	return nil
}

// elapsed returns the index of today and the number of slots observed so far
func (s *ChallengeService) elapsed(challenge *models.Challenge) (today, window int, err error) {
	today = diet.DaysBetween(challenge.StartDate, s.now())
	if today < 0 {
		return 0, 0, fmt.Errorf("%w: challenge starts on %s", diet.ErrInvalidInput, challenge.StartDate.Format(diet.DateLayout))
	}
	window = today + 1
	if window > challenge.TimeFrame {
		window = challenge.TimeFrame
	}
	return today, window, nil
}

func (s *ChallengeService) gaps(challenge *models.Challenge) (diet.GapSheet, error) {
	_, window, err := s.elapsed(challenge)
	if err != nil {
		return nil, err
	}
	return diet.DetectGaps(challenge.Nutrients.Series().Window(window), s.diet.BalancedDietSheet), nil
}

// Gaps compares average intake so far with the balanced diet sheet
func (s *ChallengeService) Gaps(ctx context.Context, userID uuid.UUID) (diet.GapSheet, error) {
	challenge, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.gaps(challenge)
}

// Suggestions asks the diet builder for meals that close the gaps
func (s *ChallengeService) Suggestions(ctx context.Context, userID uuid.UUID) (*AdviceResult, error) {
	return s.advise(ctx, userID, s.agents.BuildDiet)
}

// Review asks the reflector to comment on the gaps
func (s *ChallengeService) Review(ctx context.Context, userID uuid.UUID) (*AdviceResult, error) {
	return s.advise(ctx, userID, s.agents.Reflect)
}

func (s *ChallengeService) advise(ctx context.Context, userID uuid.UUID, agent func(context.Context, diet.GapSheet) (string, error)) (*AdviceResult, error) {
	gaps, err := s.Gaps(ctx, userID)
	if err != nil {
		return nil, err
	}
	text, err := agent(ctx, gaps)
	if err != nil {
		return nil, err
	}
	return &AdviceResult{Gaps: gaps, Text: text}, nil
}

// missedDays lists completed days without attendance
func (s *ChallengeService) missedDays(challenge *models.Challenge) ([]string, error) {
	today, _, err := s.elapsed(challenge)
	if err != nil {
		return nil, err
	}
	completed := today
	if completed > challenge.TimeFrame {
		completed = challenge.TimeFrame
	}

	missed := []string{}
	for i := 0; i < completed && i < len(challenge.Attendance); i++ {
		if !challenge.Attendance[i] {
			missed = append(missed, diet.FormatDay(challenge.StartDate, i))
		}
	}
	return missed, nil
}

// MissedDays reports skipped days and, when there are any, a reminder
func (s *ChallengeService) MissedDays(ctx context.Context, userID uuid.UUID) (*MissedReport, error) {
	challenge, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	missed, err := s.missedDays(challenge)
	if err != nil {
		return nil, err
	}

	report := &MissedReport{Dates: missed}
	if len(missed) > 0 {
		report.Reminder, err = s.agents.RemindMissed(ctx, missed)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Score computes the adherence score over the days observed so far
func (s *ChallengeService) Score(ctx context.Context, userID uuid.UUID) (*diet.ScoreResult, error) {
	challenge, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	_, window, err := s.elapsed(challenge)
	if err != nil {
		return nil, err
	}
	missed, err := s.missedDays(challenge)
	if err != nil {
		return nil, err
	}

	// missed days keep growing after the window stops at the time frame
	key := fmt.Sprintf("%s:%d:%d:%d", challenge.ID, challenge.Version, window, len(missed))
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("Score cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	result, err := diet.ScoreAdherence(diet.AdherenceInput{
		Intake:         challenge.Nutrients.Series().Window(window),
		Ideal:          s.diet.BalancedDietSheet,
		DailyFrequency: []int(challenge.MealCounts[:window]),
		MissedDays:     len(missed),
		StartDate:      challenge.StartDate.Format(diet.DateLayout),
	}, s.scoreOpts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &result); err != nil {
			log.Printf("Score cache write failed: %v", err)
		}
	}
	return &result, nil
}
