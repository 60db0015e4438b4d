package diet

import (
	"fmt"
	"math"
	"sort"
)

// Options holds the tunable constants of the adherence score.
type Options struct {
	IdealFrequency        int
	PenaltyStrength       float64
	OverPenaltyMultiplier float64
	HighRiskNutrients     []string
	CheatThresholdOver    float64
	CheatThresholdFreq    int
	MaxDisciplineDays     int
}

// DefaultOptions returns the standard scoring constants.
func DefaultOptions() Options {
	return Options{
		IdealFrequency:        3,
		PenaltyStrength:       2,
		OverPenaltyMultiplier: 1.5,
		HighRiskNutrients: []string{
			"Calories (kcal)",
			"Sodium (mg)",
			"Potassium (mg)",
			"Iron (mg)",
			"Vitamin D (mg)",
		},
		CheatThresholdOver: 2.0,
		CheatThresholdFreq: 6,
		MaxDisciplineDays:  60,
	}
}

// AdherenceInput is the materialized challenge state a score is computed from.
type AdherenceInput struct {
	Intake NutrientSeries
	Ideal  BalancedDietSheet
	// DailyFrequency holds the number of logged meals per day.
	DailyFrequency []int
	// MissedDays is the number of challenge days without any log.
	MissedDays int
	// StartDate is DD-MM-YYYY, YYYY-MM-DD or an RFC3339 timestamp.
	StartDate string
}

// ScoreResult is a score in [0, 100] and the flagged cheat dates.
type ScoreResult struct {
	Score      float64  `json:"score"`
	CheatDates []string `json:"cheat_dates"`
}

// ScoreAdherence weighs nutrient accuracy, meal frequency, missed days and
// a discipline bonus into a single score, flagging days of heavy
// overconsumption or excessive meal counts.
func ScoreAdherence(in AdherenceInput, opts Options) (ScoreResult, error) {
	if in.MissedDays < 0 {
		return ScoreResult{}, fmt.Errorf("%w: missed days %d", ErrInvalidInput, in.MissedDays)
	}
	numDays, err := in.Intake.Days()
	if err != nil {
		return ScoreResult{}, err
	}
	if err := in.Intake.validate(); err != nil {
		return ScoreResult{}, err
	}
	if err := in.Ideal.validate(); err != nil {
		return ScoreResult{}, err
	}
	if numDays > 0 && len(in.DailyFrequency) > 0 && len(in.DailyFrequency) != numDays {
		return ScoreResult{}, fmt.Errorf("%w: %d frequency entries for %d days", ErrInvalidInput, len(in.DailyFrequency), numDays)
	}
	start, err := ParseStartDate(in.StartDate)
	if err != nil {
		return ScoreResult{}, err
	}

	cheatDays := make(map[int]struct{})

	nutrientScore := nutrientAccuracy(in.Intake, in.Ideal, opts, cheatDays)

	freqScore, err := frequencyScore(in.DailyFrequency, opts, cheatDays)
	if err != nil {
		return ScoreResult{}, err
	}

	base := 0.7*nutrientScore + 0.2*freqScore + 0.1*MissingPenalty(in.MissedDays)
	final := base * (0.8 + 0.2*DisciplineBonus(numDays, opts.MaxDisciplineDays)) * 100

	indices := make([]int, 0, len(cheatDays))
	for idx := range cheatDays {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	dates := make([]string, 0, len(indices))
	for _, idx := range indices {
		dates = append(dates, FormatDay(start, idx))
	}

	return ScoreResult{
		Score:      math.Round(final*100) / 100,
		CheatDates: dates,
	}, nil
}

func nutrientAccuracy(intake NutrientSeries, ideal BalancedDietSheet, opts Options, cheatDays map[int]struct{}) float64 {
	highRisk := make(map[string]bool, len(opts.HighRiskNutrients))
	for _, n := range opts.HighRiskNutrients {
		highRisk[n] = true
	}

	// map iteration order does not matter: the result is a mean
	var scores []float64
	for name, target := range ideal {
		days := intake[name]
		if len(days) == 0 || target == 0 {
			continue
		}
		dayScores := make([]float64, 0, len(days))
		for day, actual := range days {
			dayScores = append(dayScores, dayAccuracy(actual, target, highRisk[name], opts))
			if actual > target && actual/target >= opts.CheatThresholdOver {
				cheatDays[day] = struct{}{}
			}
		}
		scores = append(scores, mean(dayScores))
	}
	return mean(scores)
}

// dayAccuracy is 1 at the ideal and decays exponentially with the relative
// deviation. Overshoot steepens the decay quadratically, more so for
// high-risk nutrients.
func dayAccuracy(actual, ideal float64, highRisk bool, opts Options) float64 {
	deviation := math.Abs(actual-ideal) / ideal
	penalty := opts.PenaltyStrength
	if actual > ideal {
		overshoot := actual/ideal - 1
		shape := 1 + overshoot*overshoot
		if highRisk {
			shape *= opts.OverPenaltyMultiplier
		}
		penalty *= shape
	}
	return math.Exp(-penalty * deviation)
}

func frequencyScore(freq []int, opts Options, cheatDays map[int]struct{}) (float64, error) {
	scores := make([]float64, 0, len(freq))
	for day, f := range freq {
		if f < 0 {
			return 0, fmt.Errorf("%w: day %d has %d meals", ErrInvalidInput, day, f)
		}
		diff := f - opts.IdealFrequency
		if diff < 0 {
			diff = -diff
		}
		scores = append(scores, 1/(1+float64(diff)))
		if f > opts.CheatThresholdFreq {
			cheatDays[day] = struct{}{}
		}
	}
	return mean(scores), nil
}

// MissingPenalty is 1 with no missed days and falls toward 0 as they grow.
func MissingPenalty(missed int) float64 {
	return 1 / (1 + float64(missed))
}

// DisciplineBonus grows logarithmically with the number of days, reaching 1
// at maxDays and staying there.
func DisciplineBonus(numDays, maxDays int) float64 {
	if maxDays <= 0 || numDays <= 0 {
		return 0
	}
	if numDays > maxDays {
		numDays = maxDays
	}
	return math.Log1p(float64(numDays)) / math.Log1p(float64(maxDays))
}
