// Package diet computes nutrient gaps and diet-adherence scores over a
// challenge's per-day intake series. Nothing in this package performs I/O.
package diet

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnparseableStartDate = errors.New("unparseable start date")
)

// DateLayout is the DD-MM-YYYY layout used for start dates and cheat dates.
const DateLayout = "02-01-2006"

// NutrientSeries maps a nutrient name to one intake value per challenge day.
type NutrientSeries map[string][]float64

// BalancedDietSheet maps a nutrient name to its ideal daily intake.
type BalancedDietSheet map[string]float64

// GapSheet maps a nutrient name to ideal minus average observed intake.
type GapSheet map[string]float64

// Days returns the common length of the non-empty series. Series of
// different lengths are rejected.
func (s NutrientSeries) Days() (int, error) {
	days := 0
	for name, values := range s {
		if len(values) == 0 {
			continue
		}
		if days != 0 && len(values) != days {
			return 0, fmt.Errorf("%w: series %q has %d days, expected %d", ErrInvalidInput, name, len(values), days)
		}
		days = len(values)
	}
	return days, nil
}

// Window returns a copy of the series truncated to the first n days.
func (s NutrientSeries) Window(n int) NutrientSeries {
	out := make(NutrientSeries, len(s))
	for name, values := range s {
		end := n
		if end > len(values) {
			end = len(values)
		}
		out[name] = append([]float64(nil), values[:end]...)
	}
	return out
}

func (s NutrientSeries) validate() error {
	for name, values := range s {
		for day, v := range values {
			if v < 0 || math.IsNaN(v) {
				return fmt.Errorf("%w: %q day %d has value %v", ErrInvalidInput, name, day, v)
			}
		}
	}
	return nil
}

// validate rejects targets that would push accuracy outside [0, 1]
func (s BalancedDietSheet) validate() error {
	for name, v := range s {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q has target %v", ErrInvalidInput, name, v)
		}
	}
	return nil
}

// ParseStartDate accepts DD-MM-YYYY, a date-only YYYY-MM-DD value or an
// RFC3339 timestamp.
func ParseStartDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableStartDate, s)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts whole calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	s := Midnight(start)
	e := Midnight(end.In(start.Location()))
	// calendar arithmetic in UTC avoids DST hours skewing the division
	su := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	eu := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int(eu.Sub(su).Hours() / 24)
}

// DayIndex returns the slot for today in a challenge of timeFrame days
// started on start. Days outside the challenge are an error.
func DayIndex(start, today time.Time, timeFrame int) (int, error) {
	if timeFrame <= 0 {
		return 0, fmt.Errorf("%w: time frame %d", ErrInvalidInput, timeFrame)
	}
	idx := DaysBetween(start, today)
	if idx < 0 || idx >= timeFrame {
		return 0, fmt.Errorf("%w: day %d outside challenge of %d days", ErrInvalidInput, idx, timeFrame)
	}
	return idx, nil
}

// FormatDay formats the calendar date index days after start.
func FormatDay(start time.Time, index int) string {
	return start.AddDate(0, 0, index).Format(DateLayout)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
