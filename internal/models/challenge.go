package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/dietvite/backend/internal/diet"
)

// NutrientSheet stores per-nutrient daily intake as a JSON column
type NutrientSheet map[string][]float64

// NewNutrientSheet returns a sheet with a zeroed slot per day for every nutrient
func NewNutrientSheet(nutrients []string, days int) NutrientSheet {
	sheet := make(NutrientSheet, len(nutrients))
	for _, n := range nutrients {
		sheet[n] = make([]float64, days)
	}
	return sheet
}

// Series exposes the sheet to the scoring package
func (s NutrientSheet) Series() diet.NutrientSeries {
	return diet.NutrientSeries(s)
}

// Value implements the driver.Valuer interface
func (s NutrientSheet) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (s *NutrientSheet) Scan(value interface{}) error {
	if value == nil {
		*s = NutrientSheet{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported nutrient sheet type %T", value)
	}

	return json.Unmarshal(bytes, s)
}

// GormDBDataType picks jsonb on Postgres and JSON text elsewhere
func (NutrientSheet) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "JSON"
}

// Challenge is a user's active diet challenge. Every per-day slice has
// TimeFrame entries and index i is StartDate + i days.
type Challenge struct {
	ID         uuid.UUID                `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
	UserID     uuid.UUID                `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	StartDate  time.Time                `gorm:"not null" json:"start_date"`
	TimeFrame  int                      `gorm:"not null;check:time_frame > 0" json:"time_frame"`
	Nutrients  NutrientSheet            `gorm:"not null" json:"overall_nutrient_sheet"`
	Attendance datatypes.JSONSlice[bool] `gorm:"not null" json:"attendance"`
	MealCounts datatypes.JSONSlice[int]  `gorm:"not null" json:"meal_counts"`
	// Version increases on every write and guards read-modify-write cycles
	Version int `gorm:"not null;default:0" json:"version"`
}

// BeforeCreate assigns an ID when the caller did not
func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NewChallenge starts an empty challenge of timeFrame days on start
func NewChallenge(userID uuid.UUID, start time.Time, timeFrame int, nutrients []string) *Challenge {
	return &Challenge{
		UserID:     userID,
		StartDate:  diet.Midnight(start),
		TimeFrame:  timeFrame,
		Nutrients:  NewNutrientSheet(nutrients, timeFrame),
		Attendance: make(datatypes.JSONSlice[bool], timeFrame),
		MealCounts: make(datatypes.JSONSlice[int], timeFrame),
	}
}
