package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MoodHappy     = "happy"
	MoodCalm      = "calm"
	MoodSad       = "sad"
	MoodAnxious   = "anxious"
	MoodIrritable = "irritable"
	MoodEnergetic = "energetic"
)

var Moods = []string{MoodHappy, MoodCalm, MoodSad, MoodAnxious, MoodIrritable, MoodEnergetic}

// Symptoms is the fixed catalog accepted in mood logs.
var Symptoms = []string{
	"cramps",
	"bloating",
	"headache",
	"fatigue",
	"breast_tenderness",
	"acne",
	"backache",
	"nausea",
	"insomnia",
	"cravings",
	"irritability",
	"anxiety",
	"sadness",
	"mood_swings",
	"increased_energy",
	"high_libido",
	"low_libido",
	"brain_fog",
	"diarrhea",
	"constipation",
}

type MoodLog struct {
	ID            string                      `gorm:"primaryKey;type:varchar(36)"`
	UserID        string                      `gorm:"type:varchar(36);not null;index"`
	LogDate       time.Time                   `gorm:"type:date;not null"`
	Mood          *string                     `gorm:"type:varchar(20)"`
	EnergyLevel   *int                        `gorm:"type:integer"`
	Symptoms      datatypes.JSONSlice[string] `gorm:"type:text"`
	FlowIntensity string                      `gorm:"type:varchar(20);not null"`
	Notes         string                      `gorm:"type:text;not null"`
	IsPrivate     bool                        `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (entry *MoodLog) BeforeCreate(*gorm.DB) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FlowIntensity == "" {
		entry.FlowIntensity = FlowNone
	}
	if entry.Symptoms == nil {
		entry.Symptoms = datatypes.JSONSlice[string]{}
	}
	return nil
}

func IsMood(value string) bool {
	for _, mood := range Moods {
		if mood == value {
			return true
		}
	}
	return false
}

func IsSymptom(value string) bool {
	for _, symptom := range Symptoms {
		if symptom == value {
			return true
		}
	}
	return false
}
