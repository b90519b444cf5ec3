package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FlowSpotting = "spotting"
	FlowLight    = "light"
	FlowMedium   = "medium"
	FlowHeavy    = "heavy"
	FlowNone     = "none"
)

// CycleRecord is one logged period. CycleLength holds the gap in days to the
// next record of the same user and stays nil on the most recent record.
type CycleRecord struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)"`
	UserID          string     `gorm:"type:varchar(36);not null;index"`
	PeriodStartDate time.Time  `gorm:"type:date;not null"`
	PeriodEndDate   *time.Time `gorm:"type:date"`
	CycleLength     *int
	FlowIntensity   *string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (record *CycleRecord) BeforeCreate(*gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

func IsPeriodFlow(value string) bool {
	switch value {
	case FlowSpotting, FlowLight, FlowMedium, FlowHeavy:
		return true
	default:
		return false
	}
}
