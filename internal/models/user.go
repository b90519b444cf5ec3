package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultCycleLength = 28
	MinCycleLength     = 21
	MaxCycleLength     = 35

	SubscriptionFree = "free"
)

type User struct {
	ID                  string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email               string     `gorm:"not null" json:"email"`
	PasswordHash        string     `gorm:"not null" json:"-"`
	FirstName           string     `json:"first_name"`
	DateOfBirth         *time.Time `gorm:"type:date" json:"date_of_birth"`
	AvgCycleLength      int        `gorm:"not null" json:"avg_cycle_length"`
	OnboardingCompleted bool       `gorm:"not null" json:"onboarding_completed"`
	SubscriptionTier    string     `gorm:"not null" json:"subscription_tier"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (user *User) BeforeCreate(*gorm.DB) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = SubscriptionFree
	}
	return nil
}
