package services

import (
	"context"
	"fmt"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
)

type UserProfileRepository interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
	UpdateByID(ctx context.Context, userID string, updates map[string]any) error
}

type ProfileUpdate struct {
	FirstName      *string
	DateOfBirth    *time.Time
	AvgCycleLength *int
}

func (update ProfileUpdate) IsEmpty() bool {
	return update.FirstName == nil && update.DateOfBirth == nil && update.AvgCycleLength == nil
}

type UserStats struct {
	TotalCycles   int64
	TotalMoodLogs int64
	CurrentStreak int
	MemberSince   time.Time
}

type UserService struct {
	users  UserProfileRepository
	cycles *CycleService
	moods  *MoodService
}

func NewUserService(users UserProfileRepository, cycles *CycleService, moods *MoodService) *UserService {
	return &UserService{users: users, cycles: cycles, moods: moods}
}

func (service *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate, today time.Time) (models.User, error) {
	if update.IsEmpty() {
		return models.User{}, ErrNoUpdates
	}

	updates := make(map[string]any, 3)
	if update.FirstName != nil {
		name, err := normalizeFirstName(*update.FirstName)
		if err != nil {
			return models.User{}, err
		}
		if name == "" {
			return models.User{}, invalidField("first_name", "validation.first_name.empty", "First name cannot be empty")
		}
		updates["first_name"] = name
	}
	if update.DateOfBirth != nil {
		dateOfBirth, err := normalizeDateOfBirth(update.DateOfBirth, today)
		if err != nil {
			return models.User{}, err
		}
		updates["date_of_birth"] = *dateOfBirth
	}
	if update.AvgCycleLength != nil {
		if err := validateAvgCycleLength(*update.AvgCycleLength); err != nil {
			return models.User{}, err
		}
		updates["avg_cycle_length"] = *update.AvgCycleLength
	}

	if _, err := service.users.FindByID(ctx, userID); err != nil {
		return models.User{}, err
	}
	if err := service.users.UpdateByID(ctx, userID, updates); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return service.users.FindByID(ctx, userID)
}

func (service *UserService) Stats(ctx context.Context, userID string, today time.Time) (UserStats, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}

	totalCycles, err := service.cycles.CountRecords(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("count cycle records: %w", err)
	}
	totalLogs, err := service.moods.CountLogs(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("count mood logs: %w", err)
	}
	streak, err := service.moods.CurrentStreak(ctx, userID, today)
	if err != nil {
		return UserStats{}, err
	}

	return UserStats{
		TotalCycles:   totalCycles,
		TotalMoodLogs: totalLogs,
		CurrentStreak: streak,
		MemberSince:   user.CreatedAt,
	}, nil
}
