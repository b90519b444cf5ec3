package db

import (
	"context"
	"errors"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
	"github.com/terraincognita07/flowcast/internal/services"
	"gorm.io/gorm"
)

type MoodLogRepository struct {
	database *gorm.DB
}

func NewMoodLogRepository(database *gorm.DB) *MoodLogRepository {
	return &MoodLogRepository{database: database}
}

// Upsert keeps one log per user and day; it reports whether a new row was
// created. entry receives the stored id and creation time.
func (repo *MoodLogRepository) Upsert(ctx context.Context, entry *models.MoodLog) (bool, error) {
	entry.LogDate = services.CalendarDate(entry.LogDate)
	created := false

	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MoodLog
		result := tx.Where("user_id = ? AND log_date = ?", entry.UserID, entry.LogDate).Limit(1).Find(&existing)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			if err := tx.Create(entry).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errMoodLogRace
				}
				return err
			}
			created = true
			return nil
		}

		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		return tx.Model(&existing).
			Select("mood", "energy_level", "symptoms", "flow_intensity", "notes", "is_private").
			Updates(entry).Error
	})
	if errors.Is(err, errMoodLogRace) {
		// A concurrent writer created the row between the lookup and the insert.
		return repo.Upsert(ctx, entry)
	}
	if err != nil {
		return false, err
	}
	return created, nil
}

var errMoodLogRace = errors.New("mood log created concurrently")

func (repo *MoodLogRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.MoodLog, error) {
	logs := make([]models.MoodLog, 0, limit)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("log_date DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (repo *MoodLogRepository) ListInRange(ctx context.Context, userID string, from time.Time, to time.Time) ([]models.MoodLog, error) {
	logs := make([]models.MoodLog, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, services.CalendarDate(from), services.CalendarDate(to)).
		Order("log_date DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (repo *MoodLogRepository) ListForExport(ctx context.Context, userID string, from *time.Time, to *time.Time) ([]models.MoodLog, error) {
	query := repo.database.WithContext(ctx).Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("log_date >= ?", services.CalendarDate(*from))
	}
	if to != nil {
		query = query.Where("log_date <= ?", services.CalendarDate(*to))
	}

	logs := make([]models.MoodLog, 0)
	if err := query.Order("log_date ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (repo *MoodLogRepository) FindByDate(ctx context.Context, userID string, day time.Time) (models.MoodLog, bool, error) {
	var entry models.MoodLog
	result := repo.database.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", userID, services.CalendarDate(day)).
		Limit(1).
		Find(&entry)
	if result.Error != nil {
		return models.MoodLog{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.MoodLog{}, false, nil
	}
	return entry, true, nil
}

func (repo *MoodLogRepository) DeleteByID(ctx context.Context, userID string, logID string) (bool, error) {
	result := repo.database.WithContext(ctx).
		Where("id = ? AND user_id = ?", logID, userID).
		Delete(&models.MoodLog{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repo *MoodLogRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := repo.database.WithContext(ctx).
		Model(&models.MoodLog{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListLogDates returns the most recent log dates first.
func (repo *MoodLogRepository) ListLogDates(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	dates := make([]time.Time, 0, limit)
	if err := repo.database.WithContext(ctx).
		Model(&models.MoodLog{}).
		Where("user_id = ?", userID).
		Order("log_date DESC").
		Limit(limit).
		Pluck("log_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}
