package db

import (
	"context"
	"errors"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
	"github.com/terraincognita07/flowcast/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CycleRecordRepository struct {
	database *gorm.DB
}

func NewCycleRecordRepository(database *gorm.DB) *CycleRecordRepository {
	return &CycleRecordRepository{database: database}
}

func (repo *CycleRecordRepository) ListRecentWithCycleLength(ctx context.Context, userID string, limit int) ([]models.CycleRecord, error) {
	records := make([]models.CycleRecord, 0, limit)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND cycle_length IS NOT NULL", userID).
		Order("period_start_date DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *CycleRecordRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.CycleRecord, error) {
	records := make([]models.CycleRecord, 0, limit)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period_start_date DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListOverlapping returns records whose period touches from..to. Open periods
// count as lasting services.ProjectedPeriodDays days after their start.
func (repo *CycleRecordRepository) ListOverlapping(ctx context.Context, userID string, from time.Time, to time.Time) ([]models.CycleRecord, error) {
	from, to = services.CalendarDate(from), services.CalendarDate(to)
	openFrom := services.AddDays(from, -services.ProjectedPeriodDays)

	records := make([]models.CycleRecord, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND period_start_date <= ?", userID, to).
		Where(
			repo.database.
				Where("period_end_date IS NOT NULL AND period_end_date >= ?", from).
				Or("period_end_date IS NULL AND period_start_date >= ?", openFrom),
		).
		Order("period_start_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *CycleRecordRepository) ListForExport(ctx context.Context, userID string, from *time.Time, to *time.Time) ([]models.CycleRecord, error) {
	query := repo.database.WithContext(ctx).Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("period_start_date >= ?", services.CalendarDate(*from))
	}
	if to != nil {
		query = query.Where("period_start_date <= ?", services.CalendarDate(*to))
	}

	records := make([]models.CycleRecord, 0)
	if err := query.Order("period_start_date ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *CycleRecordRepository) FindLatest(ctx context.Context, userID string) (models.CycleRecord, bool, error) {
	return firstRecord(repo.database.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period_start_date DESC"))
}

func (repo *CycleRecordRepository) FindByIDForUser(ctx context.Context, userID string, recordID string) (models.CycleRecord, bool, error) {
	return firstRecord(repo.database.WithContext(ctx).Where("id = ? AND user_id = ?", recordID, userID))
}

func (repo *CycleRecordRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := repo.database.WithContext(ctx).
		Model(&models.CycleRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *CycleRecordRepository) UpdateDetails(ctx context.Context, userID string, recordID string, updates map[string]any) error {
	result := repo.database.WithContext(ctx).
		Model(&models.CycleRecord{}).
		Where("id = ? AND user_id = ?", recordID, userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return services.ErrRecordNotFound
	}
	return nil
}

// WithinChain runs fn in one transaction over the user's records. On
// PostgreSQL the user row is locked first so concurrent writers from other
// processes queue behind it; SQLite already serializes writers.
func (repo *CycleRecordRepository) WithinChain(ctx context.Context, userID string, fn func(chain services.CycleChain) error) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == dialectPostgres {
			var locked models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", userID).
				First(&locked).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return services.ErrUserNotFound
				}
				return err
			}
		}
		return fn(&cycleChain{tx: tx, userID: userID})
	})
}

type cycleChain struct {
	tx     *gorm.DB
	userID string
}

func (chain *cycleChain) scoped() *gorm.DB {
	return chain.tx.Where("user_id = ?", chain.userID)
}

func (chain *cycleChain) FindByID(recordID string) (models.CycleRecord, bool, error) {
	return firstRecord(chain.scoped().Where("id = ?", recordID))
}

func (chain *cycleChain) ExistsWithStart(start time.Time) (bool, error) {
	var count int64
	if err := chain.scoped().
		Model(&models.CycleRecord{}).
		Where("period_start_date = ?", services.CalendarDate(start)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (chain *cycleChain) FindPreceding(start time.Time) (models.CycleRecord, bool, error) {
	return firstRecord(chain.scoped().
		Where("period_start_date < ?", services.CalendarDate(start)).
		Order("period_start_date DESC"))
}

func (chain *cycleChain) FindFollowing(start time.Time) (models.CycleRecord, bool, error) {
	return firstRecord(chain.scoped().
		Where("period_start_date > ?", services.CalendarDate(start)).
		Order("period_start_date ASC"))
}

func (chain *cycleChain) SetCycleLength(recordID string, length *int) error {
	var value any = gorm.Expr("NULL")
	if length != nil {
		value = *length
	}
	return chain.scoped().
		Model(&models.CycleRecord{}).
		Where("id = ?", recordID).
		Update("cycle_length", value).Error
}

func (chain *cycleChain) Create(record *models.CycleRecord) error {
	record.UserID = chain.userID
	record.PeriodStartDate = services.CalendarDate(record.PeriodStartDate)
	err := chain.tx.Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.ErrPeriodAlreadyLogged
	}
	return err
}

func (chain *cycleChain) Delete(recordID string) error {
	return chain.scoped().Where("id = ?", recordID).Delete(&models.CycleRecord{}).Error
}

func firstRecord(query *gorm.DB) (models.CycleRecord, bool, error) {
	var record models.CycleRecord
	result := query.Limit(1).Find(&record)
	if result.Error != nil {
		return models.CycleRecord{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.CycleRecord{}, false, nil
	}
	return record, true, nil
}
