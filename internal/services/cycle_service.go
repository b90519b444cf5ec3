package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/flowcast/internal/events"
	"github.com/terraincognita07/flowcast/internal/logging"
	"github.com/terraincognita07/flowcast/internal/models"
)

const (
	DefaultHistoryLimit = 12
	MaxHistoryLimit     = 100

	defaultChainLockWait = 5 * time.Second
)

type CycleRecordRepository interface {
	ListRecentWithCycleLength(ctx context.Context, userID string, limit int) ([]models.CycleRecord, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.CycleRecord, error)
	ListOverlapping(ctx context.Context, userID string, from time.Time, to time.Time) ([]models.CycleRecord, error)
	FindLatest(ctx context.Context, userID string) (models.CycleRecord, bool, error)
	FindByIDForUser(ctx context.Context, userID string, recordID string) (models.CycleRecord, bool, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	UpdateDetails(ctx context.Context, userID string, recordID string, updates map[string]any) error
	WithinChain(ctx context.Context, userID string, fn func(chain CycleChain) error) error
}

// CycleChain is one user's cycle history inside a single transaction.
type CycleChain interface {
	FindByID(recordID string) (models.CycleRecord, bool, error)
	ExistsWithStart(start time.Time) (bool, error)
	FindPreceding(start time.Time) (models.CycleRecord, bool, error)
	FindFollowing(start time.Time) (models.CycleRecord, bool, error)
	SetCycleLength(recordID string, length *int) error
	Create(record *models.CycleRecord) error
	Delete(recordID string) error
}

type CycleUserRepository interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
}

// Forecast is the prediction for a user anchored at the most recent period.
type Forecast struct {
	LastPeriodStart time.Time
	Prediction      Prediction
	Forward         ForwardPrediction
}

type CycleOverview struct {
	HasData  bool
	Current  CycleState
	Forecast Forecast
}

type LoggedPeriod struct {
	Record   models.CycleRecord
	Forecast Forecast
}

type CycleService struct {
	records  CycleRecordRepository
	users    CycleUserRepository
	events   events.Publisher
	logger   logging.Logger
	locks    *userLocks
	lockWait time.Duration
}

func NewCycleService(records CycleRecordRepository, users CycleUserRepository, publisher events.Publisher, logger logging.Logger) *CycleService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &CycleService{
		records:  records,
		users:    users,
		events:   publisher,
		logger:   logger,
		locks:    newUserLocks(),
		lockWait: defaultChainLockWait,
	}
}

// LogPeriod inserts a new period start and back-fills the cycle length of the
// record right before it. When the new start lands between two existing
// records it also takes the gap to the following one.
func (service *CycleService) LogPeriod(ctx context.Context, userID string, input PeriodInput, today time.Time) (LoggedPeriod, error) {
	input, err := NormalizePeriodInput(input, today)
	if err != nil {
		return LoggedPeriod{}, err
	}

	record := models.CycleRecord{
		UserID:          userID,
		PeriodStartDate: input.StartDate,
		PeriodEndDate:   input.EndDate,
		FlowIntensity:   input.FlowIntensity,
		Notes:           input.Notes,
	}

	err = service.mutateChain(ctx, userID, func(chain CycleChain) error {
		exists, err := chain.ExistsWithStart(record.PeriodStartDate)
		if err != nil {
			return err
		}
		if exists {
			return ErrPeriodAlreadyLogged
		}

		previous, hasPrevious, err := chain.FindPreceding(record.PeriodStartDate)
		if err != nil {
			return err
		}
		following, hasFollowing, err := chain.FindFollowing(record.PeriodStartDate)
		if err != nil {
			return err
		}

		if hasPrevious {
			length := BackfillCycleLength(record.PeriodStartDate, previous.PeriodStartDate)
			if err := chain.SetCycleLength(previous.ID, &length); err != nil {
				return err
			}
		}
		if hasFollowing {
			length := BackfillCycleLength(following.PeriodStartDate, record.PeriodStartDate)
			record.CycleLength = &length
		}
		return chain.Create(&record)
	})
	if err != nil {
		return LoggedPeriod{}, err
	}

	forecast, _, err := service.Forecast(ctx, userID)
	if err != nil {
		return LoggedPeriod{}, err
	}

	service.publish(ctx, events.Event{
		Type:   events.TypePeriodLogged,
		UserID: userID,
		Payload: map[string]any{
			"record_id":         record.ID,
			"period_start_date": FormatCalendarDate(record.PeriodStartDate),
			"next_period_date":  FormatCalendarDate(forecast.Forward.NextPeriodDate),
			"avg_cycle_length":  forecast.Prediction.AvgCycleLength,
			"confidence":        forecast.Prediction.Confidence,
		},
	})

	return LoggedPeriod{Record: record, Forecast: forecast}, nil
}

func (service *CycleService) UpdatePeriod(ctx context.Context, userID string, recordID string, update PeriodUpdate, today time.Time) (models.CycleRecord, error) {
	if update.IsEmpty() {
		return models.CycleRecord{}, ErrNoUpdates
	}

	record, found, err := service.records.FindByIDForUser(ctx, userID, recordID)
	if err != nil {
		return models.CycleRecord{}, err
	}
	if !found {
		return models.CycleRecord{}, ErrRecordNotFound
	}

	updates := make(map[string]any, 3)
	if update.EndDate != nil {
		endDate, err := normalizePeriodEndDate(*update.EndDate, record.PeriodStartDate, today)
		if err != nil {
			return models.CycleRecord{}, err
		}
		updates["period_end_date"] = endDate
	}
	if update.FlowIntensity != nil {
		flow, err := normalizePeriodFlow(update.FlowIntensity)
		if err != nil {
			return models.CycleRecord{}, err
		}
		if flow == nil {
			updates["flow_intensity"] = nil
		} else {
			updates["flow_intensity"] = *flow
		}
	}
	if update.Notes != nil {
		notes, err := normalizePeriodNotes(*update.Notes)
		if err != nil {
			return models.CycleRecord{}, err
		}
		updates["notes"] = notes
	}

	if err := service.records.UpdateDetails(ctx, userID, recordID, updates); err != nil {
		return models.CycleRecord{}, fmt.Errorf("update cycle record: %w", err)
	}

	updated, found, err := service.records.FindByIDForUser(ctx, userID, recordID)
	if err != nil {
		return models.CycleRecord{}, err
	}
	if !found {
		return models.CycleRecord{}, ErrRecordNotFound
	}

	service.publish(ctx, events.Event{
		Type:    events.TypePeriodUpdated,
		UserID:  userID,
		Payload: map[string]any{"record_id": recordID},
	})
	return updated, nil
}

// DeletePeriod removes a record and reconnects its neighbours so the previous
// record's cycle length spans to the following one, or becomes open.
func (service *CycleService) DeletePeriod(ctx context.Context, userID string, recordID string) error {
	var deleted models.CycleRecord
	err := service.mutateChain(ctx, userID, func(chain CycleChain) error {
		record, found, err := chain.FindByID(recordID)
		if err != nil {
			return err
		}
		if !found {
			return ErrRecordNotFound
		}
		deleted = record

		previous, hasPrevious, err := chain.FindPreceding(record.PeriodStartDate)
		if err != nil {
			return err
		}
		following, hasFollowing, err := chain.FindFollowing(record.PeriodStartDate)
		if err != nil {
			return err
		}

		if err := chain.Delete(record.ID); err != nil {
			return err
		}
		if !hasPrevious {
			return nil
		}
		if !hasFollowing {
			return chain.SetCycleLength(previous.ID, nil)
		}
		length := BackfillCycleLength(following.PeriodStartDate, previous.PeriodStartDate)
		return chain.SetCycleLength(previous.ID, &length)
	})
	if err != nil {
		return err
	}

	service.publish(ctx, events.Event{
		Type:   events.TypePeriodDeleted,
		UserID: userID,
		Payload: map[string]any{
			"record_id":         deleted.ID,
			"period_start_date": FormatCalendarDate(deleted.PeriodStartDate),
		},
	})
	return nil
}

func (service *CycleService) History(ctx context.Context, userID string, limit int) ([]models.CycleRecord, error) {
	return service.records.ListRecent(ctx, userID, ClampHistoryLimit(limit))
}

func (service *CycleService) Prediction(ctx context.Context, userID string) (Prediction, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return Prediction{}, err
	}

	records, err := service.records.ListRecentWithCycleLength(ctx, userID, PredictionHistoryLimit)
	if err != nil {
		return Prediction{}, fmt.Errorf("load cycle lengths: %w", err)
	}
	return ComputeAverageAndConfidence(RecentCycleLengths(records), user.AvgCycleLength), nil
}

// Forecast reports false when the user has not logged any period yet.
func (service *CycleService) Forecast(ctx context.Context, userID string) (Forecast, bool, error) {
	latest, found, err := service.records.FindLatest(ctx, userID)
	if err != nil {
		return Forecast{}, false, fmt.Errorf("load latest cycle record: %w", err)
	}
	if !found {
		return Forecast{}, false, nil
	}

	prediction, err := service.Prediction(ctx, userID)
	if err != nil {
		return Forecast{}, false, err
	}

	return Forecast{
		LastPeriodStart: CalendarDate(latest.PeriodStartDate),
		Prediction:      prediction,
		Forward:         ComputeForwardPredictions(latest.PeriodStartDate, prediction.AvgCycleLength),
	}, true, nil
}

func (service *CycleService) Overview(ctx context.Context, userID string, today time.Time) (CycleOverview, error) {
	forecast, found, err := service.Forecast(ctx, userID)
	if err != nil || !found {
		return CycleOverview{}, err
	}

	return CycleOverview{
		HasData:  true,
		Current:  ComputeCurrentCycleState(forecast.LastPeriodStart, today, forecast.Prediction.AvgCycleLength),
		Forecast: forecast,
	}, nil
}

func (service *CycleService) CountRecords(ctx context.Context, userID string) (int64, error) {
	return service.records.CountByUser(ctx, userID)
}

func (service *CycleService) mutateChain(ctx context.Context, userID string, fn func(chain CycleChain) error) error {
	waitCtx, cancel := context.WithTimeout(ctx, service.lockWait)
	defer cancel()

	release, err := service.locks.acquire(waitCtx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrCycleChainBusy, ctx.Err())
		}
		return ErrCycleChainBusy
	}
	defer release()

	if err := service.records.WithinChain(ctx, userID, fn); err != nil {
		if errors.Is(err, ErrPeriodAlreadyLogged) || errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("update cycle chain: %w", err)
	}
	return nil
}

func (service *CycleService) publish(ctx context.Context, event events.Event) {
	if err := service.events.Publish(ctx, event); err != nil {
		service.logger.Warn(ctx, "publish cycle event failed", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}

func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
