package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/terraincognita07/flowcast/internal/events"
	"github.com/terraincognita07/flowcast/internal/logging"
	"github.com/terraincognita07/flowcast/internal/models"
)

const (
	DefaultReminderInterval   = 6 * time.Hour
	DefaultPeriodReminderDays = 2

	maxTrackedReminders = 500
)

type ReminderUserReader interface {
	ListOnboarded(ctx context.Context) ([]models.User, error)
}

type ReminderOptions struct {
	Interval           time.Duration
	PeriodReminderDays int
	Location           *time.Location
}

// ReminderService periodically publishes upcoming period and fertile window
// reminders for every onboarded user.
type ReminderService struct {
	users              ReminderUserReader
	cycles             *CycleService
	events             events.Publisher
	logger             logging.Logger
	interval           time.Duration
	periodReminderDays int
	location           *time.Location
	now                func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewReminderService(users ReminderUserReader, cycles *CycleService, publisher events.Publisher, logger logging.Logger, options ReminderOptions) *ReminderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if options.Interval <= 0 {
		options.Interval = DefaultReminderInterval
	}
	if options.PeriodReminderDays < 0 {
		options.PeriodReminderDays = DefaultPeriodReminderDays
	}
	if options.Location == nil {
		options.Location = time.UTC
	}

	return &ReminderService{
		users:              users,
		cycles:             cycles,
		events:             publisher,
		logger:             logger,
		interval:           options.Interval,
		periodReminderDays: options.PeriodReminderDays,
		location:           options.Location,
		now:                time.Now,
		sent:               make(map[string]time.Time),
	}
}

// Enabled is false when no event broker is configured.
func (service *ReminderService) Enabled() bool {
	return !events.IsNop(service.events)
}

// Start runs the reminder loop in the background until ctx is done. The
// first pass runs immediately.
func (service *ReminderService) Start(ctx context.Context) {
	if !service.Enabled() {
		return
	}

	ticker := time.NewTicker(service.interval)
	go func() {
		defer ticker.Stop()

		service.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.run(ctx)
			}
		}
	}()
}

func (service *ReminderService) run(ctx context.Context) {
	sent, err := service.RunOnce(ctx, service.now())
	if err != nil {
		service.logger.Error(ctx, "reminder pass failed", "error", err)
		return
	}
	if sent > 0 {
		service.logger.Info(ctx, "reminders published", "count", sent)
	}
}

// RunOnce checks every onboarded user against the forecast as of now and
// returns how many reminders were published.
func (service *ReminderService) RunOnce(ctx context.Context, now time.Time) (int, error) {
	users, err := service.users.ListOnboarded(ctx)
	if err != nil {
		return 0, fmt.Errorf("list onboarded users: %w", err)
	}

	today := DateAtLocation(now, service.location)
	sent := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		forecast, found, err := service.cycles.Forecast(ctx, user.ID)
		if err != nil {
			service.logger.Warn(ctx, "reminder forecast failed", "user_id", user.ID, "error", err)
			continue
		}
		if !found {
			continue
		}

		nextPeriod := forecast.Forward.NextPeriodDate
		if DaysBetween(today, nextPeriod) == service.periodReminderDays {
			if service.publishOnce(ctx, today, events.Event{
				Type:       events.TypeReminderPeriodUpcoming,
				UserID:     user.ID,
				OccurredAt: now.UTC(),
				Payload: map[string]any{
					"next_period_date": FormatCalendarDate(nextPeriod),
					"days_until":       service.periodReminderDays,
					"confidence":       forecast.Prediction.Confidence,
				},
			}) {
				sent++
			}
		}

		window := forecast.Forward.FertileWindow
		if sameDay(today, window.Start) {
			if service.publishOnce(ctx, today, events.Event{
				Type:       events.TypeReminderFertileWindow,
				UserID:     user.ID,
				OccurredAt: now.UTC(),
				Payload: map[string]any{
					"fertile_window_start": FormatCalendarDate(window.Start),
					"fertile_window_end":   FormatCalendarDate(window.End),
					"ovulation_date":       FormatCalendarDate(forecast.Forward.OvulationDate),
				},
			}) {
				sent++
			}
		}
	}
	return sent, nil
}

func (service *ReminderService) publishOnce(ctx context.Context, today time.Time, event events.Event) bool {
	key := fmt.Sprintf("%s:%s:%s", event.Type, event.UserID, FormatCalendarDate(today))
	if !service.shouldSend(key, today) {
		return false
	}
	if err := service.events.Publish(ctx, event); err != nil {
		service.forget(key)
		service.logger.Warn(ctx, "publish reminder failed", "type", event.Type, "user_id", event.UserID, "error", err)
		return false
	}
	return true
}

func (service *ReminderService) shouldSend(key string, today time.Time) bool {
	service.mu.Lock()
	defer service.mu.Unlock()

	if sentOn, ok := service.sent[key]; ok && sameDay(sentOn, today) {
		return false
	}

	if len(service.sent) >= maxTrackedReminders {
		for tracked, sentOn := range service.sent {
			if !sameDay(sentOn, today) {
				delete(service.sent, tracked)
			}
		}
	}
	service.sent[key] = today
	return true
}

func (service *ReminderService) forget(key string) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.sent, key)
}
