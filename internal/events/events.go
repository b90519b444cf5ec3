// Package events publishes domain events about cycle history and reminders.
package events

import (
	"context"
	"time"
)

const (
	TypePeriodLogged           = "period.logged"
	TypePeriodUpdated          = "period.updated"
	TypePeriodDeleted          = "period.deleted"
	TypeReminderPeriodUpcoming = "reminder.period_upcoming"
	TypeReminderFertileWindow  = "reminder.fertile_window"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// IsNop reports whether publishing through publisher has no effect.
func IsNop(publisher Publisher) bool {
	if publisher == nil {
		return true
	}
	_, ok := publisher.(NopPublisher)
	return ok
}
