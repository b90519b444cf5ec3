package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terraincognita07/flowcast/internal/events"
	"github.com/terraincognita07/flowcast/internal/models"
)

type stubReminderUsers struct {
	users []models.User
	err   error
}

func (stub *stubReminderUsers) ListOnboarded(context.Context) ([]models.User, error) {
	return stub.users, stub.err
}

func newTestReminderService(t *testing.T, publisher events.Publisher) *ReminderService {
	t.Helper()
	cycles, _, _ := newTestCycleService(t, 28)
	logPeriods(t, cycles, "user-1", "2025-01-01", "2025-01-29")
	users := &stubReminderUsers{users: []models.User{{ID: "user-1"}, {ID: "user-2"}}}
	return NewReminderService(users, cycles, publisher, nil, ReminderOptions{PeriodReminderDays: 2})
}

func TestReminderServicePublishesUpcomingPeriodOncePerDay(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	service := newTestReminderService(t, publisher)
	now := time.Date(2025, time.February, 24, 9, 0, 0, 0, time.UTC)

	sent, err := service.RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("run reminders: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected one reminder, got %d", sent)
	}
	if publisher.events[0].Type != events.TypeReminderPeriodUpcoming || publisher.events[0].UserID != "user-1" {
		t.Fatalf("unexpected event %+v", publisher.events[0])
	}

	sent, err = service.RunOnce(context.Background(), now.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("run reminders again: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected reminder to be deduplicated within the day, got %d", sent)
	}
}

func TestReminderServicePublishesFertileWindowStart(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	service := newTestReminderService(t, publisher)

	sent, err := service.RunOnce(context.Background(), time.Date(2025, time.February, 7, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run reminders: %v", err)
	}
	if sent != 1 || publisher.types()[0] != events.TypeReminderFertileWindow {
		t.Fatalf("expected fertile window reminder, got %v", publisher.types())
	}

	sent, err = service.RunOnce(context.Background(), time.Date(2025, time.February, 8, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run reminders: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected no reminder on an ordinary day, got %d", sent)
	}
}

func TestReminderServiceRetriesAfterPublishFailure(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{err: errors.New("broker down")}
	service := newTestReminderService(t, publisher)
	now := time.Date(2025, time.February, 24, 9, 0, 0, 0, time.UTC)

	if sent, err := service.RunOnce(context.Background(), now); err != nil || sent != 0 {
		t.Fatalf("expected failed publish to count nothing, got %d %v", sent, err)
	}

	publisher.err = nil
	if sent, err := service.RunOnce(context.Background(), now); err != nil || sent != 1 {
		t.Fatalf("expected retry to publish, got %d %v", sent, err)
	}
}

func TestReminderServiceEnabled(t *testing.T) {
	t.Parallel()

	disabled := NewReminderService(&stubReminderUsers{}, nil, nil, nil, ReminderOptions{})
	if disabled.Enabled() {
		t.Fatal("expected reminders disabled without a broker")
	}
	disabled.Start(context.Background())

	enabled := NewReminderService(&stubReminderUsers{}, nil, &recordingPublisher{}, nil, ReminderOptions{})
	if !enabled.Enabled() {
		t.Fatal("expected reminders enabled with a publisher")
	}

	failing := NewReminderService(&stubReminderUsers{err: errors.New("db down")}, nil, &recordingPublisher{}, nil, ReminderOptions{})
	if _, err := failing.RunOnce(context.Background(), time.Now()); err == nil {
		t.Fatal("expected user listing failure to surface")
	}
}
