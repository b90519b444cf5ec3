package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
	"gorm.io/datatypes"
)

type stubMoodLogs struct {
	entries []models.MoodLog
}

func (stub *stubMoodLogs) Upsert(_ context.Context, entry *models.MoodLog) (bool, error) {
	for index := range stub.entries {
		existing := stub.entries[index]
		if existing.UserID == entry.UserID && existing.LogDate.Equal(entry.LogDate) {
			entry.ID = existing.ID
			stub.entries[index] = *entry
			return false, nil
		}
	}
	entry.ID = "log-" + FormatCalendarDate(entry.LogDate)
	stub.entries = append(stub.entries, *entry)
	return true, nil
}

func (stub *stubMoodLogs) forUser(userID string) []models.MoodLog {
	result := make([]models.MoodLog, 0)
	for _, entry := range stub.entries {
		if entry.UserID == userID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LogDate.After(result[j].LogDate) })
	return result
}

func (stub *stubMoodLogs) ListRecent(_ context.Context, userID string, limit int) ([]models.MoodLog, error) {
	entries := stub.forUser(userID)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (stub *stubMoodLogs) ListInRange(_ context.Context, userID string, from time.Time, to time.Time) ([]models.MoodLog, error) {
	result := make([]models.MoodLog, 0)
	for _, entry := range stub.forUser(userID) {
		if betweenInclusive(entry.LogDate, from, to) {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (stub *stubMoodLogs) FindByDate(_ context.Context, userID string, day time.Time) (models.MoodLog, bool, error) {
	for _, entry := range stub.forUser(userID) {
		if entry.LogDate.Equal(day) {
			return entry, true, nil
		}
	}
	return models.MoodLog{}, false, nil
}

func (stub *stubMoodLogs) DeleteByID(_ context.Context, userID string, logID string) (bool, error) {
	for index, entry := range stub.entries {
		if entry.ID == logID && entry.UserID == userID {
			stub.entries = append(stub.entries[:index], stub.entries[index+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (stub *stubMoodLogs) CountByUser(_ context.Context, userID string) (int64, error) {
	return int64(len(stub.forUser(userID))), nil
}

func (stub *stubMoodLogs) ListLogDates(_ context.Context, userID string, limit int) ([]time.Time, error) {
	dates := make([]time.Time, 0)
	for _, entry := range stub.forUser(userID) {
		if len(dates) < limit {
			dates = append(dates, entry.LogDate)
		}
	}
	return dates, nil
}

func TestMoodServiceSaveUpsertsByDate(t *testing.T) {
	t.Parallel()

	logs := &stubMoodLogs{}
	service := NewMoodService(logs)
	today := mustParseDay(t, "2025-03-10")
	energy := 6

	first, created, err := service.Save(context.Background(), "user-1", MoodInput{
		LogDate:     mustParseDay(t, "2025-03-10"),
		Mood:        stringPtr("Calm"),
		EnergyLevel: &energy,
		Symptoms:    []string{"cramps", "cramps", "bloating"},
	}, today)
	if err != nil {
		t.Fatalf("save mood log: %v", err)
	}
	if !created {
		t.Fatal("expected first save to create")
	}
	if !first.IsPrivate || first.FlowIntensity != models.FlowNone {
		t.Fatalf("expected private entry with flow none, got private=%v flow=%s", first.IsPrivate, first.FlowIntensity)
	}
	if len(first.Symptoms) != 2 {
		t.Fatalf("expected duplicate symptoms to collapse, got %v", first.Symptoms)
	}

	public := false
	second, created, err := service.Save(context.Background(), "user-1", MoodInput{
		LogDate:   mustParseDay(t, "2025-03-10"),
		Mood:      stringPtr("sad"),
		IsPrivate: &public,
	}, today)
	if err != nil {
		t.Fatalf("update mood log: %v", err)
	}
	if created {
		t.Fatal("expected second save for the same day to update")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same log id, got %s and %s", first.ID, second.ID)
	}
	if count, _ := logs.CountByUser(context.Background(), "user-1"); count != 1 {
		t.Fatalf("expected one log, got %d", count)
	}
}

func TestNormalizeMoodInputRejectsInvalidFields(t *testing.T) {
	t.Parallel()

	today := mustParseDay(t, "2025-03-10")
	zero, eleven := 0, 11
	cases := []struct {
		name  string
		input MoodInput
		field string
	}{
		{name: "future date", input: MoodInput{LogDate: mustParseDay(t, "2025-03-11")}, field: "log_date"},
		{name: "unknown mood", input: MoodInput{LogDate: today, Mood: stringPtr("ecstatic")}, field: "mood"},
		{name: "energy too low", input: MoodInput{LogDate: today, EnergyLevel: &zero}, field: "energy_level"},
		{name: "energy too high", input: MoodInput{LogDate: today, EnergyLevel: &eleven}, field: "energy_level"},
		{name: "unknown symptom", input: MoodInput{LogDate: today, Symptoms: []string{"hiccups"}}, field: "symptoms"},
		{name: "unknown flow", input: MoodInput{LogDate: today, FlowIntensity: "extreme"}, field: "flow_intensity"},
		{name: "long notes", input: MoodInput{LogDate: today, Notes: strings.Repeat("a", 1001)}, field: "notes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeMoodInput(tc.input, today)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) || validationErr.Field != tc.field {
				t.Fatalf("expected %s validation error, got %v", tc.field, err)
			}
		})
	}
}

func TestMoodServiceListByRangeAndLimit(t *testing.T) {
	t.Parallel()

	logs := &stubMoodLogs{}
	service := NewMoodService(logs)
	today := mustParseDay(t, "2025-03-31")
	for _, day := range []string{"2025-03-01", "2025-03-05", "2025-03-20", "2025-03-30"} {
		if _, _, err := service.Save(context.Background(), "user-1", MoodInput{LogDate: mustParseDay(t, day)}, today); err != nil {
			t.Fatalf("save %s: %v", day, err)
		}
	}

	from, to := mustParseDay(t, "2025-03-05"), mustParseDay(t, "2025-03-20")
	ranged, err := service.List(context.Background(), "user-1", MoodQuery{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(ranged) != 2 {
		t.Fatalf("expected 2 logs in range, got %d", len(ranged))
	}

	limited, err := service.List(context.Background(), "user-1", MoodQuery{Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || FormatCalendarDate(limited[0].LogDate) != "2025-03-30" {
		t.Fatalf("expected most recent log, got %+v", limited)
	}

	if _, err := service.List(context.Background(), "user-1", MoodQuery{From: &to, To: &from}); err == nil {
		t.Fatal("expected inverted range to fail")
	}
}

func TestMoodServiceByDateAndDelete(t *testing.T) {
	t.Parallel()

	service := NewMoodService(&stubMoodLogs{})
	today := mustParseDay(t, "2025-03-10")

	if _, err := service.ByDate(context.Background(), "user-1", today); !errors.Is(err, ErrMoodLogNotFound) {
		t.Fatalf("expected ErrMoodLogNotFound, got %v", err)
	}

	saved, _, err := service.Save(context.Background(), "user-1", MoodInput{LogDate: today}, today)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := service.Delete(context.Background(), "user-2", saved.ID); !errors.Is(err, ErrMoodLogNotFound) {
		t.Fatalf("expected foreign delete to miss, got %v", err)
	}
	if err := service.Delete(context.Background(), "user-1", saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := service.Delete(context.Background(), "user-1", saved.ID); !errors.Is(err, ErrMoodLogNotFound) {
		t.Fatalf("expected second delete to miss, got %v", err)
	}
}

func TestBuildMoodStats(t *testing.T) {
	t.Parallel()

	happy, sad := models.MoodHappy, models.MoodSad
	four, five, seven := 4, 5, 7
	logs := []models.MoodLog{
		{Mood: &happy, EnergyLevel: &seven, Symptoms: datatypes.JSONSlice[string]{"cramps", "acne"}},
		{Mood: &happy, EnergyLevel: &five, Symptoms: datatypes.JSONSlice[string]{"cramps", "bloating"}},
		{Mood: &sad, EnergyLevel: &four, Symptoms: datatypes.JSONSlice[string]{"cramps", "headache", "fatigue", "nausea"}},
		{Symptoms: datatypes.JSONSlice[string]{"acne"}},
	}

	stats := BuildMoodStats(logs, 30)
	if stats.TotalLogs != 4 || stats.PeriodDays != 30 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.MoodBreakdown[models.MoodHappy] != 2 || stats.MoodBreakdown[models.MoodSad] != 1 {
		t.Fatalf("unexpected mood breakdown %v", stats.MoodBreakdown)
	}
	if stats.AvgEnergy == nil || *stats.AvgEnergy != 5.3 {
		t.Fatalf("expected avg energy 5.3, got %v", stats.AvgEnergy)
	}
	if len(stats.CommonSymptoms) != 5 {
		t.Fatalf("expected top 5 symptoms, got %d", len(stats.CommonSymptoms))
	}
	if stats.CommonSymptoms[0] != (SymptomCount{Symptom: "cramps", Count: 3}) {
		t.Fatalf("expected cramps first, got %+v", stats.CommonSymptoms[0])
	}
	if stats.CommonSymptoms[1] != (SymptomCount{Symptom: "acne", Count: 2}) {
		t.Fatalf("expected acne second, got %+v", stats.CommonSymptoms[1])
	}

	empty := BuildMoodStats(nil, 7)
	if empty.AvgEnergy != nil || len(empty.CommonSymptoms) != 0 {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
}

func TestCountStreak(t *testing.T) {
	t.Parallel()

	days := func(values ...string) []time.Time {
		result := make([]time.Time, 0, len(values))
		for _, value := range values {
			result = append(result, mustParseDay(t, value))
		}
		return result
	}
	today := mustParseDay(t, "2025-03-10")

	cases := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "no logs", dates: nil, want: 0},
		{name: "logged today only", dates: days("2025-03-10"), want: 1},
		{name: "three days ending yesterday", dates: days("2025-03-09", "2025-03-08", "2025-03-07", "2025-03-01"), want: 3},
		{name: "gap breaks streak", dates: days("2025-03-10", "2025-03-09", "2025-03-07"), want: 2},
		{name: "stale latest log", dates: days("2025-03-07", "2025-03-06"), want: 0},
	}

	for _, tc := range cases {
		if got := CountStreak(tc.dates, today); got != tc.want {
			t.Fatalf("%s: expected streak %d, got %d", tc.name, tc.want, got)
		}
	}
}
