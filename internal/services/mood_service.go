package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terraincognita07/flowcast/internal/models"
	"gorm.io/datatypes"
)

const (
	MaxMoodNotesLength  = 1000
	DefaultMoodLogLimit = 30
	MaxMoodLogLimit     = 366
	DefaultStatsDays    = 30
	MaxStatsDays        = 365
	topSymptomCount     = 5
)

type MoodLogRepository interface {
	Upsert(ctx context.Context, entry *models.MoodLog) (bool, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.MoodLog, error)
	ListInRange(ctx context.Context, userID string, from time.Time, to time.Time) ([]models.MoodLog, error)
	FindByDate(ctx context.Context, userID string, day time.Time) (models.MoodLog, bool, error)
	DeleteByID(ctx context.Context, userID string, logID string) (bool, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	ListLogDates(ctx context.Context, userID string, limit int) ([]time.Time, error)
}

type MoodInput struct {
	LogDate       time.Time
	Mood          *string
	EnergyLevel   *int
	Symptoms      []string
	FlowIntensity string
	Notes         string
	IsPrivate     *bool
}

type MoodQuery struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type SymptomCount struct {
	Symptom string
	Count   int
}

type MoodStats struct {
	PeriodDays     int
	TotalLogs      int
	MoodBreakdown  map[string]int
	AvgEnergy      *float64
	CommonSymptoms []SymptomCount
}

type MoodService struct {
	logs MoodLogRepository
}

func NewMoodService(logs MoodLogRepository) *MoodService {
	return &MoodService{logs: logs}
}

// Save creates or replaces the log of a day; the bool reports creation.
func (service *MoodService) Save(ctx context.Context, userID string, input MoodInput, today time.Time) (models.MoodLog, bool, error) {
	entry, err := NormalizeMoodInput(input, today)
	if err != nil {
		return models.MoodLog{}, false, err
	}
	entry.UserID = userID

	created, err := service.logs.Upsert(ctx, &entry)
	if err != nil {
		return models.MoodLog{}, false, fmt.Errorf("save mood log: %w", err)
	}
	return entry, created, nil
}

func (service *MoodService) List(ctx context.Context, userID string, query MoodQuery) ([]models.MoodLog, error) {
	if query.From != nil && query.To != nil {
		from, to := CalendarDate(*query.From), CalendarDate(*query.To)
		if to.Before(from) {
			return nil, invalidField("end_date", "validation.range.inverted", "End date must be on or after start date")
		}
		return service.logs.ListInRange(ctx, userID, from, to)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultMoodLogLimit
	}
	if limit > MaxMoodLogLimit {
		limit = MaxMoodLogLimit
	}
	return service.logs.ListRecent(ctx, userID, limit)
}

func (service *MoodService) ByDate(ctx context.Context, userID string, day time.Time) (models.MoodLog, error) {
	entry, found, err := service.logs.FindByDate(ctx, userID, CalendarDate(day))
	if err != nil {
		return models.MoodLog{}, err
	}
	if !found {
		return models.MoodLog{}, ErrMoodLogNotFound
	}
	return entry, nil
}

func (service *MoodService) Delete(ctx context.Context, userID string, logID string) error {
	deleted, err := service.logs.DeleteByID(ctx, userID, logID)
	if err != nil {
		return fmt.Errorf("delete mood log: %w", err)
	}
	if !deleted {
		return ErrMoodLogNotFound
	}
	return nil
}

// Stats summarizes logs dated from days days ago through today.
func (service *MoodService) Stats(ctx context.Context, userID string, days int, today time.Time) (MoodStats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}

	to := CalendarDate(today)
	logs, err := service.logs.ListInRange(ctx, userID, AddDays(to, -days), to)
	if err != nil {
		return MoodStats{}, fmt.Errorf("load mood logs: %w", err)
	}
	return BuildMoodStats(logs, days), nil
}

func (service *MoodService) CountLogs(ctx context.Context, userID string) (int64, error) {
	return service.logs.CountByUser(ctx, userID)
}

// CurrentStreak counts consecutive logged days ending at the latest log. A
// latest log older than yesterday breaks the streak.
func (service *MoodService) CurrentStreak(ctx context.Context, userID string, today time.Time) (int, error) {
	dates, err := service.logs.ListLogDates(ctx, userID, MaxStatsDays)
	if err != nil {
		return 0, fmt.Errorf("load mood log dates: %w", err)
	}
	return CountStreak(dates, today), nil
}

func BuildMoodStats(logs []models.MoodLog, days int) MoodStats {
	stats := MoodStats{
		PeriodDays:     days,
		TotalLogs:      len(logs),
		MoodBreakdown:  make(map[string]int),
		CommonSymptoms: []SymptomCount{},
	}

	symptomCounts := make(map[string]int)
	energyTotal, energyCount := 0, 0
	for _, entry := range logs {
		if entry.Mood != nil {
			stats.MoodBreakdown[*entry.Mood]++
		}
		if entry.EnergyLevel != nil {
			energyTotal += *entry.EnergyLevel
			energyCount++
		}
		for _, symptom := range entry.Symptoms {
			symptomCounts[symptom]++
		}
	}

	if energyCount > 0 {
		average := math.Round(float64(energyTotal)/float64(energyCount)*10) / 10
		stats.AvgEnergy = &average
	}

	for symptom, count := range symptomCounts {
		stats.CommonSymptoms = append(stats.CommonSymptoms, SymptomCount{Symptom: symptom, Count: count})
	}
	sort.Slice(stats.CommonSymptoms, func(i, j int) bool {
		if stats.CommonSymptoms[i].Count != stats.CommonSymptoms[j].Count {
			return stats.CommonSymptoms[i].Count > stats.CommonSymptoms[j].Count
		}
		return stats.CommonSymptoms[i].Symptom < stats.CommonSymptoms[j].Symptom
	})
	if len(stats.CommonSymptoms) > topSymptomCount {
		stats.CommonSymptoms = stats.CommonSymptoms[:topSymptomCount]
	}
	return stats
}

// CountStreak expects dates most recent first.
func CountStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	latest := CalendarDate(dates[0])
	if DaysBetween(latest, today) > 1 {
		return 0
	}

	streak := 1
	previous := latest
	for _, value := range dates[1:] {
		day := CalendarDate(value)
		gap := DaysBetween(day, previous)
		if gap == 0 {
			continue
		}
		if gap != 1 {
			break
		}
		streak++
		previous = day
	}
	return streak
}

func NormalizeMoodInput(input MoodInput, today time.Time) (models.MoodLog, error) {
	entry := models.MoodLog{
		LogDate:       CalendarDate(input.LogDate),
		FlowIntensity: models.FlowNone,
		IsPrivate:     true,
		Symptoms:      datatypes.JSONSlice[string]{},
	}
	if entry.LogDate.After(CalendarDate(today)) {
		return entry, invalidField("log_date", "validation.log_date.future", "Log date cannot be in the future")
	}

	if input.Mood != nil {
		mood := strings.ToLower(strings.TrimSpace(*input.Mood))
		if mood != "" {
			if !models.IsMood(mood) {
				return entry, invalidField("mood", "validation.mood.invalid", "Invalid mood")
			}
			entry.Mood = &mood
		}
	}

	if input.EnergyLevel != nil {
		if *input.EnergyLevel < 1 || *input.EnergyLevel > 10 {
			return entry, invalidField("energy_level", "validation.energy_level.range", "Energy level must be between 1 and 10")
		}
		energy := *input.EnergyLevel
		entry.EnergyLevel = &energy
	}

	seen := make(map[string]struct{}, len(input.Symptoms))
	for _, raw := range input.Symptoms {
		symptom := strings.ToLower(strings.TrimSpace(raw))
		if !models.IsSymptom(symptom) {
			return entry, invalidField("symptoms", "validation.symptoms.invalid", "Invalid symptom")
		}
		if _, duplicate := seen[symptom]; duplicate {
			continue
		}
		seen[symptom] = struct{}{}
		entry.Symptoms = append(entry.Symptoms, symptom)
	}

	if flow := strings.ToLower(strings.TrimSpace(input.FlowIntensity)); flow != "" {
		if flow != models.FlowNone && !models.IsPeriodFlow(flow) {
			return entry, invalidField("flow_intensity", "validation.flow_intensity.invalid", "Invalid flow intensity")
		}
		entry.FlowIntensity = flow
	}

	entry.Notes = strings.TrimSpace(input.Notes)
	if utf8.RuneCountInString(entry.Notes) > MaxMoodNotesLength {
		return entry, invalidField("notes", "validation.mood_notes.too_long", "Notes cannot exceed 1000 characters")
	}

	if input.IsPrivate != nil {
		entry.IsPrivate = *input.IsPrivate
	}
	return entry, nil
}
