package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
)

const (
	exportArchivePrefix     = "exports"
	exportArchiveTimeLayout = "20060102T150405Z"
	exportContentType       = "application/json"
)

var ExportCSVHeaders = []string{
	"Period start",
	"Period end",
	"Cycle length",
	"Flow",
	"Notes",
}

type ExportCycleReader interface {
	ListForExport(ctx context.Context, userID string, from *time.Time, to *time.Time) ([]models.CycleRecord, error)
}

type ExportMoodReader interface {
	ListForExport(ctx context.Context, userID string, from *time.Time, to *time.Time) ([]models.MoodLog, error)
}

// ArchiveStore keeps exported documents outside the database.
type ArchiveStore interface {
	Bucket() string
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type ExportUser struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	DateOfBirth    *string `json:"date_of_birth"`
	AvgCycleLength int     `json:"avg_cycle_length"`
	MemberSince    string  `json:"member_since"`
}

type ExportCycle struct {
	ID              string  `json:"id"`
	PeriodStartDate string  `json:"period_start_date"`
	PeriodEndDate   *string `json:"period_end_date"`
	CycleLength     *int    `json:"cycle_length"`
	FlowIntensity   *string `json:"flow_intensity"`
	Notes           string  `json:"notes"`
}

type ExportMoodLog struct {
	ID            string   `json:"id"`
	LogDate       string   `json:"log_date"`
	Mood          *string  `json:"mood"`
	EnergyLevel   *int     `json:"energy_level"`
	Symptoms      []string `json:"symptoms"`
	FlowIntensity string   `json:"flow_intensity"`
	Notes         string   `json:"notes"`
	IsPrivate     bool     `json:"is_private"`
}

type ExportPrediction struct {
	AvgCycleLength     int      `json:"avg_cycle_length"`
	Confidence         string   `json:"confidence"`
	StdDeviation       *float64 `json:"std_deviation"`
	LastPeriodStart    string   `json:"last_period_start"`
	NextPeriodDate     string   `json:"next_period_date"`
	OvulationDate      string   `json:"ovulation_date"`
	FertileWindowStart string   `json:"fertile_window_start"`
	FertileWindowEnd   string   `json:"fertile_window_end"`
}

type ExportDocument struct {
	ExportedAt time.Time         `json:"exported_at"`
	User       ExportUser        `json:"user"`
	Cycles     []ExportCycle     `json:"cycles"`
	MoodLogs   []ExportMoodLog   `json:"mood_logs"`
	Prediction *ExportPrediction `json:"prediction"`
}

type ExportCSVRow struct {
	PeriodStart string
	PeriodEnd   string
	CycleLength string
	Flow        string
	Notes       string
}

type ArchiveResult struct {
	Bucket string
	Key    string
}

type ExportService struct {
	users   UserProfileRepository
	cycles  ExportCycleReader
	moods   ExportMoodReader
	engine  *CycleService
	archive ArchiveStore
}

// NewExportService accepts a nil archive; Archive then reports
// ErrArchiveUnavailable.
func NewExportService(users UserProfileRepository, cycles ExportCycleReader, moods ExportMoodReader, engine *CycleService, archive ArchiveStore) *ExportService {
	return &ExportService{
		users:   users,
		cycles:  cycles,
		moods:   moods,
		engine:  engine,
		archive: archive,
	}
}

func (service *ExportService) ArchiveEnabled() bool {
	return service.archive != nil
}

func (service *ExportService) BuildDocument(ctx context.Context, userID string, from *time.Time, to *time.Time, now time.Time) (ExportDocument, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return ExportDocument{}, err
	}
	records, err := service.cycles.ListForExport(ctx, userID, from, to)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("load cycle records: %w", err)
	}
	logs, err := service.moods.ListForExport(ctx, userID, from, to)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("load mood logs: %w", err)
	}

	document := ExportDocument{
		ExportedAt: now.UTC(),
		User:       buildExportUser(user),
		Cycles:     make([]ExportCycle, 0, len(records)),
		MoodLogs:   make([]ExportMoodLog, 0, len(logs)),
	}
	for _, record := range records {
		document.Cycles = append(document.Cycles, ExportCycle{
			ID:              record.ID,
			PeriodStartDate: FormatCalendarDate(record.PeriodStartDate),
			PeriodEndDate:   formatOptionalDate(record.PeriodEndDate),
			CycleLength:     record.CycleLength,
			FlowIntensity:   record.FlowIntensity,
			Notes:           record.Notes,
		})
	}
	for _, entry := range logs {
		symptoms := []string(entry.Symptoms)
		if symptoms == nil {
			symptoms = []string{}
		}
		document.MoodLogs = append(document.MoodLogs, ExportMoodLog{
			ID:            entry.ID,
			LogDate:       FormatCalendarDate(entry.LogDate),
			Mood:          entry.Mood,
			EnergyLevel:   entry.EnergyLevel,
			Symptoms:      symptoms,
			FlowIntensity: entry.FlowIntensity,
			Notes:         entry.Notes,
			IsPrivate:     entry.IsPrivate,
		})
	}

	forecast, found, err := service.engine.Forecast(ctx, userID)
	if err != nil {
		return ExportDocument{}, err
	}
	if found {
		document.Prediction = &ExportPrediction{
			AvgCycleLength:     forecast.Prediction.AvgCycleLength,
			Confidence:         forecast.Prediction.Confidence,
			StdDeviation:       forecast.Prediction.StdDeviation,
			LastPeriodStart:    FormatCalendarDate(forecast.LastPeriodStart),
			NextPeriodDate:     FormatCalendarDate(forecast.Forward.NextPeriodDate),
			OvulationDate:      FormatCalendarDate(forecast.Forward.OvulationDate),
			FertileWindowStart: FormatCalendarDate(forecast.Forward.FertileWindow.Start),
			FertileWindowEnd:   FormatCalendarDate(forecast.Forward.FertileWindow.End),
		}
	}
	return document, nil
}

func (service *ExportService) BuildCSVRows(ctx context.Context, userID string, from *time.Time, to *time.Time) ([]ExportCSVRow, error) {
	records, err := service.cycles.ListForExport(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load cycle records: %w", err)
	}

	rows := make([]ExportCSVRow, 0, len(records))
	for _, record := range records {
		row := ExportCSVRow{
			PeriodStart: FormatCalendarDate(record.PeriodStartDate),
			Flow:        csvFlowLabel(record.FlowIntensity),
			Notes:       record.Notes,
		}
		if record.PeriodEndDate != nil {
			row.PeriodEnd = FormatCalendarDate(*record.PeriodEndDate)
		}
		if record.CycleLength != nil {
			row.CycleLength = strconv.Itoa(*record.CycleLength)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Archive uploads the full export document and returns where it was stored.
func (service *ExportService) Archive(ctx context.Context, userID string, now time.Time) (ArchiveResult, error) {
	if service.archive == nil {
		return ArchiveResult{}, ErrArchiveUnavailable
	}

	document, err := service.BuildDocument(ctx, userID, nil, nil, now)
	if err != nil {
		return ArchiveResult{}, err
	}
	body, err := json.Marshal(document)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("encode export: %w", err)
	}

	key := ArchiveKey(userID, now)
	if err := service.archive.Put(ctx, key, body, exportContentType); err != nil {
		return ArchiveResult{}, fmt.Errorf("upload export: %w", err)
	}
	return ArchiveResult{Bucket: service.archive.Bucket(), Key: key}, nil
}

func ArchiveKey(userID string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", exportArchivePrefix, userID, now.UTC().Format(exportArchiveTimeLayout))
}

func (row ExportCSVRow) Columns() []string {
	return []string{row.PeriodStart, row.PeriodEnd, row.CycleLength, row.Flow, row.Notes}
}

func buildExportUser(user models.User) ExportUser {
	return ExportUser{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		DateOfBirth:    formatOptionalDate(user.DateOfBirth),
		AvgCycleLength: user.AvgCycleLength,
		MemberSince:    user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatOptionalDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := FormatCalendarDate(*value)
	return &formatted
}

func csvFlowLabel(flow *string) string {
	if flow == nil {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(*flow)) {
	case models.FlowSpotting:
		return "Spotting"
	case models.FlowLight:
		return "Light"
	case models.FlowMedium:
		return "Medium"
	case models.FlowHeavy:
		return "Heavy"
	default:
		return ""
	}
}
