package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
)

const MaxCalendarRangeMonths = 24

type CalendarDay struct {
	Date          time.Time
	HasPeriod     bool
	FlowIntensity *string
	HasMoodLog    bool
	Mood          *string
	EnergyLevel   *int
	SymptomsCount int
	IsPredicted   bool
	IsFertile     bool
	IsOvulation   bool
	IsToday       bool
}

type CalendarMonth struct {
	Year        int
	Month       time.Month
	Days        []CalendarDay
	Predictions []ProjectedPeriod
}

type CalendarRange struct {
	StartDate time.Time
	EndDate   time.Time
	Cycles    []models.CycleRecord
	MoodLogs  []models.MoodLog
}

type CalendarService struct {
	cycles *CycleService
	logs   MoodLogRepository
}

func NewCalendarService(cycles *CycleService, logs MoodLogRepository) *CalendarService {
	return &CalendarService{cycles: cycles, logs: logs}
}

// PeriodEndOrDefault treats an open period as lasting ProjectedPeriodDays
// after its start.
func PeriodEndOrDefault(record models.CycleRecord) time.Time {
	if record.PeriodEndDate != nil {
		return CalendarDate(*record.PeriodEndDate)
	}
	return AddDays(record.PeriodStartDate, ProjectedPeriodDays)
}

func (service *CalendarService) Month(ctx context.Context, userID string, year int, month int, today time.Time) (CalendarMonth, error) {
	if month < 1 || month > 12 {
		return CalendarMonth{}, invalidField("month", "validation.month.range", "Month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return CalendarMonth{}, invalidField("year", "validation.year.range", "Year is out of range")
	}

	monthStart, monthEnd := MonthRange(year, time.Month(month))
	records, err := service.cycles.records.ListOverlapping(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return CalendarMonth{}, fmt.Errorf("load cycle records: %w", err)
	}
	logs, err := service.logs.ListInRange(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return CalendarMonth{}, fmt.Errorf("load mood logs: %w", err)
	}
	forecast, hasForecast, err := service.cycles.Forecast(ctx, userID)
	if err != nil {
		return CalendarMonth{}, err
	}

	result := CalendarMonth{
		Year:        year,
		Month:       time.Month(month),
		Days:        make([]CalendarDay, 0, monthEnd.Day()),
		Predictions: []ProjectedPeriod{},
	}

	var projections []ProjectedPeriod
	var windows []ForwardPrediction
	if hasForecast {
		projections = ProjectPeriods(forecast.LastPeriodStart, forecast.Prediction.AvgCycleLength, ProjectedPeriodCount)
		windows = append(windows, forecast.Forward)
		for _, projection := range projections[:len(projections)-1] {
			windows = append(windows, ComputeForwardPredictions(projection.Start, forecast.Prediction.AvgCycleLength))
		}
		for _, projection := range projections {
			if !projection.Start.After(monthEnd) && !projection.End.Before(monthStart) {
				result.Predictions = append(result.Predictions, projection)
			}
		}
	}

	logsByDay := make(map[string]models.MoodLog, len(logs))
	for _, entry := range logs {
		logsByDay[FormatCalendarDate(entry.LogDate)] = entry
	}

	today = CalendarDate(today)
	for day := monthStart; !day.After(monthEnd); day = AddDays(day, 1) {
		state := CalendarDay{Date: day, IsToday: day.Equal(today)}

		for _, record := range records {
			if betweenInclusive(day, CalendarDate(record.PeriodStartDate), PeriodEndOrDefault(record)) {
				state.HasPeriod = true
				state.FlowIntensity = record.FlowIntensity
				break
			}
		}

		if entry, ok := logsByDay[FormatCalendarDate(day)]; ok {
			state.HasMoodLog = true
			state.Mood = entry.Mood
			state.EnergyLevel = entry.EnergyLevel
			state.SymptomsCount = len(entry.Symptoms)
		}

		for _, projection := range projections {
			if betweenInclusive(day, projection.Start, projection.End) {
				state.IsPredicted = true
				break
			}
		}
		for _, window := range windows {
			if betweenInclusive(day, window.FertileWindow.Start, window.FertileWindow.End) {
				state.IsFertile = true
			}
			if day.Equal(window.OvulationDate) {
				state.IsOvulation = true
			}
		}

		result.Days = append(result.Days, state)
	}
	return result, nil
}

// Range returns raw records and logs for whole months from start to end,
// both given as YYYY-MM.
func (service *CalendarService) Range(ctx context.Context, userID string, start string, end string) (CalendarRange, error) {
	startYear, startMonth, err := parseYearMonth(start)
	if err != nil {
		return CalendarRange{}, invalidField("start", "validation.year_month.invalid", "Start must use the YYYY-MM format")
	}
	endYear, endMonth, err := parseYearMonth(end)
	if err != nil {
		return CalendarRange{}, invalidField("end", "validation.year_month.invalid", "End must use the YYYY-MM format")
	}

	from, _ := MonthRange(startYear, startMonth)
	lastMonthStart, to := MonthRange(endYear, endMonth)
	if lastMonthStart.Before(from) {
		return CalendarRange{}, invalidField("end", "validation.range.inverted", "End date must be on or after start date")
	}
	months := (endYear-startYear)*12 + int(endMonth) - int(startMonth) + 1
	if months > MaxCalendarRangeMonths {
		return CalendarRange{}, invalidField("end", "validation.range.too_long", "Range cannot exceed 24 months")
	}

	records, err := service.cycles.records.ListOverlapping(ctx, userID, from, to)
	if err != nil {
		return CalendarRange{}, fmt.Errorf("load cycle records: %w", err)
	}
	logs, err := service.logs.ListInRange(ctx, userID, from, to)
	if err != nil {
		return CalendarRange{}, fmt.Errorf("load mood logs: %w", err)
	}

	return CalendarRange{StartDate: from, EndDate: to, Cycles: records, MoodLogs: logs}, nil
}

func parseYearMonth(raw string) (int, time.Month, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid year-month %q", raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("invalid year in %q", raw)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month in %q", raw)
	}
	return year, time.Month(month), nil
}
