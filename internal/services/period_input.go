package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terraincognita07/flowcast/internal/models"
)

const MaxPeriodNotesLength = 500

type PeriodInput struct {
	StartDate     time.Time
	EndDate       *time.Time
	FlowIntensity *string
	Notes         string
}

// PeriodUpdate carries the editable fields of a cycle record; nil means
// "leave unchanged".
type PeriodUpdate struct {
	EndDate       *time.Time
	FlowIntensity *string
	Notes         *string
}

func (update PeriodUpdate) IsEmpty() bool {
	return update.EndDate == nil && update.FlowIntensity == nil && update.Notes == nil
}

func NormalizePeriodInput(input PeriodInput, today time.Time) (PeriodInput, error) {
	input.StartDate = CalendarDate(input.StartDate)
	if input.StartDate.After(CalendarDate(today)) {
		return input, invalidField("period_start_date", "validation.period_start_date.future", "Period start date cannot be in the future")
	}

	if input.EndDate != nil {
		endDate, err := normalizePeriodEndDate(*input.EndDate, input.StartDate, today)
		if err != nil {
			return input, err
		}
		input.EndDate = &endDate
	}

	flow, err := normalizePeriodFlow(input.FlowIntensity)
	if err != nil {
		return input, err
	}
	input.FlowIntensity = flow

	notes, err := normalizePeriodNotes(input.Notes)
	if err != nil {
		return input, err
	}
	input.Notes = notes
	return input, nil
}

func normalizePeriodEndDate(endDate time.Time, startDate time.Time, today time.Time) (time.Time, error) {
	endDate = CalendarDate(endDate)
	if endDate.Before(CalendarDate(startDate)) {
		return endDate, invalidField("period_end_date", "validation.period_end_date.before_start", "Period end date must be on or after the start date")
	}
	if endDate.After(CalendarDate(today)) {
		return endDate, invalidField("period_end_date", "validation.period_end_date.future", "Period end date cannot be in the future")
	}
	return endDate, nil
}

func normalizePeriodFlow(flow *string) (*string, error) {
	if flow == nil {
		return nil, nil
	}
	value := strings.ToLower(strings.TrimSpace(*flow))
	if value == "" {
		return nil, nil
	}
	if !models.IsPeriodFlow(value) {
		return nil, invalidField("flow_intensity", "validation.flow_intensity.invalid", "Invalid flow intensity")
	}
	return &value, nil
}

func normalizePeriodNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxPeriodNotesLength {
		return notes, invalidField("notes", "validation.notes.too_long", "Notes cannot exceed 500 characters")
	}
	return notes, nil
}
