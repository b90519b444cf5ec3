package services

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terraincognita07/flowcast/internal/models"
)

const MaxFirstNameLength = 100

var ErrAuthCredentialsInvalid = errors.New("auth credentials invalid")

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeCredentialsInput(emailRaw string, passwordRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" || strings.TrimSpace(passwordRaw) == "" {
		return "", "", ErrAuthCredentialsInvalid
	}
	return email, passwordRaw, nil
}

func normalizeFirstName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxFirstNameLength {
		return "", invalidField("first_name", "validation.first_name.too_long", "First name cannot exceed 100 characters")
	}
	return name, nil
}

func normalizeDateOfBirth(value *time.Time, today time.Time) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	day := CalendarDate(*value)
	if day.After(CalendarDate(today)) {
		return nil, invalidField("date_of_birth", "validation.date_of_birth.future", "Date of birth cannot be in the future")
	}
	return &day, nil
}

func validateAvgCycleLength(value int) error {
	if value < models.MinCycleLength || value > models.MaxCycleLength {
		return invalidField("avg_cycle_length", "validation.avg_cycle_length.range", "Average cycle length must be between 21 and 35 days")
	}
	return nil
}
