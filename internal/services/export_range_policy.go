package services

import (
	"strings"
	"time"
)

// ParseExportRange reads the optional from/to query bounds of an export.
// Either bound may be blank; both are inclusive calendar days.
func ParseExportRange(rawFrom string, rawTo string) (*time.Time, *time.Time, error) {
	from, err := parseExportBound("from", rawFrom)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseExportBound("to", rawTo)
	if err != nil {
		return nil, nil, err
	}

	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, invalidField("to", "validation.range.inverted", "End date must be on or after start date")
	}
	return from, to, nil
}

func parseExportBound(field string, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := ParseCalendarDate(raw)
	if err != nil {
		return nil, invalidField(field, "validation.date.invalid", "Dates must use the YYYY-MM-DD format")
	}
	return &day, nil
}
