package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

// CalendarMonth defaults to the current month when year or month is omitted.
func (handler *Handler) CalendarMonth(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	today := handler.today()

	year := today.Year()
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return handler.respondError(c, invalidRequest("year", "validation.year.range", "Year is out of range"))
		}
		year = parsed
	}
	month := int(today.Month())
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return handler.respondError(c, invalidRequest("month", "validation.month.range", "Month must be between 1 and 12"))
		}
		month = parsed
	}

	calendar, err := handler.calendarService.Month(c.UserContext(), user.ID, year, month, today)
	if err != nil {
		return handler.respondError(c, err)
	}

	return handler.respondOK(c, fiber.Map{
		"year":        calendar.Year,
		"month":       int(calendar.Month),
		"days":        newCalendarDayResponses(calendar.Days),
		"predictions": newProjectedPeriodResponses(calendar.Predictions),
	})
}

func (handler *Handler) CalendarRange(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))
	if start == "" || end == "" {
		return handler.respondError(c, invalidRequest("start", "validation.year_month.invalid", "Both start and end are required (YYYY-MM)"))
	}

	calendarRange, err := handler.calendarService.Range(c.UserContext(), user.ID, start, end)
	if err != nil {
		return handler.respondError(c, err)
	}

	return handler.respondOK(c, fiber.Map{
		"start_date": services.FormatCalendarDate(calendarRange.StartDate),
		"end_date":   services.FormatCalendarDate(calendarRange.EndDate),
		"cycles":     newCycleRecordResponses(calendarRange.Cycles),
		"mood_logs":  newMoodLogResponses(calendarRange.MoodLogs),
	})
}
