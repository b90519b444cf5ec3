package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

func bindJSON(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return invalidRequest("", "validation.request.malformed", "Request body is not valid JSON")
	}
	return nil
}

func parseDateField(field string, raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, invalidRequest(field, "validation.required", field+" is required")
	}
	value, err := services.ParseCalendarDate(trimmed)
	if err != nil {
		return time.Time{}, invalidRequest(field, "validation.date.invalid", "Dates must use the YYYY-MM-DD format")
	}
	return value, nil
}

// parseOptionalDate treats a missing or blank value as absent.
func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := parseDateField(field, *raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func queryInt(c *fiber.Ctx, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, invalidRequest(name, "validation.limit.invalid", name+" must be a positive number")
	}
	return value, nil
}
