package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

type moodLogRequest struct {
	LogDate       string   `json:"log_date"`
	Mood          *string  `json:"mood"`
	EnergyLevel   *int     `json:"energy_level"`
	Symptoms      []string `json:"symptoms"`
	FlowIntensity string   `json:"flow_intensity"`
	Notes         string   `json:"notes"`
	IsPrivate     *bool    `json:"is_private"`
}

func (handler *Handler) SaveMood(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request moodLogRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	logDate, err := parseDateField("log_date", request.LogDate)
	if err != nil {
		return handler.respondError(c, err)
	}

	entry, created, err := handler.moodService.Save(c.UserContext(), user.ID, services.MoodInput{
		LogDate:       logDate,
		Mood:          request.Mood,
		EnergyLevel:   request.EnergyLevel,
		Symptoms:      request.Symptoms,
		FlowIntensity: request.FlowIntensity,
		Notes:         request.Notes,
		IsPrivate:     request.IsPrivate,
	}, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}

	messageKey := "success.mood_updated"
	if created {
		messageKey = "success.mood_created"
	}
	return handler.respond(c, fiber.StatusCreated, messageKey, fiber.Map{"log": newMoodLogResponse(entry)})
}

// ListMood uses the date range when both bounds are given and the most
// recent logs otherwise.
func (handler *Handler) ListMood(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	startRaw, endRaw := c.Query("start_date"), c.Query("end_date")
	from, err := parseOptionalDate("start_date", &startRaw)
	if err != nil {
		return handler.respondError(c, err)
	}
	to, err := parseOptionalDate("end_date", &endRaw)
	if err != nil {
		return handler.respondError(c, err)
	}
	limit, err := queryInt(c, "limit", services.DefaultMoodLogLimit)
	if err != nil {
		return handler.respondError(c, err)
	}

	logs, err := handler.moodService.List(c.UserContext(), user.ID, services.MoodQuery{From: from, To: to, Limit: limit})
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respondOK(c, fiber.Map{
		"logs":  newMoodLogResponses(logs),
		"count": len(logs),
	})
}

func (handler *Handler) MoodStats(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	days, err := queryInt(c, "days", services.DefaultStatsDays)
	if err != nil {
		return handler.respondError(c, err)
	}
	stats, err := handler.moodService.Stats(c.UserContext(), user.ID, days, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}

	commonSymptoms := make([]symptomCountResponse, 0, len(stats.CommonSymptoms))
	for _, symptom := range stats.CommonSymptoms {
		commonSymptoms = append(commonSymptoms, symptomCountResponse{Symptom: symptom.Symptom, Count: symptom.Count})
	}
	moodBreakdown := stats.MoodBreakdown
	if moodBreakdown == nil {
		moodBreakdown = map[string]int{}
	}

	return handler.respondOK(c, fiber.Map{
		"period_days":     stats.PeriodDays,
		"total_logs":      stats.TotalLogs,
		"mood_breakdown":  moodBreakdown,
		"avg_energy":      stats.AvgEnergy,
		"common_symptoms": commonSymptoms,
	})
}

func (handler *Handler) MoodByDate(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	day, err := parseDateField("date", c.Params("date"))
	if err != nil {
		return handler.respondError(c, err)
	}
	entry, err := handler.moodService.ByDate(c.UserContext(), user.ID, day)
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respondOK(c, fiber.Map{"log": newMoodLogResponse(entry)})
}

func (handler *Handler) DeleteMood(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	if err := handler.moodService.Delete(c.UserContext(), user.ID, c.Params("logId")); err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.mood_deleted", nil)
}
