package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

type profileRequest struct {
	FirstName      *string `json:"first_name"`
	DateOfBirth    *string `json:"date_of_birth"`
	AvgCycleLength *int    `json:"avg_cycle_length"`
}

func (handler *Handler) UpdateProfile(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request profileRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	dateOfBirth, err := parseOptionalDate("date_of_birth", request.DateOfBirth)
	if err != nil {
		return handler.respondError(c, err)
	}

	updated, err := handler.userService.UpdateProfile(c.UserContext(), user.ID, services.ProfileUpdate{
		FirstName:      request.FirstName,
		DateOfBirth:    dateOfBirth,
		AvgCycleLength: request.AvgCycleLength,
	}, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.profile_updated", fiber.Map{"user": newUserResponse(updated)})
}

func (handler *Handler) UserStats(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	stats, err := handler.userService.Stats(c.UserContext(), user.ID, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respondOK(c, fiber.Map{
		"total_cycles":    stats.TotalCycles,
		"total_mood_logs": stats.TotalMoodLogs,
		"current_streak":  stats.CurrentStreak,
		"member_since":    stats.MemberSince,
	})
}
