package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

type logPeriodRequest struct {
	PeriodStartDate string  `json:"period_start_date"`
	PeriodEndDate   *string `json:"period_end_date"`
	FlowIntensity   *string `json:"flow_intensity"`
	Notes           string  `json:"notes"`
}

type updatePeriodRequest struct {
	PeriodEndDate *string `json:"period_end_date"`
	FlowIntensity *string `json:"flow_intensity"`
	Notes         *string `json:"notes"`
}

func (handler *Handler) LogPeriod(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request logPeriodRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	startDate, err := parseDateField("period_start_date", request.PeriodStartDate)
	if err != nil {
		return handler.respondError(c, err)
	}
	endDate, err := parseOptionalDate("period_end_date", request.PeriodEndDate)
	if err != nil {
		return handler.respondError(c, err)
	}

	logged, err := handler.cycleService.LogPeriod(c.UserContext(), user.ID, services.PeriodInput{
		StartDate:     startDate,
		EndDate:       endDate,
		FlowIntensity: request.FlowIntensity,
		Notes:         request.Notes,
	}, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}

	return handler.respond(c, fiber.StatusCreated, "success.period_logged", fiber.Map{
		"record":      newCycleRecordResponse(logged.Record),
		"predictions": newPredictionsResponse(logged.Forecast),
	})
}

func (handler *Handler) UpdatePeriod(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request updatePeriodRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	endDate, err := parseOptionalDate("period_end_date", request.PeriodEndDate)
	if err != nil {
		return handler.respondError(c, err)
	}

	record, err := handler.cycleService.UpdatePeriod(c.UserContext(), user.ID, c.Params("recordId"), services.PeriodUpdate{
		EndDate:       endDate,
		FlowIntensity: request.FlowIntensity,
		Notes:         request.Notes,
	}, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.period_updated", fiber.Map{
		"record": newCycleRecordResponse(record),
	})
}

func (handler *Handler) DeletePeriod(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	if err := handler.cycleService.DeletePeriod(c.UserContext(), user.ID, c.Params("recordId")); err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.period_deleted", nil)
}

func (handler *Handler) Predictions(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	overview, err := handler.cycleService.Overview(c.UserContext(), user.ID, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}
	if !overview.HasData {
		return handler.respondOK(c, fiber.Map{"has_data": false})
	}

	return handler.respondOK(c, fiber.Map{
		"has_data":      true,
		"current_cycle": newCurrentCycleResponse(overview.Current),
		"predictions":   newPredictionsResponse(overview.Forecast),
	})
}

func (handler *Handler) History(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	limit, err := queryInt(c, "limit", services.DefaultHistoryLimit)
	if err != nil {
		return handler.respondError(c, err)
	}
	records, err := handler.cycleService.History(c.UserContext(), user.ID, limit)
	if err != nil {
		return handler.respondError(c, err)
	}

	return handler.respondOK(c, fiber.Map{
		"cycles": newCycleRecordResponses(records),
		"count":  len(records),
	})
}
