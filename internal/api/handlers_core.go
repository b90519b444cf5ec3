package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"languages": handler.i18n.SupportedLanguages(),
	})
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return handler.respondError(c, errRouteNotFound)
}
