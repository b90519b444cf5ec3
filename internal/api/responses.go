package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) respond(c *fiber.Ctx, status int, messageKey string, data any) error {
	body := fiber.Map{"success": true}
	if messageKey != "" {
		body["message"] = handler.i18n.Translate(currentLanguage(c), messageKey)
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func (handler *Handler) respondOK(c *fiber.Ctx, data any) error {
	return handler.respond(c, fiber.StatusOK, "", data)
}
