package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/models"
	"github.com/terraincognita07/flowcast/internal/services"
)

const (
	contextUserKey     = "current_user"
	contextLanguageKey = "current_language"
	bearerPrefix       = "bearer "
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok && user != nil
}

func currentLanguage(c *fiber.Ctx) string {
	language, _ := c.Locals(contextLanguageKey).(string)
	return language
}

func (handler *Handler) LanguageMiddleware(c *fiber.Ctx) error {
	c.Locals(contextLanguageKey, handler.i18n.DetectFromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage)))
	return c.Next()
}

// AuthRequired resolves the Bearer access token to a user.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return handler.respondError(c, errInvalidToken)
	}

	userID, err := handler.parseToken(strings.TrimSpace(header[len(bearerPrefix):]), tokenTypeAccess)
	if err != nil {
		return handler.respondError(c, err)
	}

	user, err := handler.authService.FindByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return handler.respondError(c, &apiError{status: fiber.StatusUnauthorized, code: codeUserNotFound})
		}
		return handler.respondError(c, err)
	}

	c.Locals(contextUserKey, &user)
	return c.Next()
}

func (handler *Handler) OnboardingRequired(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.respondError(c, errInvalidToken)
	}
	if !user.OnboardingCompleted {
		return handler.respondError(c, errOnboardingRequired)
	}
	return c.Next()
}
