package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

const (
	codeValidation          = "VALIDATION_ERROR"
	codeInvalidCredentials  = "INVALID_CREDENTIALS"
	codeEmailExists         = "EMAIL_EXISTS"
	codeInvalidToken        = "INVALID_TOKEN"
	codeTokenExpired        = "TOKEN_EXPIRED"
	codeUserNotFound        = "USER_NOT_FOUND"
	codeOnboardingRequired  = "ONBOARDING_REQUIRED"
	codeRecordNotFound      = "RECORD_NOT_FOUND"
	codeLogNotFound         = "LOG_NOT_FOUND"
	codeNoUpdates           = "NO_UPDATES"
	codePeriodAlreadyLogged = "PERIOD_ALREADY_LOGGED"
	codeCycleChainBusy      = "CYCLE_CHAIN_BUSY"
	codeTooManyAttempts     = "TOO_MANY_ATTEMPTS"
	codeArchiveUnavailable  = "ARCHIVE_UNAVAILABLE"
	codeRouteNotFound       = "ROUTE_NOT_FOUND"
	codeInternal            = "INTERNAL_ERROR"
)

// apiError is a failure that already knows its HTTP shape.
type apiError struct {
	status int
	code   string
}

func (err *apiError) Error() string {
	return strings.ToLower(err.code)
}

// messageKey follows the error.<code> naming of the locale catalogs.
func (err *apiError) messageKey() string {
	return "error." + strings.ToLower(err.code)
}

var (
	errInvalidToken       = &apiError{status: fiber.StatusUnauthorized, code: codeInvalidToken}
	errTokenExpired       = &apiError{status: fiber.StatusUnauthorized, code: codeTokenExpired}
	errOnboardingRequired = &apiError{status: fiber.StatusForbidden, code: codeOnboardingRequired}
	errTooManyAttempts    = &apiError{status: fiber.StatusTooManyRequests, code: codeTooManyAttempts}
	errRouteNotFound      = &apiError{status: fiber.StatusNotFound, code: codeRouteNotFound}
	errInternal           = &apiError{status: fiber.StatusInternalServerError, code: codeInternal}
)

var serviceErrors = []struct {
	target error
	err    *apiError
}{
	{services.ErrAuthCredentialsInvalid, &apiError{status: fiber.StatusUnauthorized, code: codeInvalidCredentials}},
	{services.ErrEmailExists, &apiError{status: fiber.StatusConflict, code: codeEmailExists}},
	{services.ErrUserNotFound, &apiError{status: fiber.StatusNotFound, code: codeUserNotFound}},
	{services.ErrRecordNotFound, &apiError{status: fiber.StatusNotFound, code: codeRecordNotFound}},
	{services.ErrMoodLogNotFound, &apiError{status: fiber.StatusNotFound, code: codeLogNotFound}},
	{services.ErrNoUpdates, &apiError{status: fiber.StatusBadRequest, code: codeNoUpdates}},
	{services.ErrPeriodAlreadyLogged, &apiError{status: fiber.StatusConflict, code: codePeriodAlreadyLogged}},
	{services.ErrCycleChainBusy, &apiError{status: fiber.StatusConflict, code: codeCycleChainBusy}},
	{services.ErrArchiveUnavailable, &apiError{status: fiber.StatusServiceUnavailable, code: codeArchiveUnavailable}},
}

func invalidRequest(field string, key string, message string) *services.ValidationError {
	return &services.ValidationError{Field: field, Key: key, Message: message}
}

// respondError writes the failure envelope for err. Unknown errors are
// logged and reported as INTERNAL_ERROR without details.
func (handler *Handler) respondError(c *fiber.Ctx, err error) error {
	language := currentLanguage(c)

	var validation *services.ValidationError
	if errors.As(err, &validation) {
		message := handler.i18n.Translate(language, validation.Key)
		if message == validation.Key && validation.Message != "" {
			message = validation.Message
		}
		body := fiber.Map{
			"success": false,
			"message": message,
			"code":    codeValidation,
		}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	var known *apiError
	if !errors.As(err, &known) {
		known = mapServiceError(err)
	}
	if known == nil {
		handler.logger.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
		known = errInternal
	}

	return c.Status(known.status).JSON(fiber.Map{
		"success": false,
		"message": handler.i18n.Translate(language, known.messageKey()),
		"code":    known.code,
	})
}

func mapServiceError(err error) *apiError {
	for _, candidate := range serviceErrors {
		if errors.Is(err, candidate.target) {
			return candidate.err
		}
	}
	return nil
}

// ErrorHandler is installed as fiber's error handler; it covers errors
// returned by middleware and panics turned into errors by recover.
func (handler *Handler) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			return handler.respondError(c, errRouteNotFound)
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
			return handler.respondError(c, invalidRequest("", "validation.request.malformed", fiberErr.Message))
		}
	}
	return handler.respondError(c, err)
}
