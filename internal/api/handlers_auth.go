package api

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/models"
	"github.com/terraincognita07/flowcast/internal/services"
)

type registerRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FirstName      string  `json:"first_name"`
	DateOfBirth    *string `json:"date_of_birth"`
	AvgCycleLength *int    `json:"avg_cycle_length"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type onboardingRequest struct {
	AvgCycleLength int     `json:"avg_cycle_length"`
	LastPeriodDate *string `json:"last_period_date"`
}

type authPayload struct {
	User userResponse `json:"user"`
	tokenPair
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	var request registerRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	dateOfBirth, err := parseOptionalDate("date_of_birth", request.DateOfBirth)
	if err != nil {
		return handler.respondError(c, err)
	}

	user, err := handler.authService.Register(c.UserContext(), services.RegisterInput{
		Email:          request.Email,
		Password:       request.Password,
		FirstName:      request.FirstName,
		DateOfBirth:    dateOfBirth,
		AvgCycleLength: request.AvgCycleLength,
	}, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}

	payload, err := handler.authPayload(user)
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusCreated, "success.registered", payload)
}

// Login counts failed attempts per client address and refuses further tries
// with a Retry-After header once the throttle is exhausted.
func (handler *Handler) Login(c *fiber.Ctx) error {
	client := clientKey(c)
	now := handler.now()
	if wait := handler.loginThrottle.retryAfter(client, now); wait > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return handler.respondError(c, errTooManyAttempts)
	}

	var request loginRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}

	user, err := handler.authService.Authenticate(c.UserContext(), request.Email, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginThrottle.fail(client, now)
		}
		return handler.respondError(c, err)
	}
	handler.loginThrottle.clear(client)

	payload, err := handler.authPayload(user)
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.logged_in", payload)
}

func (handler *Handler) Refresh(c *fiber.Ctx) error {
	var request refreshRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	if request.RefreshToken == "" {
		return handler.respondError(c, invalidRequest("refresh_token", "validation.required", "refresh_token is required"))
	}

	userID, err := handler.parseToken(request.RefreshToken, tokenTypeRefresh)
	if err != nil {
		return handler.respondError(c, err)
	}
	if _, err := handler.authService.FindByID(c.UserContext(), userID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return handler.respondError(c, errInvalidToken)
		}
		return handler.respondError(c, err)
	}

	tokens, err := handler.issueTokenPair(userID)
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.token_refreshed", tokens)
}

func (handler *Handler) CompleteOnboarding(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request onboardingRequest
	if err := bindJSON(c, &request); err != nil {
		return handler.respondError(c, err)
	}
	lastPeriodDate, err := parseOptionalDate("last_period_date", request.LastPeriodDate)
	if err != nil {
		return handler.respondError(c, err)
	}

	updated, err := handler.authService.CompleteOnboarding(c.UserContext(), user.ID, services.OnboardingInput{
		AvgCycleLength: request.AvgCycleLength,
		LastPeriodDate: lastPeriodDate,
	}, handler.today())
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusOK, "success.onboarding_completed", fiber.Map{
		"onboarding_completed": true,
		"user":                 newUserResponse(updated),
	})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	return handler.respondOK(c, fiber.Map{"user": newUserResponse(*user)})
}

func (handler *Handler) authPayload(user models.User) (authPayload, error) {
	tokens, err := handler.issueTokenPair(user.ID)
	if err != nil {
		return authPayload{}, err
	}
	return authPayload{User: newUserResponse(user), tokenPair: tokens}, nil
}
