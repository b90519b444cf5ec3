package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(ctx context.Context, email string) (bool, error)
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, bool, error)
	FindByID(ctx context.Context, userID string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateByID(ctx context.Context, userID string, updates map[string]any) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}

type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	DateOfBirth    *time.Time
	AvgCycleLength *int
}

type OnboardingInput struct {
	AvgCycleLength int
	LastPeriodDate *time.Time
}

type AuthService struct {
	users  AuthUserRepository
	cycles *CycleService
	// bcrypt cost; tests lower it.
	hashCost int
}

func NewAuthService(users AuthUserRepository, cycles *CycleService) *AuthService {
	return &AuthService{users: users, cycles: cycles, hashCost: bcrypt.DefaultCost}
}

func (service *AuthService) Register(ctx context.Context, input RegisterInput, today time.Time) (models.User, error) {
	email := NormalizeAuthEmail(input.Email)
	if email == "" {
		return models.User{}, invalidField("email", "validation.email.invalid", "Email must be a valid address")
	}
	if err := ValidatePasswordStrength(input.Password); err != nil {
		return models.User{}, invalidField("password", "validation.password.weak", "Password must be 8-128 characters with upper case, lower case and a digit")
	}
	firstName, err := normalizeFirstName(input.FirstName)
	if err != nil {
		return models.User{}, err
	}
	dateOfBirth, err := normalizeDateOfBirth(input.DateOfBirth, today)
	if err != nil {
		return models.User{}, err
	}
	avgCycleLength := models.DefaultCycleLength
	if input.AvgCycleLength != nil {
		if err := validateAvgCycleLength(*input.AvgCycleLength); err != nil {
			return models.User{}, err
		}
		avgCycleLength = *input.AvgCycleLength
	}

	exists, err := service.users.ExistsByNormalizedEmail(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return models.User{}, ErrEmailExists
	}

	passwordHash, err := service.hashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:            email,
		PasswordHash:     passwordHash,
		FirstName:        firstName,
		DateOfBirth:      dateOfBirth,
		AvgCycleLength:   avgCycleLength,
		SubscriptionTier: models.SubscriptionFree,
	}
	if err := service.users.Create(ctx, &user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return models.User{}, ErrEmailExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate reports ErrAuthCredentialsInvalid for both an unknown email
// and a wrong password.
func (service *AuthService) Authenticate(ctx context.Context, emailRaw string, password string) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, password)
	if err != nil {
		return models.User{}, err
	}

	user, found, err := service.users.FindByNormalizedEmail(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	return user, nil
}

// CompleteOnboarding stores the declared cycle length and, when given, logs
// the last period through the cycle chain. A period already logged on that
// date is kept as is.
func (service *AuthService) CompleteOnboarding(ctx context.Context, userID string, input OnboardingInput, today time.Time) (models.User, error) {
	if err := validateAvgCycleLength(input.AvgCycleLength); err != nil {
		return models.User{}, err
	}
	if input.LastPeriodDate != nil && CalendarDate(*input.LastPeriodDate).After(CalendarDate(today)) {
		return models.User{}, invalidField("last_period_date", "validation.last_period_date.future", "Last period date cannot be in the future")
	}

	if _, err := service.users.FindByID(ctx, userID); err != nil {
		return models.User{}, err
	}
	if err := service.users.UpdateByID(ctx, userID, map[string]any{
		"avg_cycle_length":     input.AvgCycleLength,
		"onboarding_completed": true,
	}); err != nil {
		return models.User{}, fmt.Errorf("complete onboarding: %w", err)
	}

	if input.LastPeriodDate != nil {
		_, err := service.cycles.LogPeriod(ctx, userID, PeriodInput{StartDate: *input.LastPeriodDate}, today)
		if err != nil && !errors.Is(err, ErrPeriodAlreadyLogged) {
			return models.User{}, err
		}
	}
	return service.users.FindByID(ctx, userID)
}

func (service *AuthService) FindByID(ctx context.Context, userID string) (models.User, error) {
	return service.users.FindByID(ctx, userID)
}

// ResetPassword replaces the password of the account registered under email.
func (service *AuthService) ResetPassword(ctx context.Context, emailRaw string, password string) (models.User, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return models.User{}, invalidField("email", "validation.email.invalid", "Email must be a valid address")
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return models.User{}, invalidField("password", "validation.password.weak", "Password must be 8-128 characters with upper case, lower case and a digit")
	}

	user, found, err := service.users.FindByNormalizedEmail(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		return models.User{}, ErrUserNotFound
	}

	passwordHash, err := service.hashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	if err := service.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return models.User{}, fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = passwordHash
	return user, nil
}

func (service *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), service.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
