// Package api exposes the JSON HTTP interface under /api/v1.
package api

import (
	"errors"
	"time"

	"github.com/terraincognita07/flowcast/internal/i18n"
	"github.com/terraincognita07/flowcast/internal/logging"
	"github.com/terraincognita07/flowcast/internal/services"
)

const (
	defaultAccessTokenTTL  = 7 * 24 * time.Hour
	defaultRefreshTokenTTL = 30 * 24 * time.Hour

	loginAttemptLimit  = 8
	loginAttemptWindow = 15 * time.Minute
)

type Handler struct {
	secretKey       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	location        *time.Location
	i18n            *i18n.Manager
	logger          logging.Logger
	now             func() time.Time
	loginThrottle   *loginThrottle

	authService     *services.AuthService
	cycleService    *services.CycleService
	calendarService *services.CalendarService
	moodService     *services.MoodService
	userService     *services.UserService
	exportService   *services.ExportService
}

type Options struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Location        *time.Location
	I18n            *i18n.Manager
	Logger          logging.Logger
}

func NewHandler(dependencies Dependencies, options Options) (*Handler, error) {
	if len(options.SecretKey) == 0 {
		return nil, errors.New("secret key is required")
	}
	if options.I18n == nil {
		return nil, errors.New("i18n manager is required")
	}
	if err := dependencies.validate(); err != nil {
		return nil, err
	}

	location := options.Location
	if location == nil {
		location = time.UTC
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	accessTTL := options.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := options.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	return &Handler{
		secretKey:       []byte(options.SecretKey),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		location:        location,
		i18n:            options.I18n,
		logger:          logger,
		now:             time.Now,
		loginThrottle:   newLoginThrottle(loginAttemptLimit, loginAttemptWindow),

		authService:     dependencies.Auth,
		cycleService:    dependencies.Cycles,
		calendarService: dependencies.Calendar,
		moodService:     dependencies.Moods,
		userService:     dependencies.Users,
		exportService:   dependencies.Export,
	}, nil
}

// today is the calendar day in the configured location.
func (handler *Handler) today() time.Time {
	return services.DateAtLocation(handler.now(), handler.location)
}
