package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/flowcast/internal/config"
	"github.com/terraincognita07/flowcast/internal/db"
	"github.com/terraincognita07/flowcast/internal/logging"
	"github.com/terraincognita07/flowcast/internal/models"
	"github.com/terraincognita07/flowcast/internal/security"
	"github.com/terraincognita07/flowcast/internal/services"
)

const temporaryPasswordLength = 16

var errResetUsage = errors.New("usage: flowcast reset-password <email> [--generate]")

type PasswordResetter interface {
	ResetPassword(ctx context.Context, email string, password string) (models.User, error)
}

type ResetPasswordInput struct {
	Email    string
	Generate bool
}

// ParseResetPasswordArgs accepts the email and the --generate flag in any order.
func ParseResetPasswordArgs(args []string) (ResetPasswordInput, error) {
	var input ResetPasswordInput
	for _, arg := range args {
		switch {
		case arg == "--generate" || arg == "-generate":
			input.Generate = true
		case strings.HasPrefix(arg, "-"):
			return ResetPasswordInput{}, fmt.Errorf("unknown flag %s: %w", arg, errResetUsage)
		case input.Email != "":
			return ResetPasswordInput{}, errResetUsage
		default:
			input.Email = strings.TrimSpace(arg)
		}
	}
	if input.Email == "" {
		return ResetPasswordInput{}, errResetUsage
	}
	return input, nil
}

// RunResetPasswordCommand is the entry point of `flowcast reset-password`.
// Only the database settings are read from the environment.
func RunResetPasswordCommand(ctx context.Context, args []string, stdin *os.File, stdout io.Writer) error {
	input, err := ParseResetPasswordArgs(args)
	if err != nil {
		return err
	}

	databaseConfig, err := config.DatabaseOnly()
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, "warn", "text")
	if err != nil {
		return err
	}
	database, err := db.Open(ctx, databaseConfig, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	repositories := db.NewRepositories(database)
	auth := services.NewAuthService(repositories.Users, nil)
	return ResetPassword(ctx, auth, input, TerminalPrompt(stdin, stdout), stdout)
}

func ResetPassword(ctx context.Context, resetter PasswordResetter, input ResetPasswordInput, prompt PasswordPrompt, stdout io.Writer) error {
	password, err := resolveNewPassword(input.Generate, prompt)
	if err != nil {
		return err
	}

	user, err := resetter.ResetPassword(ctx, input.Email, password)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return fmt.Errorf("user %s not found", input.Email)
		case errors.As(err, &validationErr):
			return validationErr
		}
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(stdout, "Password reset for %s\n", user.Email)
	if input.Generate {
		fmt.Fprintf(stdout, "Temporary password: %s\n", password)
	}
	return nil
}

func resolveNewPassword(generate bool, prompt PasswordPrompt) (string, error) {
	if generate {
		return generateTemporaryPassword(temporaryPasswordLength)
	}
	if prompt == nil {
		return "", errors.New("password prompt unavailable")
	}

	first, err := prompt("New password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	second, err := prompt("Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func generateTemporaryPassword(length int) (string, error) {
	if length < services.MinPasswordLength {
		length = services.MinPasswordLength
	}
	password, err := security.TemporaryPassword(length, services.ValidatePasswordStrength)
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	return password, nil
}
