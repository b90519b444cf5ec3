package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var ErrWeakPassword = errors.New("weak password")

var passwordCharacterClasses = []struct {
	name    string
	matches func(rune) bool
}{
	{name: "an upper case letter", matches: unicode.IsUpper},
	{name: "a lower case letter", matches: unicode.IsLower},
	{name: "a digit", matches: unicode.IsDigit},
}

// ValidatePasswordStrength wraps ErrWeakPassword with the first unmet rule.
func ValidatePasswordStrength(password string) error {
	if length := utf8.RuneCountInString(password); length < MinPasswordLength || length > MaxPasswordLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrWeakPassword, MinPasswordLength, MaxPasswordLength)
	}
	for _, class := range passwordCharacterClasses {
		if !strings.ContainsFunc(password, class.matches) {
			return fmt.Errorf("%w: needs %s", ErrWeakPassword, class.name)
		}
	}
	return nil
}
