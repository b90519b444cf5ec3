// Package security generates operator-facing secrets such as temporary
// passwords.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// PasswordAlphabet leaves out characters that are easy to misread (0/O, 1/l/I).
const PasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

const maxPasswordDraws = 32

var (
	ErrInvalidAlphabet = errors.New("alphabet must hold 1-256 bytes")
	ErrNoAcceptable    = errors.New("no acceptable secret generated")
)

var randomSource io.Reader = rand.Reader

// RandomString draws length bytes from alphabet without modulo bias.
func RandomString(length int, alphabet string) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("negative length %d", length)
	}
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return "", ErrInvalidAlphabet
	}

	// Bytes at or above limit would favour the start of the alphabet.
	limit := 256 - 256%len(alphabet)
	out := make([]byte, 0, length)
	buf := make([]byte, length+8)
	for len(out) < length {
		if _, err := io.ReadFull(randomSource, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// TemporaryPassword draws from PasswordAlphabet until accept approves a
// candidate. accept is usually the account password policy.
func TemporaryPassword(length int, accept func(string) error) (string, error) {
	for range maxPasswordDraws {
		candidate, err := RandomString(length, PasswordAlphabet)
		if err != nil {
			return "", err
		}
		if accept == nil || accept(candidate) == nil {
			return candidate, nil
		}
	}
	return "", ErrNoAcceptable
}
