// Package credentials stores the tracker session token in the OS keyring.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service = "trackbit"
	account = "session"
)

var (
	// ErrNotFound is returned when no token is stored.
	ErrNotFound = errors.New("no session token in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be used.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Token returns the stored session token.
func Token() (string, error) {
	token, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, nil
}

// SetToken stores token, replacing any previous one.
func SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session token cannot be empty")
	}
	if err := keyring.Set(service, account, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token.
func DeleteToken() error {
	if err := keyring.Delete(service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

// Resolve prefers an explicit token (from the environment) over the keyring.
// A missing or unavailable keyring yields an empty token without error.
func Resolve(explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	token, err := Token()
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnavailable):
		return "", nil
	default:
		return "", err
	}
}
