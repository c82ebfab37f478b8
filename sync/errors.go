// ABOUTME: Error kinds shared by the initiator, aggregator and receiver
// ABOUTME: The webhook maps them onto 400, 401 and 404 responses with errors.Is
package sync

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means a shared secret was missing, wrong, or belongs to an inactive link.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means a referenced workspace, link or claim does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest means required fields were missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// SecretsMatch compares a presented secret with the expected one in constant
// time. An empty expected secret never matches.
func SecretsMatch(presented, expected string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
