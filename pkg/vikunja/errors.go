package vikunja

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized covers rejected credentials and expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for missing tasks, projects and labels.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable covers network failures and timeouts reaching the API.
	ErrUnavailable = errors.New("vikunja unavailable")
)

// APIError is a non-2xx response from the Vikunja API. It satisfies
// errors.Is for ErrUnauthorized and ErrNotFound depending on the status.
type APIError struct {
	Status  int
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vikunja: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("vikunja: HTTP %d", e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == 401 || e.Status == 403 || e.Status == 412
	case ErrNotFound:
		return e.Status == 404
	}
	return false
}
