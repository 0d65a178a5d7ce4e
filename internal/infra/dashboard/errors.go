package dashboard

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError captures a non-2xx response from the dashboard
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dashboard: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Unauthorized reports whether the dashboard rejected the credential
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// AuthError is returned when login or token exchange cannot produce a credential,
// including after the single re-authentication retry.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "dashboard: " + e.Op + " failed"
	}
	return fmt.Sprintf("dashboard: %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err wraps a 401/403 response
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Unauthorized()
}
