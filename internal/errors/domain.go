// Package errors defines the business-rule errors surfaced to API clients.
// Each DomainError carries a stable Code; handlers map codes to HTTP
// statuses and show Message to the user.
package errors

import (
	"errors"
	"fmt"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same Code, so errors built with
// Withf still compare equal to the sentinel.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Withf returns a copy of e with a formatted message.
func (e *DomainError) Withf(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the domain code from err, or "" when err carries none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
