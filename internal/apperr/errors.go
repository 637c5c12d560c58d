package apperr

import (
	"errors"
	"fmt"
)

// Error kinds shared across layers. Repositories and services wrap these so
// controllers and the task processor can branch on the kind without knowing
// which layer produced the failure.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("resource not found")
	ErrConfiguration = errors.New("configuration error")
	ErrProvider      = errors.New("provider error")
)

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Configurationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Message strips the kind prefix added by the helpers above, leaving the
// human-readable part suitable for task error columns and API payloads.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConfiguration, ErrProvider} {
		if errors.Is(err, kind) {
			prefix := kind.Error() + ": "
			msg := err.Error()
			if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
				return msg[len(prefix):]
			}
		}
	}
	return err.Error()
}
