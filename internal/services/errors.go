package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ClassifyTimeout promotes context deadline errors to the timeout marker so
// that a stage aborted by a per-job budget reports a timeout cause.
func ClassifyTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// ErrorDetails is the user-facing decomposition of a stage error.
type ErrorDetails struct {
	Marker  error
	Message string
}

// Details extracts the sentinel marker and the human-readable remainder of a
// wrapped stage error. Errors that carry no marker report ErrTransient.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	marker := ErrTransient
	for _, candidate := range []error{ErrExternalTool, ErrValidation, ErrConfiguration, ErrNotFound, ErrTimeout} {
		if errors.Is(err, candidate) {
			marker = candidate
			break
		}
	}
	message := strings.TrimSpace(err.Error())
	prefix := marker.Error() + ": "
	message = strings.TrimPrefix(message, prefix)
	return ErrorDetails{Marker: marker, Message: message}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
