package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"cadence/internal/logging"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogFormats returns the accepted log formats.
func ValidLogFormats() []string {
	return []string{"auto", "json", "console"}
}

// Validate checks the Config for invalid values and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyLogLevel,
			Value:   c.LogLevel,
			Message: "unknown log level",
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.LogFormat)) {
		errs = append(errs, ValidationError{
			Field:   KeyLogFormat,
			Value:   c.LogFormat,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	if c.TickDuration < 0 {
		errs = append(errs, ValidationError{
			Field:   KeyTickDuration,
			Value:   c.TickDuration,
			Message: "must not be negative",
		})
	}
	if c.HTTPAddr != "" {
		if _, _, err := net.SplitHostPort(c.HTTPAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   KeyHTTPAddr,
				Value:   c.HTTPAddr,
				Message: "must be host:port",
			})
		}
	}
	return errs
}
