// Package schema is the declarative contract for logbook rows and the published
// metrics document. Row checks are advisory and come back as messages; document
// checks are fatal.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"infinite-experiment/logbook/internal/flighttime"
)

var yearMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		return flighttime.IsISODate(fl.Field().String())
	})
	mustRegister(v, "calendardate", func(fl validator.FieldLevel) bool {
		return flighttime.IsISODate(flighttime.ToISODate(fl.Field().String()))
	})
	mustRegister(v, "rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "yearmonth", func(fl validator.FieldLevel) bool {
		return yearMonthPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "duration", func(fl validator.FieldLevel) bool {
		_, err := flighttime.ParseDurationStrict(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "nonnegative", func(fl validator.FieldLevel) bool {
		value, err := flighttime.ParseDurationStrict(fl.Field().String())
		if err != nil {
			// reported by the duration tag
			return true
		}
		return value >= 0
	})

	v.RegisterStructValidation(rowTotalsValidation, RowCheck{})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("schema: register %s: %v", tag, err))
	}
}

// ValidationError is returned when a metrics document breaks the contract.
// Cause holds the underlying validator.ValidationErrors when there are any.
type ValidationError struct {
	Messages []string
	Cause    error
}

func (e *ValidationError) Error() string {
	return "metrics document failed validation: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
