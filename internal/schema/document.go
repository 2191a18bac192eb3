package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"infinite-experiment/logbook/internal/aggregate"
	"infinite-experiment/logbook/internal/models"
)

// ValidateDocument checks a finished metrics document before it is stored or
// served. Any failure is a *ValidationError.
func ValidateDocument(doc *models.MetricsDocument) error {
	if doc == nil {
		return &ValidationError{Messages: []string{"document is nil"}}
	}

	var messages []string
	var cause error

	if err := validate.Struct(doc); err != nil {
		cause = err
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				messages = append(messages, documentMessage(fe))
			}
		} else {
			messages = append(messages, err.Error())
		}
	}

	if !aggregate.IsSorted(doc.Pilots) {
		messages = append(messages, "pilots must be sorted by name")
	}

	seen := make(map[string]struct{}, len(doc.Pilots))
	for _, p := range doc.Pilots {
		if _, dup := seen[p.ID]; dup {
			messages = append(messages, fmt.Sprintf("duplicate pilot id %q", p.ID))
		}
		seen[p.ID] = struct{}{}
	}

	rows := doc.Source.Rows
	if rows.Total > 0 && rows.Valid+rows.Invalid+rows.Skipped > rows.Total {
		messages = append(messages, "source row counts exceed the total")
	}

	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: dedupe(messages), Cause: cause}
}

func documentMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "MetricsDocument.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "isodate":
		return field + " must be a YYYY-MM-DD date"
	case "rfc3339":
		return field + " must be an RFC 3339 timestamp"
	case "yearmonth":
		return field + " must be a YYYY-MM month"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
