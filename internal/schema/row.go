package schema

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"infinite-experiment/logbook/internal/flighttime"
)

// Row-level messages. They are shown to whoever maintains the source sheet, so
// they stay in plain language.
const (
	MsgInvalidDate      = "Expected a valid date string"
	MsgAircraftRequired = "Aircraft model is required"
	MsgOriginRequired   = "Origin is required"
	MsgDestRequired     = "Destination is required"
	MsgNotNumeric       = "Expected numeric value"
	MsgNegative         = "Expected a non-negative number"
	MsgTotalBelowRoles  = "Total time cannot be less than PIC + SIC time"
)

// RowCheck is the raw-cell view of a row used for strict validation. Numeric
// cells stay as text so unparseable values can be reported.
type RowCheck struct {
	Date          string `validate:"calendardate"`
	Aircraft      string `validate:"required_without=SimulatorType"`
	SimulatorType string
	Route         string
	Origin        string `validate:"required_without_all=Route SimulatorType"`
	Destination   string `validate:"required_without_all=Route SimulatorType"`

	TotalTime     string `validate:"duration,nonnegative"`
	PIC           string `validate:"duration,nonnegative"`
	SIC           string `validate:"duration,nonnegative"`
	Dual          string `validate:"duration,nonnegative"`
	Night         string `validate:"duration,nonnegative"`
	IFR           string `validate:"duration,nonnegative"`
	Day           string `validate:"duration,nonnegative"`
	CrossCountry  string `validate:"duration,nonnegative"`
	Solo          string `validate:"duration,nonnegative"`
	Instructor    string `validate:"duration,nonnegative"`
	SimulatorTime string `validate:"duration,nonnegative"`
	Approaches    string `validate:"duration,nonnegative"`
	LandingsDay   string `validate:"duration,nonnegative"`
	LandingsNight string `validate:"duration,nonnegative"`
}

func rowTotalsValidation(sl validator.StructLevel) {
	row := sl.Current().Interface().(RowCheck)

	total, err := flighttime.ParseDurationStrict(row.TotalTime)
	if err != nil {
		return
	}
	pic, err := flighttime.ParseDurationStrict(row.PIC)
	if err != nil {
		return
	}
	sic, err := flighttime.ParseDurationStrict(row.SIC)
	if err != nil {
		return
	}

	if total < flighttime.Round2(pic+sic) {
		sl.ReportError(row.TotalTime, "TotalTime", "TotalTime", "roletotals", "")
	}
}

// ValidateRow runs the strict row contract and returns the de-duplicated
// messages in field order. A nil result means the row is acceptable.
func ValidateRow(row RowCheck) []string {
	err := validate.Struct(row)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, rowMessage(fe))
	}
	return dedupe(messages)
}

func rowMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "calendardate":
		return MsgInvalidDate
	case "duration":
		return MsgNotNumeric
	case "nonnegative":
		return MsgNegative
	case "roletotals":
		return MsgTotalBelowRoles
	case "required_without", "required_without_all":
		switch fe.Field() {
		case "Aircraft":
			return MsgAircraftRequired
		case "Origin":
			return MsgOriginRequired
		case "Destination":
			return MsgDestRequired
		}
	}
	return fe.Field() + " is invalid"
}

// ValidateRowLenient keeps only the checks that protect the aggregates: a
// negative duration or count still rejects the row.
func ValidateRowLenient(row RowCheck) []string {
	var out []string
	for _, msg := range ValidateRow(row) {
		if msg == MsgNegative {
			out = append(out, msg)
		}
	}
	return out
}
