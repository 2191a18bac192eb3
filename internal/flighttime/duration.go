package flighttime

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned by ParseDurationStrict when the value is neither
// an H:MM clock value nor a decimal number.
var ErrInvalidDuration = errors.New("invalid duration")

var (
	decimalPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	clockPattern   = regexp.MustCompile(`^(-?)(\d{1,3})(?::(\d{1,2}))?$`)
)

// ParseDuration converts a logbook time cell to decimal hours.
// Invalid or empty input yields 0.
func ParseDuration(value string) float64 {
	hours, err := ParseDurationStrict(value)
	if err != nil {
		return 0
	}
	return hours
}

// ParseDurationStrict accepts H:MM (optionally negative as a whole) or a plain
// decimal. Empty input is 0 with no error.
func ParseDurationStrict(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}

	numeric := strings.ReplaceAll(trimmed, ",", "")
	if decimalPattern.MatchString(numeric) {
		parsed, err := strconv.ParseFloat(numeric, 64)
		if err != nil {
			return 0, ErrInvalidDuration
		}
		return Round2(parsed), nil
	}

	match := clockPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return 0, ErrInvalidDuration
	}

	hours, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, ErrInvalidDuration
	}
	minutes := 0
	if match[3] != "" {
		if minutes, err = strconv.Atoi(match[3]); err != nil {
			return 0, ErrInvalidDuration
		}
	}

	total := float64(hours) + float64(minutes)/60
	if match[1] == "-" {
		total = -total
	}
	return Round2(total), nil
}

// FromNumber normalizes a native numeric duration. Non-finite values are 0.
func FromNumber(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return Round2(value)
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// AddRounded adds two running totals and rounds the result.
func AddRounded(total, delta float64) float64 {
	return Round2(total + delta)
}
