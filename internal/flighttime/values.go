package flighttime

import (
	"strconv"
	"strings"
)

// ParseFlag treats true/1/yes/y (any case) as set; everything else is unset.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

// ParseInt reads the leading decimal digits of value. The boolean is false when
// the value is empty or has no leading digits, so callers can tell "absent"
// from zero.
func ParseInt(value string) (int, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}

	end := 0
	if trimmed[0] == '-' || trimmed[0] == '+' {
		end = 1
	}
	digitsStart := end
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
