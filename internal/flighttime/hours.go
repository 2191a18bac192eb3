package flighttime

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Hours is a decimal-hour value that decodes from either a JSON number or a
// string ("1:30", "1.5"). It always encodes as a number.
type Hours float64

func (h *Hours) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*h = Hours(FromNumber(f))
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("hours must be a number or string: %w", err)
	}
	parsed, err := ParseDurationStrict(s)
	if err != nil {
		return fmt.Errorf("hours %q: %w", s, err)
	}
	*h = Hours(parsed)
	return nil
}

func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(Round2(float64(h)), 'f', -1, 64)), nil
}

// Float returns the value as a float64.
func (h Hours) Float() float64 {
	return float64(h)
}
