package flighttime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the canonical calendar date format used throughout the documents.
const ISOLayout = "2006-01-02"

// TwoDigitYearCutoff maps two-digit years <= cutoff to 20YY and the rest to 19YY.
const TwoDigitYearCutoff = 50

var (
	isoPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	dashPattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2,4})$`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// fallbackLayouts are tried in order when none of the numeric shapes match.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon Jan 2 2006",
	time.RFC1123Z,
}

// ToISODate normalizes a date cell to YYYY-MM-DD. ISO input passes through
// untouched, unparseable input is returned unchanged and empty input yields "".
func ToISODate(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}

	if isoPattern.MatchString(value) {
		return value
	}

	if m := slashPattern.FindStringSubmatch(value); m != nil {
		return formatParts(m[1], m[2], m[3])
	}
	if m := dashPattern.FindStringSubmatch(value); m != nil {
		return formatParts(m[1], m[2], m[3])
	}

	collapsed := spacePattern.ReplaceAllString(value, " ")
	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, collapsed); err == nil {
			return parsed.UTC().Format(ISOLayout)
		}
	}

	return value
}

func formatParts(month, day, year string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if len(year) == 2 {
		yy, _ := strconv.Atoi(year)
		if yy > TwoDigitYearCutoff {
			year = "19" + year
		} else {
			year = "20" + year
		}
	}
	if len(year) < 4 {
		year = strings.Repeat("0", 4-len(year)) + year
	}
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}

// ParseISODate parses a YYYY-MM-DD string as a UTC calendar date.
func ParseISODate(value string) (time.Time, bool) {
	if !isoPattern.MatchString(value) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(ISOLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsISODate reports whether value is a real calendar date in YYYY-MM-DD form.
func IsISODate(value string) bool {
	_, ok := ParseISODate(value)
	return ok
}

// SafeMaxDate normalizes every date and returns the latest one. Values that do
// not normalize to a calendar date are ignored. The second return value is false
// when nothing usable was given.
func SafeMaxDate(dates []string) (string, bool) {
	latest := ""
	for _, date := range dates {
		if date == "" {
			continue
		}
		normalized := ToISODate(date)
		if !IsISODate(normalized) {
			continue
		}
		if normalized > latest {
			latest = normalized
		}
	}
	return latest, latest != ""
}

// UTCMidnight truncates t to 00:00 UTC of its UTC calendar day.
func UTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from `from` to `to`, both truncated to
// UTC midnight. It is negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	diff := UTCMidnight(to).Sub(UTCMidnight(from))
	return int(diff.Hours() / 24)
}
