// Package flighttime holds the pure value parsers used when reading logbook
// exports: H:MM and decimal durations, loosely formatted dates, yes/no flags and
// counts, plus the two-decimal rounding and UTC day arithmetic the aggregates
// rely on.
package flighttime
