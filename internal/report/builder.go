// Package report turns finalized pilot records into the published metrics
// document: headline summary, fleet totals, rolling windows, per-aircraft and
// per-month breakdowns and recency.
package report

import (
	"math"
	"slices"
	"strings"
	"time"

	"infinite-experiment/logbook/internal/flighttime"
	"infinite-experiment/logbook/internal/models"
)

// UnknownAircraft labels flights that name no aircraft in ByAircraft.
const UnknownAircraft = "Unknown"

// Rolling window lengths in days, inclusive of the boundary day.
const (
	window7  = 7
	window30 = 30
	window90 = 90
)

// Input is everything besides the pilots that goes into a document.
type Input struct {
	Now       time.Time
	SourceURL string
	Rows      models.RowCounts
	Issues    []models.Issue

	// Summary is an aggregate that came with the upstream data. When it is
	// usable it is published as is instead of being recomputed.
	Summary *models.Summary
}

// Build assembles the metrics document. Pilots are expected in display-name
// order (aggregate.Finalize produces them that way) and are deep-copied.
func Build(pilots []models.PilotRecord, in Input) models.MetricsDocument {
	now := in.Now.UTC()
	stamp := now.Format(time.RFC3339)

	doc := models.MetricsDocument{
		GeneratedAt: stamp,
		UpdatedAt:   stamp,
		Source:      models.SourceInfo{URL: in.SourceURL, Rows: in.Rows},
		ByAircraft:  make(map[string]models.AircraftTotals),
		ByMonth:     []models.MonthTotals{},
		Pilots:      make([]models.PilotRecord, 0, len(pilots)),
	}
	for _, p := range pilots {
		doc.Pilots = append(doc.Pilots, p.Clone())
	}

	if validSummary(in.Summary) {
		doc.Summary = *in.Summary
	} else {
		doc.Summary = summarize(doc.Pilots)
	}

	months := make(map[string]*models.MonthTotals)
	for _, p := range doc.Pilots {
		for _, f := range p.Flights {
			addTotals(&doc.Totals, f)
			addRolling(&doc.RollingTotals, f, now)
			addAircraft(doc.ByAircraft, f)
			addMonth(months, f)
		}
	}
	for _, m := range months {
		doc.ByMonth = append(doc.ByMonth, *m)
	}
	slices.SortFunc(doc.ByMonth, func(a, b models.MonthTotals) int {
		return strings.Compare(a.Month, b.Month)
	})

	doc.Recency = recency(doc.Pilots, now)

	if len(in.Issues) > 0 {
		doc.Issues = make([]models.Issue, len(in.Issues))
		for i, issue := range in.Issues {
			doc.Issues[i] = models.Issue{RowNumber: issue.RowNumber, Errors: slices.Clone(issue.Errors)}
		}
	}
	return doc
}

func validSummary(s *models.Summary) bool {
	if s == nil {
		return false
	}
	if s.TotalFlights < 0 || s.TotalHours < 0 {
		return false
	}
	return !math.IsNaN(s.TotalHours) && !math.IsInf(s.TotalHours, 0)
}

func summarize(pilots []models.PilotRecord) models.Summary {
	var s models.Summary
	for _, p := range pilots {
		s.TotalFlights += p.TotalFlights
		s.TotalHours = flighttime.AddRounded(s.TotalHours, p.TotalHours)
	}
	return s
}

func addTotals(t *models.Totals, f models.Flight) {
	t.Flights++
	t.TotalHours = flighttime.AddRounded(t.TotalHours, f.Hours)
	t.PICHours = flighttime.AddRounded(t.PICHours, f.PICTime)
	t.SICHours = flighttime.AddRounded(t.SICHours, f.SICTime)
	t.DualHours = flighttime.AddRounded(t.DualHours, f.DualReceived)
	t.NightHours = flighttime.AddRounded(t.NightHours, f.NightTime)
	t.IFRHours = flighttime.AddRounded(t.IFRHours, f.IFRTime)
	if f.ApproachCount != nil {
		t.Approaches += *f.ApproachCount
	}
	t.DayLandings += f.LandingsDay
	t.NightLandings += f.LandingsNight
}

// addRolling counts a flight in every window whose start it falls on or after.
// Undated and future flights count in none.
func addRolling(r *models.RollingTotals, f models.Flight, now time.Time) {
	date, ok := flighttime.ParseISODate(f.Date)
	if !ok {
		return
	}
	age := flighttime.DaysBetween(date, now)
	if age < 0 {
		return
	}
	if age <= window7 {
		r.Last7Days = flighttime.AddRounded(r.Last7Days, f.Hours)
	}
	if age <= window30 {
		r.Last30Days = flighttime.AddRounded(r.Last30Days, f.Hours)
	}
	if age <= window90 {
		r.Last90Days = flighttime.AddRounded(r.Last90Days, f.Hours)
	}
}

func addAircraft(byAircraft map[string]models.AircraftTotals, f models.Flight) {
	label := strings.TrimSpace(f.Aircraft)
	if label == "" {
		label = UnknownAircraft
	}
	t := byAircraft[label]
	t.Flights++
	t.Hours = flighttime.AddRounded(t.Hours, f.Hours)
	t.PICHours = flighttime.AddRounded(t.PICHours, f.PICTime)
	t.NightHours = flighttime.AddRounded(t.NightHours, f.NightTime)
	byAircraft[label] = t
}

func addMonth(months map[string]*models.MonthTotals, f models.Flight) {
	if !flighttime.IsISODate(f.Date) {
		return
	}
	key := f.Date[:7]
	m, ok := months[key]
	if !ok {
		m = &models.MonthTotals{Month: key}
		months[key] = m
	}
	m.Flights++
	m.Hours = flighttime.AddRounded(m.Hours, f.Hours)
}

// recency looks at every flight date and every pilot's lastFlightDate, so a
// document whose pilots carry explicit dates still reports them.
func recency(pilots []models.PilotRecord, now time.Time) models.Recency {
	var dates []string
	for _, p := range pilots {
		dates = append(dates, p.LastFlightDate)
		for _, f := range p.Flights {
			dates = append(dates, f.Date)
		}
	}

	latest, ok := flighttime.SafeMaxDate(dates)
	if !ok {
		return models.Recency{Stale: true}
	}
	parsed, _ := flighttime.ParseISODate(latest)
	days := flighttime.DaysBetween(parsed, now)
	return models.Recency{
		LatestFlightDate:    &latest,
		DaysSinceLastFlight: &days,
		Stale:               days >= 1,
	}
}
