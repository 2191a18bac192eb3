package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"infinite-experiment/logbook/internal/aggregate"
	"infinite-experiment/logbook/internal/flighttime"
	"infinite-experiment/logbook/internal/ingestion"
	"infinite-experiment/logbook/internal/models"
	"infinite-experiment/logbook/internal/schema"
)

// storedDocument is a metrics document as it may exist in storage or come
// from an upstream system: pilots and flights are loose objects.
type storedDocument struct {
	GeneratedAt string            `json:"generatedAt"`
	UpdatedAt   string            `json:"updatedAt"`
	Source      models.SourceInfo `json:"source"`
	Summary     *storedSummary    `json:"summary"`
	Pilots      []storedPilot     `json:"pilots"`
	Issues      []models.Issue    `json:"issues"`
}

type storedSummary struct {
	TotalFlights *float64 `json:"totalFlights"`
	TotalHours   *float64 `json:"totalHours"`
}

type storedPilot struct {
	models.PilotIdentity

	TotalFlights      *float64 `json:"totalFlights"`
	TotalHours        *float64 `json:"totalHours"`
	DayHours          *float64 `json:"dayHours"`
	NightHours        *float64 `json:"nightHours"`
	PICHours          *float64 `json:"picHours"`
	SICHours          *float64 `json:"sicHours"`
	IFRHours          *float64 `json:"ifrHours"`
	DualHours         *float64 `json:"dualHours"`
	CrossCountryHours *float64 `json:"crossCountryHours"`
	SoloHours         *float64 `json:"soloHours"`
	InstructorHours   *float64 `json:"instructorHours"`
	SimulatorHours    *float64 `json:"simulatorHours"`

	AircraftTypes  []string               `json:"aircraftTypes"`
	LastFlightDate string                 `json:"lastFlightDate"`
	Certifications []models.Certification `json:"certifications"`
	Flights        []map[string]any       `json:"flights"`
}

// Revalidate reads a previously produced (or externally supplied) document,
// runs every flight back through the row normalizer and rebuilds the derived
// sections against now. Explicit pilot totals and an explicit summary are
// trusted over recomputation. The result has passed schema.ValidateDocument.
func Revalidate(data []byte, now time.Time) (models.MetricsDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var stored storedDocument
	if err := dec.Decode(&stored); err != nil {
		return models.MetricsDocument{}, fmt.Errorf("decode metrics document: %w", err)
	}

	pilots := make([]models.PilotRecord, 0, len(stored.Pilots))
	for _, sp := range stored.Pilots {
		pilots = append(pilots, sp.record())
	}
	aggregate.SortPilots(pilots)

	doc := Build(pilots, Input{
		Now:       now,
		SourceURL: stored.Source.URL,
		Rows:      stored.Source.Rows,
		Issues:    stored.Issues,
		Summary:   stored.Summary.summary(),
	})
	if isTimestamp(stored.GeneratedAt) {
		doc.GeneratedAt = stored.GeneratedAt
	}
	if isTimestamp(stored.UpdatedAt) {
		doc.UpdatedAt = stored.UpdatedAt
	}

	if err := schema.ValidateDocument(&doc); err != nil {
		return models.MetricsDocument{}, err
	}
	return doc, nil
}

func isTimestamp(value string) bool {
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

// summary is usable only when both fields are present and the flight count is
// a whole number.
func (s *storedSummary) summary() *models.Summary {
	if s == nil || s.TotalFlights == nil || s.TotalHours == nil {
		return nil
	}
	flights := *s.TotalFlights
	if flights != math.Trunc(flights) {
		return nil
	}
	return &models.Summary{TotalFlights: int(flights), TotalHours: flighttime.FromNumber(*s.TotalHours)}
}

func (sp storedPilot) record() models.PilotRecord {
	identity := sp.PilotIdentity
	identity.Name = strings.TrimSpace(identity.Name)
	if identity.ID == "" {
		identity.ID = aggregate.Slugify(identity.Name)
	}

	flights := make([]models.Flight, 0, len(sp.Flights))
	for _, raw := range sp.Flights {
		flights = append(flights, normalizeStoredFlight(raw))
	}

	rec := aggregate.Record(identity, flights, sp.Certifications)

	if sp.TotalFlights != nil {
		rec.TotalFlights = int(*sp.TotalFlights)
	}
	trust(&rec.TotalHours, sp.TotalHours)
	trust(&rec.DayHours, sp.DayHours)
	trust(&rec.NightHours, sp.NightHours)
	trust(&rec.PICHours, sp.PICHours)
	trust(&rec.SICHours, sp.SICHours)
	trust(&rec.IFRHours, sp.IFRHours)
	trust(&rec.DualHours, sp.DualHours)
	trust(&rec.CrossCountryHours, sp.CrossCountryHours)
	trust(&rec.SoloHours, sp.SoloHours)
	trust(&rec.InstructorHours, sp.InstructorHours)
	trust(&rec.SimulatorHours, sp.SimulatorHours)

	if sp.AircraftTypes != nil {
		rec.AircraftTypes = append([]string{}, sp.AircraftTypes...)
	}
	if v := strings.TrimSpace(sp.LastFlightDate); v != "" {
		rec.LastFlightDate = flighttime.ToISODate(v)
	}
	return rec
}

func trust(dst *float64, explicit *float64) {
	if explicit != nil {
		*dst = flighttime.FromNumber(*explicit)
	}
}

// normalizeStoredFlight maps a loose flight object onto row cells so the same
// header rules and parsers apply as for CSV input. Keys are visited in sorted
// order to make first-non-empty-wins deterministic.
func normalizeStoredFlight(raw map[string]any) models.Flight {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := ingestion.RawRow{Fields: make([]ingestion.RawField, 0, len(keys))}
	var categories []string
	var extra map[string]string
	for _, k := range keys {
		switch k {
		case "categories":
			categories = stringList(raw[k])
			continue
		case "extra":
			extra = stringMap(raw[k])
			continue
		case "night":
			// the document stores the night flag as a boolean
			if b, ok := raw[k].(bool); ok {
				row.Fields = append(row.Fields, ingestion.RawField{Header: ingestion.KeyNightFlag, Value: fmt.Sprint(b)})
			}
			continue
		}
		if value, ok := cellText(raw[k]); ok {
			row.Fields = append(row.Fields, ingestion.RawField{Header: k, Value: value})
		}
	}

	flight := ingestion.NormalizeFlight(ingestion.Canonicalize(row))
	if categories != nil {
		flight.Categories = categories
	}
	for k, v := range extra {
		if flight.Extra == nil {
			flight.Extra = make(map[string]string, len(extra))
		}
		flight.Extra[k] = v
	}
	return flight
}

func cellText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return fmt.Sprint(t), true
	}
	return "", false
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringMap(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, item := range obj {
		if s, ok := cellText(item); ok {
			out[k] = s
		}
	}
	return out
}
