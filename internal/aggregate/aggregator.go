// Package aggregate folds normalized logbook entries into per-pilot records.
package aggregate

import (
	"slices"
	"strings"

	"infinite-experiment/logbook/internal/flighttime"
	"infinite-experiment/logbook/internal/models"
)

// Aggregator groups entries by pilot id for a single run. Pilots live in an
// arena slice and the index maps id to position, so an id always resolves to
// exactly one accumulator. It is not safe for concurrent use.
type Aggregator struct {
	index  map[string]int
	pilots []*accumulator
}

type certKey struct {
	kind, issuedBy, issueDate string
}

type accumulator struct {
	identity       models.PilotIdentity
	totalHours     float64
	lastFlightDate string
	aircraft       map[string]struct{}
	names          []string
	licenses       []string
	certSeen       map[certKey]struct{}
	certs          []models.Certification
	flights        []models.Flight
}

// Collision describes one pilot id that several distinct people may share.
type Collision struct {
	ID             string
	Names          []string
	LicenseNumbers []string
}

func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[string]int)}
}

// Add folds one entry in. It returns false, and changes nothing, when the
// entry's pilot name slugs to nothing.
func (a *Aggregator) Add(entry models.LogbookEntry) bool {
	name := strings.TrimSpace(entry.Pilot.Name)
	id := Slugify(name)
	if id == "" {
		return false
	}

	pos, ok := a.index[id]
	if !ok {
		pos = len(a.pilots)
		a.index[id] = pos
		a.pilots = append(a.pilots, newAccumulator(models.PilotIdentity{ID: id, Name: name}))
	}

	a.pilots[pos].add(name, entry)
	return true
}

func newAccumulator(identity models.PilotIdentity) *accumulator {
	return &accumulator{
		identity: identity,
		aircraft: make(map[string]struct{}),
		certSeen: make(map[certKey]struct{}),
	}
}

// Record finalizes one pilot whose flights are already grouped, keeping the
// identity (id included) exactly as given.
func Record(identity models.PilotIdentity, flights []models.Flight, certs []models.Certification) models.PilotRecord {
	acc := newAccumulator(identity)
	for _, f := range flights {
		acc.add(identity.Name, models.LogbookEntry{Flight: f})
	}
	for _, c := range certs {
		acc.addCertification(c)
	}
	return acc.finalize()
}

// Len is the number of distinct pilots seen so far.
func (a *Aggregator) Len() int {
	return len(a.pilots)
}

func (acc *accumulator) add(name string, entry models.LogbookEntry) {
	acc.names = appendUnique(acc.names, name)
	acc.mergeIdentity(entry.Pilot)

	flight := entry.Flight
	acc.totalHours = flighttime.AddRounded(acc.totalHours, flight.Hours)
	if flighttime.IsISODate(flight.Date) && flight.Date > acc.lastFlightDate {
		acc.lastFlightDate = flight.Date
	}
	if label := strings.TrimSpace(flight.Aircraft); label != "" {
		acc.aircraft[label] = struct{}{}
	}
	acc.flights = append(acc.flights, flight)

	if entry.Certification != nil {
		acc.addCertification(*entry.Certification)
	}
}

func (acc *accumulator) addCertification(cert models.Certification) {
	if strings.TrimSpace(cert.Type) == "" {
		return
	}
	key := certKey{kind: cert.Type, issuedBy: cert.IssuedBy, issueDate: cert.IssueDate}
	if _, seen := acc.certSeen[key]; !seen {
		acc.certSeen[key] = struct{}{}
		acc.certs = append(acc.certs, cert)
	}
}

// mergeIdentity applies last-non-empty-wins to the descriptive fields. The
// display name is fixed by the first row.
func (acc *accumulator) mergeIdentity(in models.PilotIdentity) {
	id := &acc.identity
	if v := strings.TrimSpace(in.LicenseNumber); v != "" {
		id.LicenseNumber = v
		acc.licenses = appendUnique(acc.licenses, v)
	}
	setIfPresent(&id.Nationality, in.Nationality)
	setIfPresent(&id.DateOfBirth, in.DateOfBirth)
	setIfPresent(&id.LicenseType, in.LicenseType)
	setIfPresent(&id.IssuingAuthority, in.IssuingAuthority)
	setIfPresent(&id.LicenseIssueDate, in.LicenseIssueDate)
	setIfPresent(&id.LicenseExpiryDate, in.LicenseExpiryDate)
}

func setIfPresent(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func appendUnique(values []string, v string) []string {
	if slices.Contains(values, v) {
		return values
	}
	return append(values, v)
}

// Finalize freezes every accumulator into a PilotRecord, sorted by name.
// Flights keep their source order.
func (a *Aggregator) Finalize() []models.PilotRecord {
	out := make([]models.PilotRecord, 0, len(a.pilots))
	for _, acc := range a.pilots {
		out = append(out, acc.finalize())
	}
	SortPilots(out)
	return out
}

func (acc *accumulator) finalize() models.PilotRecord {
	rec := models.PilotRecord{
		PilotIdentity:  acc.identity,
		TotalFlights:   len(acc.flights),
		TotalHours:     acc.totalHours,
		LastFlightDate: acc.lastFlightDate,
		AircraftTypes:  make([]string, 0, len(acc.aircraft)),
		Flights:        make([]models.Flight, 0, len(acc.flights)),
	}

	categories := make(map[string]struct{})
	for _, f := range acc.flights {
		rec.DayHours = flighttime.AddRounded(rec.DayHours, f.DayTime)
		rec.NightHours = flighttime.AddRounded(rec.NightHours, f.NightTime)
		rec.PICHours = flighttime.AddRounded(rec.PICHours, f.PICTime)
		rec.SICHours = flighttime.AddRounded(rec.SICHours, f.SICTime)
		rec.IFRHours = flighttime.AddRounded(rec.IFRHours, f.IFRTime)
		rec.DualHours = flighttime.AddRounded(rec.DualHours, f.DualReceived)
		rec.CrossCountryHours = flighttime.AddRounded(rec.CrossCountryHours, f.CrossCountryTime)
		rec.SoloHours = flighttime.AddRounded(rec.SoloHours, f.SoloTime)
		rec.InstructorHours = flighttime.AddRounded(rec.InstructorHours, f.InstructorTime)
		rec.SimulatorHours = flighttime.AddRounded(rec.SimulatorHours, f.SimulatorTime)
		for _, c := range f.Categories {
			categories[c] = struct{}{}
		}
		rec.Flights = append(rec.Flights, f.Clone())
	}

	for label := range acc.aircraft {
		rec.AircraftTypes = append(rec.AircraftTypes, label)
	}
	slices.Sort(rec.AircraftTypes)

	if len(categories) > 0 {
		for c := range categories {
			rec.Categories = append(rec.Categories, c)
		}
		slices.Sort(rec.Categories)
	}

	if len(acc.certs) > 0 {
		rec.Certifications = slices.Clone(acc.certs)
	}
	return rec
}

// Collisions lists ids that were fed more than one distinct display name or
// license number. Identity is by slug only, so these pilots were merged.
func (a *Aggregator) Collisions() []Collision {
	var out []Collision
	for _, acc := range a.pilots {
		if len(acc.names) < 2 && len(acc.licenses) < 2 {
			continue
		}
		out = append(out, Collision{
			ID:             acc.identity.ID,
			Names:          slices.Clone(acc.names),
			LicenseNumbers: slices.Clone(acc.licenses),
		})
	}
	slices.SortFunc(out, func(x, y Collision) int {
		return strings.Compare(x.ID, y.ID)
	})
	return out
}
