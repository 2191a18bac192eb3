package models

import "slices"

// Flight is one normalized logbook entry.
type Flight struct {
	Date        string  `json:"date" validate:"omitempty,isodate"`
	Aircraft    string  `json:"aircraft,omitempty"`
	AircraftReg string  `json:"aircraftReg,omitempty"`
	Route       string  `json:"route,omitempty"`
	Hours       float64 `json:"hours" validate:"gte=0"`
	Role        string  `json:"role,omitempty" validate:"omitempty,oneof=PIC SIC"`
	Rules       string  `json:"rules,omitempty" validate:"omitempty,oneof=IFR VFR"`
	Night       bool    `json:"night"`

	FlightNumber     string   `json:"flightNumber,omitempty"`
	ApproachType     string   `json:"approachType,omitempty"`
	ApproachCount    *int     `json:"approachCount,omitempty" validate:"omitempty,gte=0"`
	SimulatorType    string   `json:"simulatorType,omitempty"`
	SimulatorTime    float64  `json:"simulatorTime,omitempty" validate:"gte=0"`
	CrossCountryTime float64  `json:"crossCountryTime,omitempty" validate:"gte=0"`
	SoloTime         float64  `json:"soloTime,omitempty" validate:"gte=0"`
	PICTime          float64  `json:"picTime,omitempty" validate:"gte=0"`
	SICTime          float64  `json:"sicTime,omitempty" validate:"gte=0"`
	DualReceived     float64  `json:"dualReceived,omitempty" validate:"gte=0"`
	InstructorTime   float64  `json:"instructorTime,omitempty" validate:"gte=0"`
	DayTime          float64  `json:"dayTime,omitempty" validate:"gte=0"`
	NightTime        float64  `json:"nightTime,omitempty" validate:"gte=0"`
	IFRTime          float64  `json:"ifrTime,omitempty" validate:"gte=0"`
	LandingsDay      int      `json:"landingsDay,omitempty" validate:"gte=0"`
	LandingsNight    int      `json:"landingsNight,omitempty" validate:"gte=0"`
	Remarks          string   `json:"remarks,omitempty"`
	Categories       []string `json:"categories,omitempty"`

	// Extra carries columns that did not map to a known field.
	Extra map[string]string `json:"extra,omitempty"`
}

// Certification is a rating or endorsement listed alongside a pilot's flights.
type Certification struct {
	Type        string `json:"type" validate:"required"`
	IssuedBy    string `json:"issuedBy,omitempty"`
	IssueDate   string `json:"issueDate,omitempty"`
	ValidUntil  string `json:"validUntil,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// PilotIdentity is the descriptive part of a pilot record.
type PilotIdentity struct {
	ID                string `json:"id" validate:"required"`
	Name              string `json:"name" validate:"required"`
	LicenseNumber     string `json:"licenseNumber,omitempty"`
	Nationality       string `json:"nationality,omitempty"`
	DateOfBirth       string `json:"dateOfBirth,omitempty"`
	LicenseType       string `json:"licenseType,omitempty"`
	IssuingAuthority  string `json:"issuingAuthority,omitempty"`
	LicenseIssueDate  string `json:"licenseIssueDate,omitempty"`
	LicenseExpiryDate string `json:"licenseExpiryDate,omitempty"`
}

// PilotRecord is a finalized per-pilot aggregate.
type PilotRecord struct {
	PilotIdentity

	TotalFlights      int             `json:"totalFlights" validate:"gte=0"`
	TotalHours        float64         `json:"totalHours" validate:"gte=0"`
	DayHours          float64         `json:"dayHours" validate:"gte=0"`
	NightHours        float64         `json:"nightHours" validate:"gte=0"`
	PICHours          float64         `json:"picHours" validate:"gte=0"`
	SICHours          float64         `json:"sicHours" validate:"gte=0"`
	IFRHours          float64         `json:"ifrHours" validate:"gte=0"`
	DualHours         float64         `json:"dualHours" validate:"gte=0"`
	CrossCountryHours float64         `json:"crossCountryHours" validate:"gte=0"`
	SoloHours         float64         `json:"soloHours" validate:"gte=0"`
	InstructorHours   float64         `json:"instructorHours" validate:"gte=0"`
	SimulatorHours    float64         `json:"simulatorHours" validate:"gte=0"`
	AircraftTypes     []string        `json:"aircraftTypes"`
	Categories        []string        `json:"categories,omitempty"`
	LastFlightDate    string          `json:"lastFlightDate,omitempty" validate:"omitempty,isodate"`
	Certifications    []Certification `json:"certifications,omitempty" validate:"dive"`
	Flights           []Flight        `json:"flights" validate:"dive"`
}

// Summary is the fleet-wide headline.
type Summary struct {
	TotalFlights int     `json:"totalFlights" validate:"gte=0"`
	TotalHours   float64 `json:"totalHours" validate:"gte=0"`
}

// Totals sums every hour bucket over all accepted flights.
type Totals struct {
	Flights       int     `json:"flights" validate:"gte=0"`
	TotalHours    float64 `json:"totalHours" validate:"gte=0"`
	PICHours      float64 `json:"picHours" validate:"gte=0"`
	SICHours      float64 `json:"sicHours" validate:"gte=0"`
	DualHours     float64 `json:"dualHours" validate:"gte=0"`
	NightHours    float64 `json:"nightHours" validate:"gte=0"`
	IFRHours      float64 `json:"ifrHours" validate:"gte=0"`
	Approaches    int     `json:"approaches" validate:"gte=0"`
	DayLandings   int     `json:"dayLandings" validate:"gte=0"`
	NightLandings int     `json:"nightLandings" validate:"gte=0"`
}

// RollingTotals are trailing-window hour sums measured from the build time.
type RollingTotals struct {
	Last7Days  float64 `json:"last7Days" validate:"gte=0"`
	Last30Days float64 `json:"last30Days" validate:"gte=0"`
	Last90Days float64 `json:"last90Days" validate:"gte=0"`
}

// AircraftTotals groups flights flown on one aircraft label.
type AircraftTotals struct {
	Flights    int     `json:"flights" validate:"gte=0"`
	Hours      float64 `json:"hours" validate:"gte=0"`
	PICHours   float64 `json:"picHours" validate:"gte=0"`
	NightHours float64 `json:"nightHours" validate:"gte=0"`
}

// MonthTotals groups flights by UTC calendar month (YYYY-MM).
type MonthTotals struct {
	Month   string  `json:"month" validate:"required,yearmonth"`
	Flights int     `json:"flights" validate:"gte=0"`
	Hours   float64 `json:"hours" validate:"gte=0"`
}

// Recency describes how current the logbook is.
type Recency struct {
	LatestFlightDate    *string `json:"latestFlightDate" validate:"omitempty,isodate"`
	DaysSinceLastFlight *int    `json:"daysSinceLastFlight"`
	Stale               bool    `json:"stale"`
}

// RowCounts reports what happened to the source rows.
type RowCounts struct {
	Total   int `json:"total" validate:"gte=0"`
	Valid   int `json:"valid" validate:"gte=0"`
	Invalid int `json:"invalid" validate:"gte=0"`
	Skipped int `json:"skipped" validate:"gte=0"`
}

// SourceInfo identifies where a document's rows came from.
type SourceInfo struct {
	URL  string    `json:"url,omitempty"`
	Rows RowCounts `json:"rows"`
}

// Issue is a rejected source row. RowNumber is 1-based and counts the header.
type Issue struct {
	RowNumber int      `json:"rowNumber" validate:"gte=2"`
	Errors    []string `json:"errors" validate:"min=1,dive,required"`
}

// MetricsDocument is the published aggregate consumed by the dashboard.
type MetricsDocument struct {
	GeneratedAt   string                    `json:"generatedAt" validate:"required,rfc3339"`
	UpdatedAt     string                    `json:"updatedAt" validate:"required,rfc3339"`
	Source        SourceInfo                `json:"source"`
	Summary       Summary                   `json:"summary"`
	Totals        Totals                    `json:"totals"`
	Recency       Recency                   `json:"recency"`
	RollingTotals RollingTotals             `json:"rollingTotals"`
	ByAircraft    map[string]AircraftTotals `json:"byAircraft" validate:"dive"`
	ByMonth       []MonthTotals             `json:"byMonth" validate:"dive"`
	Pilots        []PilotRecord             `json:"pilots" validate:"dive"`
	Issues        []Issue                   `json:"issues,omitempty" validate:"dive"`
}

// Clone returns a deep copy so the caller can hand the document to storage or
// the UI without sharing slices or maps.
func (d MetricsDocument) Clone() MetricsDocument {
	out := d
	if d.Recency.LatestFlightDate != nil {
		v := *d.Recency.LatestFlightDate
		out.Recency.LatestFlightDate = &v
	}
	if d.Recency.DaysSinceLastFlight != nil {
		v := *d.Recency.DaysSinceLastFlight
		out.Recency.DaysSinceLastFlight = &v
	}
	if d.ByAircraft != nil {
		out.ByAircraft = make(map[string]AircraftTotals, len(d.ByAircraft))
		for k, v := range d.ByAircraft {
			out.ByAircraft[k] = v
		}
	}
	out.ByMonth = slices.Clone(d.ByMonth)
	out.Pilots = make([]PilotRecord, len(d.Pilots))
	for i, p := range d.Pilots {
		out.Pilots[i] = p.Clone()
	}
	if d.Issues != nil {
		out.Issues = make([]Issue, len(d.Issues))
		for i, issue := range d.Issues {
			out.Issues[i] = Issue{RowNumber: issue.RowNumber, Errors: slices.Clone(issue.Errors)}
		}
	}
	return out
}

// Clone deep-copies a pilot record.
func (p PilotRecord) Clone() PilotRecord {
	out := p
	out.AircraftTypes = slices.Clone(p.AircraftTypes)
	out.Categories = slices.Clone(p.Categories)
	out.Certifications = slices.Clone(p.Certifications)
	out.Flights = make([]Flight, len(p.Flights))
	for i, f := range p.Flights {
		out.Flights[i] = f.Clone()
	}
	return out
}

// Clone deep-copies a flight.
func (f Flight) Clone() Flight {
	out := f
	if f.ApproachCount != nil {
		v := *f.ApproachCount
		out.ApproachCount = &v
	}
	out.Categories = slices.Clone(f.Categories)
	if f.Extra != nil {
		out.Extra = make(map[string]string, len(f.Extra))
		for k, v := range f.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Find returns the pilot with the given id.
func (d *MetricsDocument) Find(pilotID string) (*PilotRecord, bool) {
	for i := range d.Pilots {
		if d.Pilots[i].ID == pilotID {
			return &d.Pilots[i], true
		}
	}
	return nil, false
}

// LogbookEntry is one accepted source row: who flew, what they flew and any
// certification listed on the same line.
type LogbookEntry struct {
	Pilot         PilotIdentity
	Certification *Certification
	Flight        Flight
}
