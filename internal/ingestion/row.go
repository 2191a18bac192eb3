package ingestion

import (
	"strings"

	"infinite-experiment/logbook/internal/flighttime"
	"infinite-experiment/logbook/internal/models"
	"infinite-experiment/logbook/internal/schema"
)

// ExtraRawDate holds a date cell that could not be read as a calendar date.
const ExtraRawDate = "rawDate"

// Options controls how strictly rows are checked.
type Options struct {
	// StrictValidation applies the full row contract (date, aircraft, route
	// endpoints, numeric cells, total vs PIC+SIC). Without it only negative
	// values reject a row.
	StrictValidation bool
	// StrictColumns rejects rows that carry values in unrecognized columns.
	StrictColumns bool
}

func DefaultOptions() Options {
	return Options{StrictValidation: true}
}

// NormalizeRow turns a canonicalized row into a logbook entry. The messages are
// the reasons the row should be rejected; ok is false when the row names no
// pilot and should be skipped outright.
func NormalizeRow(f Fields, opts Options) (models.LogbookEntry, []string, bool) {
	name := strings.TrimSpace(f.Get(KeyPilotName))
	if name == "" {
		return models.LogbookEntry{}, nil, false
	}

	check := rowCheck(f)
	var problems []string
	if opts.StrictValidation {
		problems = schema.ValidateRow(check)
	} else {
		problems = schema.ValidateRowLenient(check)
	}
	if opts.StrictColumns {
		for _, u := range f.Unknown {
			problems = append(problems, "Unknown column: "+u.Header)
		}
	}

	entry := models.LogbookEntry{
		Pilot:         identity(name, f),
		Certification: certification(f),
		Flight:        NormalizeFlight(f),
	}
	return entry, problems, true
}

func rowCheck(f Fields) schema.RowCheck {
	return schema.RowCheck{
		Date:          f.Get(KeyDate),
		Aircraft:      f.Get(KeyAircraft),
		SimulatorType: f.Get(KeySimulatorType),
		Route:         f.Get(KeyRoute),
		Origin:        f.Get(KeyOrigin),
		Destination:   f.Get(KeyDestination),
		TotalTime:     f.Get(KeyHours),
		PIC:           f.Get(KeyPICTime),
		SIC:           f.Get(KeySICTime),
		Dual:          f.Get(KeyDualReceived),
		Night:         f.Get(KeyNightTime),
		IFR:           f.Get(KeyIFRTime),
		Day:           f.Get(KeyDayTime),
		CrossCountry:  f.Get(KeyCrossCountryTime),
		Solo:          f.Get(KeySoloTime),
		Instructor:    f.Get(KeyInstructorTime),
		SimulatorTime: f.Get(KeySimulatorTime),
		Approaches:    f.Get(KeyApproachCount),
		LandingsDay:   f.Get(KeyLandingsDay),
		LandingsNight: f.Get(KeyLandingsNight),
	}
}

func identity(name string, f Fields) models.PilotIdentity {
	return models.PilotIdentity{
		Name:              name,
		LicenseNumber:     f.Get(KeyLicenseNumber),
		Nationality:       f.Get(KeyNationality),
		DateOfBirth:       flighttime.ToISODate(f.Get(KeyDateOfBirth)),
		LicenseType:       f.Get(KeyLicenseType),
		IssuingAuthority:  f.Get(KeyIssuingAuthority),
		LicenseIssueDate:  flighttime.ToISODate(f.Get(KeyLicenseIssueDate)),
		LicenseExpiryDate: flighttime.ToISODate(f.Get(KeyLicenseExpiryDate)),
	}
}

func certification(f Fields) *models.Certification {
	kind := f.Get(KeyCertificationType)
	if kind == "" {
		return nil
	}
	return &models.Certification{
		Type:        kind,
		IssuedBy:    f.Get(KeyCertificationIssuedBy),
		IssueDate:   flighttime.ToISODate(f.Get(KeyCertificationIssueDate)),
		ValidUntil:  flighttime.ToISODate(f.Get(KeyCertificationValidUntil)),
		Description: f.Get(KeyCertificationDescription),
		Status:      f.Get(KeyCertificationStatus),
	}
}

// NormalizeFlight builds the flight half of an entry. It never fails: bad
// numbers become 0 and an unreadable date is kept in Extra.
func NormalizeFlight(f Fields) models.Flight {
	flight := models.Flight{
		Aircraft:         f.Get(KeyAircraft),
		AircraftReg:      f.Get(KeyAircraftReg),
		Route:            deriveRoute(f.Get(KeyRoute), f.Get(KeyOrigin), f.Get(KeyDestination)),
		Hours:            flighttime.ParseDuration(f.Get(KeyHours)),
		FlightNumber:     f.Get(KeyFlightNumber),
		ApproachType:     f.Get(KeyApproachType),
		SimulatorType:    f.Get(KeySimulatorType),
		SimulatorTime:    flighttime.ParseDuration(f.Get(KeySimulatorTime)),
		CrossCountryTime: flighttime.ParseDuration(f.Get(KeyCrossCountryTime)),
		SoloTime:         flighttime.ParseDuration(f.Get(KeySoloTime)),
		PICTime:          flighttime.ParseDuration(f.Get(KeyPICTime)),
		SICTime:          flighttime.ParseDuration(f.Get(KeySICTime)),
		DualReceived:     flighttime.ParseDuration(f.Get(KeyDualReceived)),
		InstructorTime:   flighttime.ParseDuration(f.Get(KeyInstructorTime)),
		DayTime:          flighttime.ParseDuration(f.Get(KeyDayTime)),
		NightTime:        flighttime.ParseDuration(f.Get(KeyNightTime)),
		IFRTime:          flighttime.ParseDuration(f.Get(KeyIFRTime)),
		Remarks:          f.Get(KeyRemarks),
	}

	rawDate := f.Get(KeyDate)
	if iso := flighttime.ToISODate(rawDate); flighttime.IsISODate(iso) {
		flight.Date = iso
	} else if rawDate != "" {
		flight.Extra = map[string]string{ExtraRawDate: rawDate}
	}

	if n, ok := flighttime.ParseInt(f.Get(KeyApproachCount)); ok {
		flight.ApproachCount = &n
	}
	flight.LandingsDay, _ = flighttime.ParseInt(f.Get(KeyLandingsDay))
	flight.LandingsNight, _ = flighttime.ParseInt(f.Get(KeyLandingsNight))

	flight.Role = deriveRole(f.Get(KeyRole), flight.PICTime, flight.SICTime)
	flight.Rules = deriveRules(f.Get(KeyRules), flight.IFRTime, flight.Hours)
	if flag := f.Get(KeyNightFlag); flag != "" {
		flight.Night = flighttime.ParseFlag(flag)
	} else {
		flight.Night = flight.NightTime > 0
	}

	for _, c := range categoryFlags {
		if flighttime.ParseFlag(f.Get(c.key)) {
			flight.Categories = append(flight.Categories, c.label)
		}
	}

	for _, u := range f.Unknown {
		if flight.Extra == nil {
			flight.Extra = make(map[string]string)
		}
		key := NormalizeHeader(u.Header)
		if _, taken := flight.Extra[key]; !taken {
			flight.Extra[key] = u.Value
		}
	}
	return flight
}

// deriveRole prefers an explicit PIC/SIC cell, then whichever role bucket has
// time, PIC first.
func deriveRole(explicit string, pic, sic float64) string {
	switch strings.ToUpper(strings.TrimSpace(explicit)) {
	case "PIC":
		return "PIC"
	case "SIC":
		return "SIC"
	}
	switch {
	case pic > 0:
		return "PIC"
	case sic > 0:
		return "SIC"
	}
	return ""
}

// deriveRules prefers an explicit IFR/VFR cell. Otherwise any instrument time
// makes the flight IFR and any other logged time makes it VFR.
func deriveRules(explicit string, ifr, hours float64) string {
	switch strings.ToUpper(strings.TrimSpace(explicit)) {
	case "IFR":
		return "IFR"
	case "VFR":
		return "VFR"
	}
	switch {
	case ifr > 0:
		return "IFR"
	case hours > 0:
		return "VFR"
	}
	return ""
}

func deriveRoute(route, origin, destination string) string {
	if r := strings.TrimSpace(route); r != "" {
		return r
	}
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	switch {
	case origin != "" && destination != "":
		return origin + " -> " + destination
	case origin != "":
		return origin
	default:
		return destination
	}
}
