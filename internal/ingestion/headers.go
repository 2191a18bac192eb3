package ingestion

import (
	"strings"
	"unicode"
)

type headerRule struct {
	key      string
	exact    []string
	prefixes []string // decorated headers such as "PIC Time (HH:MM)"
}

func (r headerRule) matches(compact string) bool {
	for _, e := range r.exact {
		if compact == e {
			return true
		}
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(compact, p) {
			return true
		}
	}
	return false
}

// headerRules is evaluated top to bottom and the first match wins. Order is
// load bearing: "Night Landings" and "Night Flight" must be claimed before the
// broad "night" prefix of the night time rule sees them.
var headerRules = []headerRule{
	{key: KeyPilotName, exact: []string{"pilotfullname", "pilotname", "pilot", "name", "fullname"}},
	{key: KeyLicenseNumber, exact: []string{"licensenumber", "licencenumber", "licenseno", "licenceno", "license", "licence"}},
	{key: KeyLicenseType, exact: []string{"licensetype", "licencetype"}},
	{key: KeyLicenseIssueDate, exact: []string{"licenseissuedate", "licenceissuedate", "licenseissued"}},
	{key: KeyLicenseExpiryDate, exact: []string{"licenseexpirydate", "licenceexpirydate", "licenseexpirationdate", "licenseexpiry", "licenceexpiry"}},
	{key: KeyIssuingAuthority, exact: []string{"issuingauthority", "licenseauthority", "authority"}},
	{key: KeyNationality, exact: []string{"nationality", "citizenship"}},
	{key: KeyDateOfBirth, exact: []string{"dateofbirth", "dob", "birthdate"}},

	{key: KeyCertificationIssueDate, exact: []string{"certificationissuedate", "certissuedate"}},
	{key: KeyCertificationValidUntil, exact: []string{"certificationvaliduntil", "certificationexpiry", "certificationexpirydate", "certvaliduntil"}},
	{key: KeyCertificationIssuedBy, exact: []string{"issuedby", "certificationissuedby", "certissuedby"}},
	{key: KeyCertificationDescription, exact: []string{"certificationdescription", "certdescription"}},
	{key: KeyCertificationStatus, exact: []string{"certificationstatus", "certstatus"}},
	{key: KeyCertificationType, exact: []string{"certificationtype", "certtype", "certification", "rating"}},

	{key: KeyDate, exact: []string{"date", "flightdate", "dateofflight", "departuredate"}},
	{key: KeyAircraftReg, exact: []string{"aircraftregistration", "aircraftreg", "registration", "reg", "tail", "tailnumber", "tailno"}},

	{key: KeyCategoryLSA, exact: []string{"aircraftlsa", "lsa"}},
	{key: KeyCategorySingle, exact: []string{"aircraftsingleengine", "singleengine"}},
	{key: KeyCategoryMulti, exact: []string{"aircraftmultiengine", "multiengine"}},
	{key: KeyCategoryTurboprop, exact: []string{"aircraftturboprop", "turboprop"}},
	{key: KeyCategoryTurbojet, exact: []string{"aircraftturbojet", "turbojet"}},
	{key: KeyCategoryHelicopter, exact: []string{"aircrafthelicopter", "helicopter"}},
	{key: KeyCategoryGlider, exact: []string{"aircraftglider", "glider"}},
	{key: KeyCategoryUltralightM, exact: []string{"aircraftultralightmotorized", "ultralightmotorized"}},
	{key: KeyCategoryUltralightNM, exact: []string{"aircraftultralightnonmotorized", "ultralightnonmotorized"}},

	{key: KeySimulatorType, exact: []string{"simulatortype", "simulatordevicetype", "simulatordevice", "simtype"}},
	{key: KeyAircraft, exact: []string{"aircraft", "aircraftmakemodel", "aircraftmodel", "aircrafttype", "makemodel", "model", "type"}},
	{key: KeyOrigin, exact: []string{"routefromicao", "routefrom", "from", "fromicao", "origin", "dep", "departure", "departureairport"}},
	{key: KeyDestination, exact: []string{"routetoicao", "routeto", "to", "toicao", "destination", "arr", "arrival", "arrivalairport"}},
	{key: KeyRoute, exact: []string{"route"}},

	{key: KeySimulatorTime, exact: []string{"simulator", "sim"}, prefixes: []string{"simulatortime", "simtime"}},
	{key: KeyCrossCountryTime, exact: []string{"xc", "xctime"}, prefixes: []string{"crosscountry"}},
	{key: KeySoloTime, prefixes: []string{"solo"}},
	{key: KeyPICTime, exact: []string{"pic", "command", "pilotincommand"}, prefixes: []string{"pictime", "pichours"}},
	{key: KeySICTime, exact: []string{"sic", "copilot", "secondincommand"}, prefixes: []string{"sictime", "sichours"}},
	{key: KeyDualReceived, exact: []string{"dual", "instruction", "dualtime"}, prefixes: []string{"dualreceived"}},
	{key: KeyInstructorTime, exact: []string{"instructor", "cfi"}, prefixes: []string{"instructortime"}},
	{key: KeyLandingsNight, exact: []string{"landingsnight", "nightlandings", "nightldg"}},
	{key: KeyLandingsDay, exact: []string{"landingsday", "daylandings", "landings", "dayldg"}},
	{key: KeyDayTime, prefixes: []string{"day"}},
	{key: KeyNightFlag, exact: []string{"isnight", "nightflight"}},
	{key: KeyNightTime, prefixes: []string{"night"}},
	{key: KeyIFRTime, exact: []string{"ifr", "instrument", "simulatedinstrument"}, prefixes: []string{"ifrtime", "ifrhours", "instrumenttime", "actualinstrument"}},
	{key: KeyApproachType, exact: []string{"approachtype"}},
	{key: KeyApproachCount, exact: []string{"approachcount", "approaches", "approach", "appr", "instrumentapproaches"}},
	{key: KeyHours, exact: []string{"total", "hours", "time"}, prefixes: []string{"totalflighttime", "totaltime", "totalhours", "flighttime", "blocktime", "duration"}},
	{key: KeyFlightNumber, exact: []string{"flightnumber", "flightno", "number", "callsign"}},
	{key: KeyRemarks, exact: []string{"remarks", "remark", "notes", "comments", "comment"}},
	{key: KeyRole, exact: []string{"role"}},
	{key: KeyRules, exact: []string{"rules", "flightrules"}},
}

var canonicalKeys = func() map[string]struct{} {
	keys := make(map[string]struct{}, len(headerRules))
	for _, r := range headerRules {
		keys[r.key] = struct{}{}
	}
	return keys
}()

// selfKeys lets a canonical key used as a header (as in stored documents) map
// straight back to itself before any rule is consulted.
var selfKeys = func() map[string]string {
	keys := make(map[string]string, len(canonicalKeys))
	for key := range canonicalKeys {
		keys[compactKey(key)] = key
	}
	return keys
}()

// NormalizeHeader maps a raw column name to its canonical key. Headers no rule
// recognizes come back as their compact form (lowercase, letters and digits
// only) so they can still be carried along.
func NormalizeHeader(raw string) string {
	compact := compactKey(raw)
	if compact == "" {
		return ""
	}
	if key, ok := selfKeys[compact]; ok {
		return key
	}
	for _, rule := range headerRules {
		if rule.matches(compact) {
			return rule.key
		}
	}
	return compact
}

// IsCanonical reports whether key is one NormalizeHeader can produce from a
// rule rather than from the fallback.
func IsCanonical(key string) bool {
	_, ok := canonicalKeys[key]
	return ok
}

func compactKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
