package ingestion

// Canonical field keys produced by NormalizeHeader.
const (
	KeyPilotName         = "pilotName"
	KeyLicenseNumber     = "licenseNumber"
	KeyLicenseType       = "licenseType"
	KeyLicenseIssueDate  = "licenseIssueDate"
	KeyLicenseExpiryDate = "licenseExpiryDate"
	KeyIssuingAuthority  = "issuingAuthority"
	KeyNationality       = "nationality"
	KeyDateOfBirth       = "dateOfBirth"

	KeyCertificationType        = "certificationType"
	KeyCertificationIssuedBy    = "certificationIssuedBy"
	KeyCertificationIssueDate   = "certificationIssueDate"
	KeyCertificationValidUntil  = "certificationValidUntil"
	KeyCertificationDescription = "certificationDescription"
	KeyCertificationStatus      = "certificationStatus"

	KeyDate          = "date"
	KeyAircraft      = "aircraft"
	KeyAircraftReg   = "aircraftReg"
	KeyOrigin        = "origin"
	KeyDestination   = "destination"
	KeyRoute         = "route"
	KeyFlightNumber  = "flightNumber"
	KeyRemarks       = "remarks"
	KeyRole          = "role"
	KeyRules         = "rules"
	KeyNightFlag     = "nightFlag"
	KeyApproachType  = "approachType"
	KeyApproachCount = "approachCount"
	KeySimulatorType = "simulatorType"

	KeyHours            = "hours"
	KeyDayTime          = "dayTime"
	KeyNightTime        = "nightTime"
	KeyIFRTime          = "ifrTime"
	KeyPICTime          = "picTime"
	KeySICTime          = "sicTime"
	KeyDualReceived     = "dualReceived"
	KeyInstructorTime   = "instructorTime"
	KeyCrossCountryTime = "crossCountryTime"
	KeySoloTime         = "soloTime"
	KeySimulatorTime    = "simulatorTime"
	KeyLandingsDay      = "landingsDay"
	KeyLandingsNight    = "landingsNight"

	KeyCategoryLSA          = "categoryLSA"
	KeyCategorySingle       = "categorySingleEngine"
	KeyCategoryMulti        = "categoryMultiEngine"
	KeyCategoryTurboprop    = "categoryTurboprop"
	KeyCategoryTurbojet     = "categoryTurbojet"
	KeyCategoryHelicopter   = "categoryHelicopter"
	KeyCategoryGlider       = "categoryGlider"
	KeyCategoryUltralightM  = "categoryUltralightMotorized"
	KeyCategoryUltralightNM = "categoryUltralightNonMotorized"
)

// categoryFlags maps the aircraft class yes/no columns to the labels a flight
// carries, in display order.
var categoryFlags = []struct {
	key   string
	label string
}{
	{KeyCategoryLSA, "LSA"},
	{KeyCategorySingle, "Single"},
	{KeyCategoryMulti, "Multi"},
	{KeyCategoryTurboprop, "Turboprop"},
	{KeyCategoryTurbojet, "Turbojet"},
	{KeyCategoryHelicopter, "Helicopter"},
	{KeyCategoryGlider, "Glider"},
	{KeyCategoryUltralightM, "Ultralight M"},
	{KeyCategoryUltralightNM, "Ultralight NM"},
}

// Fields is a row after header normalization. Values holds the first non-empty
// cell per canonical key; Unknown keeps unrecognized columns that had a value.
type Fields struct {
	Values  map[string]string
	Unknown []RawField
}

// Get returns the value for a canonical key, or "".
func (f Fields) Get(key string) string {
	return f.Values[key]
}

// Canonicalize runs NormalizeHeader over every column of row.
func Canonicalize(row RawRow) Fields {
	out := Fields{Values: make(map[string]string, len(row.Fields))}
	for _, field := range row.Fields {
		key := NormalizeHeader(field.Header)
		if key == "" {
			continue
		}
		if !IsCanonical(key) {
			if field.Value != "" {
				out.Unknown = append(out.Unknown, field)
			}
			continue
		}
		if out.Values[key] == "" {
			out.Values[key] = field.Value
		}
	}
	return out
}
