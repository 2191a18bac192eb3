package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/logbook/internal/schema"
)

const exportHeader = "Pilot Full Name,License Number,Flight Date,Aircraft Make/Model,Aircraft Registration," +
	"Route From (ICAO),Route To (ICAO),Total Flight Time (HH:MM),PIC Time (HH:MM),SIC Time (HH:MM)," +
	"Night Time (HH:MM),IFR Time (HH:MM),Aircraft Single Engine,Aircraft Multi Engine,Remarks"

func csvText(lines ...string) string {
	return strings.Join(append([]string{exportHeader}, lines...), "\n") + "\n"
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Pilot Full Name":                   KeyPilotName,
		"  pilot_name ":                     KeyPilotName,
		"Total Flight Time (HH:MM)":         KeyHours,
		"Total":                             KeyHours,
		"License Number":                    KeyLicenseNumber,
		"Flight Date":                       KeyDate,
		"Aircraft Make/Model":               KeyAircraft,
		"Aircraft Registration":             KeyAircraftReg,
		"aircraftReg":                       KeyAircraftReg,
		"Aircraft Multi Engine":             KeyCategoryMulti,
		"Aircraft Ultralight Non-Motorized": KeyCategoryUltralightNM,
		"Route From (ICAO)":                 KeyOrigin,
		"Route To (ICAO)":                   KeyDestination,
		"PIC Time (HH:MM)":                  KeyPICTime,
		"SIC Time (HH:MM)":                  KeySICTime,
		"Night Time (HH:MM)":                KeyNightTime,
		"Night":                             KeyNightTime,
		"Night Landings":                    KeyLandingsNight,
		"Landings (Day)":                    KeyLandingsDay,
		"Night Flight":                      KeyNightFlag,
		"Day Time (HH:MM)":                  KeyDayTime,
		"IFR Time (HH:MM)":                  KeyIFRTime,
		"Simulated Instrument":              KeyIFRTime,
		"Instrument Approaches":             KeyApproachCount,
		"Approaches":                        KeyApproachCount,
		"Simulator Device/Type":             KeySimulatorType,
		"Simulator Time (HH:MM)":            KeySimulatorTime,
		"Cross Country Time (HH:MM)":        KeyCrossCountryTime,
		"Certification Issue Date":          KeyCertificationIssueDate,
		"Issued By":                         KeyCertificationIssuedBy,
		"Role":                              KeyRole,
		"Flight Rules":                      KeyRules,
		"Notes":                             KeyRemarks,
		"Fuel Burn (gal)":                   "fuelburngal",
		"???":                               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "header %q", in)
	}
}

func TestReadCSVStringHandlesBOMAndBlankLines(t *testing.T) {
	text := "\uFEFF" + "Name,Hours\n\nJane Doe, 1:30 \n,\nJohn Roe,2\n"
	rows, err := ReadCSVString(text)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []RawField{{Header: "Name", Value: "Jane Doe"}, {Header: "Hours", Value: "1:30"}}, rows[0].Fields)
	assert.Equal(t, 1, rows[1].Index)
}

func TestReadCSVStringEmpty(t *testing.T) {
	for _, text := range []string{"", "\uFEFF", "Name,Hours\n", "Name,Hours\n\n,\n"} {
		_, err := ReadCSVString(text)
		assert.ErrorIs(t, err, ErrEmptySource, "input %q", text)
	}
}

func TestParseFlightsDerivesRoleAndRules(t *testing.T) {
	res, err := ParseFlights(csvText("Jane Doe,A-1,4/12/2024,C172,N123,KSFO,KOAK,1.2,1.2,,,,yes,,checkride"), DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, res.Issues)
	require.Len(t, res.Entries, 1)

	f := res.Entries[0].Flight
	assert.Equal(t, "PIC", f.Role)
	assert.Equal(t, "VFR", f.Rules)
	assert.False(t, f.Night)
	assert.Equal(t, "2024-04-12", f.Date)
	assert.Equal(t, "KSFO -> KOAK", f.Route)
	assert.Equal(t, 1.2, f.Hours)
	assert.Equal(t, []string{"Single"}, f.Categories)
	assert.Equal(t, "checkride", f.Remarks)
	assert.Equal(t, "A-1", res.Entries[0].Pilot.LicenseNumber)
}

func TestParseFlightsRejectsNegativeTotal(t *testing.T) {
	res, err := ParseFlights(csvText(
		"Jane Doe,,2024-01-01,C172,N123,KSFO,KOAK,1:00,1:00,,,,,,",
		"Jane Doe,,2024-01-02,C172,N123,KSFO,KOAK,-1,,,,,,,",
	), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.ValidRows)
	assert.Equal(t, 1, res.InvalidRows)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, 3, res.Issues[0].RowNumber)
	assert.Contains(t, res.Issues[0].Errors, schema.MsgNegative)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 1.0, res.Entries[0].Flight.Hours)
}

func TestParseFlightsStrictMessages(t *testing.T) {
	res, err := ParseFlights(csvText(
		"Jane Doe,,someday,,,,,abc,,,,,,,",
		"Jane Doe,,2024-01-02,C172,,KSFO,KOAK,1.0,0.8,0.5,,,,,",
	), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Issues, 2)

	first := res.Issues[0]
	assert.Equal(t, 2, first.RowNumber)
	assert.Contains(t, first.Errors, schema.MsgInvalidDate)
	assert.Contains(t, first.Errors, schema.MsgAircraftRequired)
	assert.Contains(t, first.Errors, schema.MsgOriginRequired)
	assert.Contains(t, first.Errors, schema.MsgDestRequired)
	assert.Contains(t, first.Errors, schema.MsgNotNumeric)

	assert.Equal(t, []string{schema.MsgTotalBelowRoles}, res.Issues[1].Errors)
}

func TestParseFlightsLenientKeepsRawDate(t *testing.T) {
	res, err := ParseFlights(csvText("Jane Doe,,someday,,,,,0:45,,,,,,,"), Options{})
	require.NoError(t, err)
	require.Empty(t, res.Issues)
	require.Len(t, res.Entries, 1)

	f := res.Entries[0].Flight
	assert.Equal(t, "", f.Date)
	assert.Equal(t, "someday", f.Extra[ExtraRawDate])
	assert.Equal(t, 0.75, f.Hours)
}

func TestParseFlightsSkipsRowsWithoutPilot(t *testing.T) {
	res, err := ParseFlights(csvText(
		" ,,2024-01-01,C172,,KSFO,KOAK,1.0,,,,,,,",
		"Jane Doe,,2024-01-01,C172,,KSFO,KOAK,1.0,,,,,,,",
	), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedRows)
	assert.Equal(t, 1, res.ValidRows)
	assert.Empty(t, res.Issues)
}

func TestNormalizeRowExplicitFieldsWin(t *testing.T) {
	text := "Pilot,Date,Aircraft,Route,Hours,PIC,IFR,Night,Night Flight,Rules,Role\n" +
		"Jane Doe,2024-05-01,B737,EGLL-LFPG,2:00,2:00,1:00,0:30,no,vfr,sic\n"
	res, err := ParseFlights(text, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	f := res.Entries[0].Flight
	assert.Equal(t, "SIC", f.Role)
	assert.Equal(t, "VFR", f.Rules)
	assert.False(t, f.Night, "explicit flag beats night time")
	assert.Equal(t, "EGLL-LFPG", f.Route)
	assert.Equal(t, 0.5, f.NightTime)
}

func TestNormalizeRowDerivesIFRAndNight(t *testing.T) {
	text := "Pilot,Date,Aircraft,From,Hours,SIC,IFR,Night\n" +
		"Jane Doe,2024-05-01,B737,EGLL,2.5,2.5,0:30,1\n"
	res, err := ParseFlights(text, Options{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	f := res.Entries[0].Flight
	assert.Equal(t, "SIC", f.Role)
	assert.Equal(t, "IFR", f.Rules)
	assert.True(t, f.Night)
	assert.Equal(t, "EGLL", f.Route)
}

func TestUnknownColumns(t *testing.T) {
	text := "Pilot,Date,Aircraft,Route,Hours,Fuel Burn\n" +
		"Jane Doe,2024-05-01,C172,KSFO-KOAK,1.0,8\n"

	res, err := ParseFlights(text, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "8", res.Entries[0].Flight.Extra["fuelburn"])

	res, err = ParseFlights(text, Options{StrictValidation: true, StrictColumns: true})
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, []string{"Unknown column: Fuel Burn"}, res.Issues[0].Errors)
}

func TestCanonicalizeFirstNonEmptyWins(t *testing.T) {
	row := RawRow{Fields: []RawField{
		{Header: "Aircraft Type", Value: ""},
		{Header: "Aircraft Model", Value: "C172"},
		{Header: "Aircraft", Value: "PA-28"},
	}}
	assert.Equal(t, "C172", Canonicalize(row).Get(KeyAircraft))
}

func TestCertificationColumns(t *testing.T) {
	text := "Pilot,Date,Aircraft,Route,Hours,Certification Type,Issued By,Certification Issue Date\n" +
		"Jane Doe,2024-05-01,C172,KSFO-KOAK,1.0,Medical Class 1,CAA,3/1/2024\n"
	res, err := ParseFlights(text, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	cert := res.Entries[0].Certification
	require.NotNil(t, cert)
	assert.Equal(t, "Medical Class 1", cert.Type)
	assert.Equal(t, "CAA", cert.IssuedBy)
	assert.Equal(t, "2024-03-01", cert.IssueDate)
}
