// Package export renders a metrics document as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"infinite-experiment/logbook/internal/models"
)

// Sheet names, in workbook order.
const (
	SheetSummary  = "Summary"
	SheetPilots   = "Pilots"
	SheetFlights  = "Flights"
	SheetAircraft = "Aircraft"
	SheetMonths   = "Months"
	SheetIssues   = "Issues"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheetWriter struct {
	f      *excelize.File
	header int
}

// Workbook writes doc to an in-memory XLSX file.
func Workbook(doc *models.MetricsDocument) (*bytes.Buffer, error) {
	if doc == nil {
		return nil, fmt.Errorf("export: nil document")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	w := &sheetWriter{f: f, header: header}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	for _, build := range []func(*models.MetricsDocument) error{
		w.summary, w.pilots, w.flights, w.aircraft, w.months, w.issues,
	} {
		if err := build(doc); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf, nil
}

// table writes a header row plus data rows to sheet, creating the sheet when
// it does not exist yet.
func (w *sheetWriter) table(sheet string, columns []string, rows [][]any) error {
	if idx, _ := w.f.GetSheetIndex(sheet); idx < 0 {
		if _, err := w.f.NewSheet(sheet); err != nil {
			return err
		}
	}

	head := make([]any, len(columns))
	for i, c := range columns {
		head[i] = c
	}
	if err := w.f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := w.f.SetColWidth(sheet, "A", last, 16); err != nil {
		return err
	}
	return w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *sheetWriter) summary(doc *models.MetricsDocument) error {
	latest := ""
	if doc.Recency.LatestFlightDate != nil {
		latest = *doc.Recency.LatestFlightDate
	}
	var daysSince any = ""
	if doc.Recency.DaysSinceLastFlight != nil {
		daysSince = *doc.Recency.DaysSinceLastFlight
	}
	rows := [][]any{
		{"Generated at", doc.GeneratedAt},
		{"Updated at", doc.UpdatedAt},
		{"Source", doc.Source.URL},
		{"Rows total", doc.Source.Rows.Total},
		{"Rows valid", doc.Source.Rows.Valid},
		{"Rows invalid", doc.Source.Rows.Invalid},
		{"Rows skipped", doc.Source.Rows.Skipped},
		{"Total flights", doc.Summary.TotalFlights},
		{"Total hours", doc.Summary.TotalHours},
		{"PIC hours", doc.Totals.PICHours},
		{"SIC hours", doc.Totals.SICHours},
		{"Dual hours", doc.Totals.DualHours},
		{"Night hours", doc.Totals.NightHours},
		{"IFR hours", doc.Totals.IFRHours},
		{"Approaches", doc.Totals.Approaches},
		{"Day landings", doc.Totals.DayLandings},
		{"Night landings", doc.Totals.NightLandings},
		{"Last 7 days", doc.RollingTotals.Last7Days},
		{"Last 30 days", doc.RollingTotals.Last30Days},
		{"Last 90 days", doc.RollingTotals.Last90Days},
		{"Latest flight", latest},
		{"Days since last flight", daysSince},
		{"Stale", doc.Recency.Stale},
	}
	return w.table(SheetSummary, []string{"Metric", "Value"}, rows)
}

func (w *sheetWriter) pilots(doc *models.MetricsDocument) error {
	rows := make([][]any, 0, len(doc.Pilots))
	for _, p := range doc.Pilots {
		rows = append(rows, []any{
			p.ID, p.Name, p.LicenseNumber, p.TotalFlights, p.TotalHours,
			p.PICHours, p.SICHours, p.NightHours, p.IFRHours, p.LastFlightDate,
			strings.Join(p.AircraftTypes, ", "),
		})
	}
	return w.table(SheetPilots, []string{
		"ID", "Name", "License", "Flights", "Hours",
		"PIC", "SIC", "Night", "IFR", "Last flight", "Aircraft types",
	}, rows)
}

func (w *sheetWriter) flights(doc *models.MetricsDocument) error {
	var rows [][]any
	for _, p := range doc.Pilots {
		for _, fl := range p.Flights {
			var approaches any = ""
			if fl.ApproachCount != nil {
				approaches = *fl.ApproachCount
			}
			rows = append(rows, []any{
				p.Name, fl.Date, fl.Aircraft, fl.AircraftReg, fl.Route, fl.Hours,
				fl.Role, fl.Rules, fl.Night, approaches, fl.Remarks,
			})
		}
	}
	return w.table(SheetFlights, []string{
		"Pilot", "Date", "Aircraft", "Registration", "Route", "Hours",
		"Role", "Rules", "Night", "Approaches", "Remarks",
	}, rows)
}

func (w *sheetWriter) aircraft(doc *models.MetricsDocument) error {
	labels := make([]string, 0, len(doc.ByAircraft))
	for label := range doc.ByAircraft {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	rows := make([][]any, 0, len(labels))
	for _, label := range labels {
		t := doc.ByAircraft[label]
		rows = append(rows, []any{label, t.Flights, t.Hours, t.PICHours, t.NightHours})
	}
	return w.table(SheetAircraft, []string{"Aircraft", "Flights", "Hours", "PIC", "Night"}, rows)
}

func (w *sheetWriter) months(doc *models.MetricsDocument) error {
	rows := make([][]any, 0, len(doc.ByMonth))
	for _, m := range doc.ByMonth {
		rows = append(rows, []any{m.Month, m.Flights, m.Hours})
	}
	return w.table(SheetMonths, []string{"Month", "Flights", "Hours"}, rows)
}

func (w *sheetWriter) issues(doc *models.MetricsDocument) error {
	rows := make([][]any, 0, len(doc.Issues))
	for _, issue := range doc.Issues {
		rows = append(rows, []any{issue.RowNumber, strings.Join(issue.Errors, "; ")})
	}
	return w.table(SheetIssues, []string{"Row", "Errors"}, rows)
}
