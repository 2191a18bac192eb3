package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"infinite-experiment/logbook/internal/export"
	"infinite-experiment/logbook/internal/models"
	"infinite-experiment/logbook/internal/report"
	"infinite-experiment/logbook/internal/services"
)

// loadDocument reads a stored metrics document and rebuilds it against now.
func loadDocument(path string) (models.MetricsDocument, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return models.MetricsDocument{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := report.Revalidate(body, time.Now())
	if err != nil {
		return models.MetricsDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func newValidateCommand() *cobra.Command {
	var rewrite string

	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Check a stored metrics document and report its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			if rewrite != "" {
				body, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				if err := writeDocument(cmd, rewrite, body); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d pilots, %d flights, %.1f hours, %d issues\n",
				args[0], len(doc.Pilots), doc.Summary.TotalFlights, doc.Summary.TotalHours, len(doc.Issues))
			return nil
		},
	}
	cmd.Flags().StringVar(&rewrite, "rewrite", "", "Write the rebuilt document to this path")
	return cmd
}

func newPilotsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pilots <document.json>",
		Short: "List pilots in a metrics document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				summaries := make([]any, 0, len(doc.Pilots))
				for _, p := range doc.Pilots {
					summaries = append(summaries, services.PilotSummary(p))
				}
				return writeJSON(cmd, summaries)
			}

			rows := make([][]string, 0, len(doc.Pilots))
			for _, p := range doc.Pilots {
				rows = append(rows, []string{
					p.ID,
					p.Name,
					strconv.Itoa(p.TotalFlights),
					strconv.FormatFloat(p.TotalHours, 'f', 1, 64),
					strconv.FormatFloat(p.PICHours, 'f', 1, 64),
					p.LastFlightDate,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Flights", "Hours", "PIC", "Last flight"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print pilot summaries as JSON")
	return cmd
}

func newExportCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <document.json>",
		Short: "Write a metrics document as an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			buf, err := export.Workbook(&doc)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "logbook-metrics.xlsx", "Workbook path")
	return cmd
}
