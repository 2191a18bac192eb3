package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"infinite-experiment/logbook/internal/app"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/models/dtos"
	"infinite-experiment/logbook/internal/services"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		source  string
		dryRun  bool
		outPath string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the logbook export and publish a new metrics document",
		Long: "Runs the full pipeline once. With --dry-run the document is built and\n" +
			"validated but neither stored nor published; use --out to keep it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// A private registry keeps one-off runs off the default registerer.
			deps, err := app.InitDependencies(cmd.Context(), cfg, metrics.NewMetricsRegistry(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer deps.Close()

			res, err := deps.Services.Ingestion.Run(cmd.Context(), services.RunOptions{
				DryRun:    dryRun,
				SourceURL: source,
				Trigger:   services.TriggerCLI,
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := writeDocument(cmd, outPath, res.Body); err != nil {
					return err
				}
				if outPath == "-" {
					return nil
				}
			}

			if asJSON {
				return writeJSON(cmd, res.Response())
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRunResult(res.Response()))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Override the configured export URL or file path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and validate without storing or publishing")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also write the document to this path (\"-\" for stdout)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run result as JSON")
	return cmd
}

func writeDocument(cmd *cobra.Command, path string, body []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(append(body, '\n'))
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func renderRunResult(r dtos.RunResultResponse) string {
	rows := [][]string{
		{"Run", r.RunID},
		{"Status", r.Status},
		{"Dry run", strconv.FormatBool(r.DryRun)},
		{"Rows", fmt.Sprintf("%d total, %d valid, %d invalid, %d skipped", r.TotalRows, r.ValidRows, r.InvalidRows, r.SkippedRows)},
		{"Pilots", strconv.Itoa(r.Pilots)},
		{"Flights", strconv.Itoa(r.Flights)},
		{"Generated", r.GeneratedAt},
		{"Duration", fmt.Sprintf("%dms", r.DurationMs)},
	}
	if len(r.Collisions) > 0 {
		rows = append(rows, []string{"Id collisions", strings.Join(r.Collisions, ", ")})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}
