package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/middleware"
	"infinite-experiment/logbook/internal/models/dtos"
	"infinite-experiment/logbook/internal/services"
)

// TriggerIngestHandler handles POST /api/v1/ingest
//
// The body is optional and only carries dry_run. The export location comes from
// configuration; overriding it is a CLI-only feature.
func TriggerIngestHandler(metrics MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.IngestRequest
		if r.Body != nil {
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				logging.Warn("Rejected ingestion request body",
					"request_id", middleware.RequestID(r.Context()),
					"error", err.Error(),
				)
				common.RespondError(w, initTime, nil, "Invalid request body: only dry_run is accepted", http.StatusBadRequest)
				return
			}
		}

		logging.Info("Ingestion manually triggered",
			"request_id", middleware.RequestID(r.Context()),
			"dry_run", req.DryRun,
		)

		res, err := metrics.Refresh(r.Context(), services.RunOptions{
			DryRun:  req.DryRun,
			Trigger: services.TriggerManual,
		})
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Ingestion completed", res.Response())
	}
}

// ListRunsHandler handles GET /api/v1/ingest/runs?limit=N
func ListRunsHandler(history RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 200 {
				common.RespondError(w, initTime, nil, "limit must be between 1 and 200", http.StatusBadRequest)
				return
			}
			limit = n
		}

		runs, err := history.Runs(r.Context(), limit)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Ingestion runs fetched successfully", runs)
	}
}
