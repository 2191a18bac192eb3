package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/constants"
	"infinite-experiment/logbook/internal/export"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/services"
)

// StaleHeader is set on responses served from the last known good document.
const StaleHeader = "X-Metrics-Stale"

// cacheControl lets shared caches keep the document for half the revalidate
// window and serve it stale for a full window while refetching.
func cacheControl(revalidate time.Duration) string {
	seconds := int(revalidate / time.Second)
	return fmt.Sprintf("s-maxage=%d, stale-while-revalidate=%d", seconds/2, seconds)
}

func setFreshness(w http.ResponseWriter, metrics MetricsProvider, stale bool) {
	if stale {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(StaleHeader, "true")
		return
	}
	w.Header().Set("Cache-Control", cacheControl(metrics.Revalidate()))
}

// GetMetricsHandler handles GET /api/v1/metrics. The document is returned as
// is, without the response envelope, so dashboards can consume it directly.
func GetMetricsHandler(metrics MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		res, err := metrics.Get(r.Context())
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}

		body, err := json.Marshal(res.Document)
		if err != nil {
			common.RespondError(w, initTime, err, "Unable to load metrics data", http.StatusInternalServerError)
			return
		}
		setFreshness(w, metrics, res.Stale)
		common.WriteRawJSON(w, http.StatusOK, body)
	}
}

// ListPilotsHandler handles GET /api/v1/pilots
func ListPilotsHandler(metrics MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		pilots, stale, err := metrics.Pilots(r.Context())
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		setFreshness(w, metrics, stale)
		common.RespondSuccess(w, initTime, "Pilots fetched successfully", pilots)
	}
}

// GetPilotHandler handles GET /api/v1/pilots/{pilotId}
func GetPilotHandler(metrics MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		pilotID := chi.URLParam(r, "pilotId")
		if pilotID == "" {
			common.RespondError(w, initTime, nil, "Pilot ID is required", http.StatusBadRequest)
			return
		}

		pilot, stale, err := metrics.Pilot(r.Context(), pilotID)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		setFreshness(w, metrics, stale)
		common.RespondSuccess(w, initTime, "Pilot fetched successfully", pilot)
	}
}

// ExportWorkbookHandler handles GET /api/v1/metrics/export.xlsx
func ExportWorkbookHandler(metrics MetricsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		res, err := metrics.Get(r.Context())
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}

		buf, err := export.Workbook(&res.Document)
		if err != nil {
			logging.Error("Workbook export failed", "error", err.Error())
			common.RespondError(w, initTime, nil, constants.GetErrorMessage(constants.ErrCodeExportFailed), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="logbook-metrics.xlsx"`)
		if res.Stale {
			w.Header().Set(StaleHeader, "true")
		}
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logging.Warn("Workbook write failed", "error", err.Error())
		}
	}
}

var _ MetricsProvider = (*services.MetricsService)(nil)
