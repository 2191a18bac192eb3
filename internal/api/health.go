package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"infinite-experiment/logbook/internal/models/entities"
)

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Pings backing services and reports the document being served.
// @Tags Misc
// @Success 200 {object} entities.HealthCheckResponse
// @Router /healthCheck [get]
func HealthCheckHandler(deps *Dependencies, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)
		for name, probe := range deps.Probes {
			status := entities.ServiceStatus{Status: "ok", Details: "Connected"}
			if err := probe(ctx); err != nil {
				status = entities.ServiceStatus{Status: "down", Details: err.Error()}
			}
			services[name] = status
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		var document *entities.DocumentStatus
		if deps.Metrics != nil {
			if res, ok := deps.Metrics.Peek(); ok {
				document = &entities.DocumentStatus{
					UpdatedAt: res.Document.UpdatedAt,
					Pilots:    len(res.Document.Pilots),
					Stale:     res.Stale,
				}
			}
		}

		now := time.Now()
		resp := entities.HealthCheckResponse{
			Status:   overallStatus,
			Services: services,
			Document: document,
			UpSince:  upSince.UTC(),
			Uptime:   now.Sub(upSince).Round(time.Second).String(),
		}

		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
