package api

import (
	"errors"
	"net/http"
	"time"

	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/constants"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/services"
)

// handleServiceError maps service errors to appropriate HTTP responses
func handleServiceError(w http.ResponseWriter, initTime time.Time, err error) {
	var serr *services.ServiceError
	if errors.As(err, &serr) {
		statusCode := mapErrorCodeToHTTPStatus(serr.Code)
		if statusCode >= http.StatusInternalServerError {
			logging.Error("Request failed", "code", serr.Code, "error", err.Error())
		}
		common.RespondError(w, initTime, nil, serr.Message, statusCode)
		return
	}

	logging.Error("Unexpected error", "error", err.Error())
	common.RespondError(w, initTime, nil, "An unexpected error occurred", http.StatusInternalServerError)
}

// mapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func mapErrorCodeToHTTPStatus(errorCode string) int {
	switch errorCode {
	// 404 Not Found - Resource doesn't exist
	case constants.ErrCodePilotNotFound:
		return http.StatusNotFound
	case constants.ErrCodeDocumentNotFound:
		return http.StatusNotFound

	// 409 Conflict - Another run holds the pipeline
	case constants.ErrCodeIngestionInFlight:
		return http.StatusConflict

	// 422 Unprocessable - The export was fetched but is unusable
	case constants.ErrCodeEmptySource, constants.ErrCodeMalformedSource, constants.ErrCodeNoValidFlights:
		return http.StatusUnprocessableEntity

	// 429 Too Many Requests - Rate limiting
	case constants.ErrCodeRateLimited:
		return http.StatusTooManyRequests

	// 502 Bad Gateway - Upstream source failed
	case constants.ErrCodeSourceUnreachable, constants.ErrCodeSourceHTTPStatus:
		return http.StatusBadGateway

	// 503 Service Unavailable - Nothing configured to serve from
	case constants.ErrCodeSourceNotConfigured, constants.ErrCodeHistoryUnavailable:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error - System errors (default)
	case constants.ErrCodeSchemaViolation, constants.ErrCodeInvalidDocument,
		constants.ErrCodeStoreFailure, constants.ErrCodeExportFailed:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
