package constants

// Pipeline and serving error codes

// Source errors
const (
	ErrCodeSourceNotConfigured = "SOURCE_NOT_CONFIGURED"
	ErrCodeSourceUnreachable   = "SOURCE_UNREACHABLE"
	ErrCodeSourceHTTPStatus    = "SOURCE_HTTP_STATUS"
	ErrCodeEmptySource         = "EMPTY_SOURCE"
	ErrCodeMalformedSource     = "MALFORMED_SOURCE"
)

// Data errors
const (
	ErrCodeNoValidFlights  = "NO_VALID_FLIGHTS"
	ErrCodeSchemaViolation = "SCHEMA_VIOLATION"
	ErrCodeInvalidDocument = "INVALID_DOCUMENT"
)

// Storage and serving errors
const (
	ErrCodeStoreFailure       = "STORE_FAILURE"
	ErrCodeDocumentNotFound   = "DOCUMENT_NOT_FOUND"
	ErrCodePilotNotFound      = "PILOT_NOT_FOUND"
	ErrCodeIngestionInFlight  = "INGESTION_IN_FLIGHT"
	ErrCodeExportFailed       = "EXPORT_FAILED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeHistoryUnavailable = "HISTORY_UNAVAILABLE"
)

// ErrorMessages holds the human-readable message for each code
var ErrorMessages = map[string]string{
	ErrCodeSourceNotConfigured: "No logbook data source is configured",
	ErrCodeSourceUnreachable:   "Unable to reach the logbook data source",
	ErrCodeSourceHTTPStatus:    "Failed to fetch data source",
	ErrCodeEmptySource:         "The logbook export contains no data rows",
	ErrCodeMalformedSource:     "The logbook export could not be read as CSV",

	ErrCodeNoValidFlights:  "No valid flights found in the logbook export",
	ErrCodeSchemaViolation: "The generated metrics document failed validation",
	ErrCodeInvalidDocument: "The stored metrics document is not valid",

	ErrCodeStoreFailure:       "Unable to read or write the metrics document",
	ErrCodeDocumentNotFound:   "No metrics document has been generated yet",
	ErrCodePilotNotFound:      "Pilot not found",
	ErrCodeIngestionInFlight:  "An ingestion run is already in progress",
	ErrCodeExportFailed:       "Unable to build the workbook export",
	ErrCodeRateLimited:        "Rate limit exceeded. Please try again later",
	ErrCodeHistoryUnavailable: "Ingestion history is not enabled",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
