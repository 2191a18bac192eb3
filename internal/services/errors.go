package services

import (
	"errors"
	"fmt"

	"infinite-experiment/logbook/internal/constants"
)

// ErrNoValidFlights means every row of the export was rejected or skipped.
var ErrNoValidFlights = errors.New("no valid flights")

// ServiceError represents a pipeline or serving failure with a code from
// constants that the API maps to an HTTP status.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(code string, err error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: constants.GetErrorMessage(code),
		Err:     err,
	}
}

// ErrorCode extracts the code of a ServiceError anywhere in err's chain.
func ErrorCode(err error) string {
	var serr *ServiceError
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ""
}
