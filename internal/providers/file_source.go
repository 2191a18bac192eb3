package providers

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"

	"infinite-experiment/logbook/internal/constants"
)

// FileSourceProvider reads an export from local disk. It accepts plain paths
// and file:// URLs.
type FileSourceProvider struct{}

func NewFileSourceProvider() *FileSourceProvider {
	return &FileSourceProvider{}
}

func (p *FileSourceProvider) GetProviderType() string {
	return "file"
}

func (p *FileSourceProvider) Fetch(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := strings.TrimSpace(location)
	if path == "" {
		return "", &ProviderError{
			Code:    constants.ErrCodeSourceNotConfigured,
			Message: constants.GetErrorMessage(constants.ErrCodeSourceNotConfigured),
		}
	}
	if strings.HasPrefix(strings.ToLower(path), "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", &ProviderError{
				Code:    constants.ErrCodeSourceNotConfigured,
				Message: "Invalid file URL",
				Err:     err,
			}
		}
		path = u.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		msg := constants.GetErrorMessage(constants.ErrCodeSourceUnreachable)
		if errors.Is(err, os.ErrNotExist) {
			msg = "Logbook export not found: " + path
		}
		return "", &ProviderError{
			Code:    constants.ErrCodeSourceUnreachable,
			Message: msg,
			Err:     err,
		}
	}
	return string(data), nil
}
