package pipelineapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
)

// statusError maps a non-2xx backend response to an AppError. The backend's
// own message is surfaced when the body carries one.
func statusError(endpoint string, resp *http.Response) error {
	msg := errorMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return apperrors.NotFoundf("%s: %s", endpoint, msg)
	case code == http.StatusConflict:
		return apperrors.Conflict(msg)
	case code == http.StatusRequestEntityTooLarge:
		return apperrors.TooLarge(msg)
	case code == http.StatusGatewayTimeout:
		return &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Message: "backend " + endpoint + " timed out"}
	case code >= 400 && code < 500:
		return apperrors.Validationf("backend rejected %s: %s", endpoint, msg)
	default:
		return apperrors.Upstreamf("backend %s failed with status %d: %s", endpoint, code, msg)
	}
}

// errorMessage extracts detail, message or error from a JSON error body, or
// returns the trimmed text body.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	var payload map[string]any
	if json.Unmarshal(data, &payload) == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return strings.TrimSpace(string(data))
}

// mapTransportError classifies errors returned before a response arrived.
func mapTransportError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "backend request timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "backend request was canceled")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "backend unreachable")
	}
}
