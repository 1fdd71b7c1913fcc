package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

// maxErrorBody bounds how much of an upstream error body ends up in messages.
const maxErrorBody = 4 << 10

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. Upstream error bodies are plain text or XML, so the body
// is only trimmed and attached to the message.
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}
	body := strings.TrimSpace(string(bodyBytes))

	return mapUpstreamError(resp.StatusCode, body, serviceName)
}

func mapUpstreamError(status int, body, serviceName string) error {
	msg := fmt.Sprintf("%s returned status %d", serviceName, status)
	if body != "" {
		msg += ": " + body
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		// The service rejects unknown or disabled shopkeys this way.
		return apperrors.Unauthorized(msg)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName+" endpoint", fmt.Sprint(status))
	case status >= 500:
		return apperrors.ServiceUnavailable(serviceName, fmt.Errorf("%s", msg))
	default:
		return apperrors.Upstream(msg)
	}
}

// IsSuccess reports whether the status code is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
