// ABOUTME: Centralized error handling middleware for Echo framework
// ABOUTME: Maps domain sentinel errors to secure HTTP responses, hides internal details
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"romarchive/domain"
)

// errorResponse is the JSON body every error response carries, whatever
// its source.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// domainStatus maps the admin-surface sentinel errors of §7 to HTTP
// status codes and a stable machine-readable code. Configuration and
// lifecycle errors are surfaced synchronously with their real message;
// everything else is treated as internal and its message is hidden.
var domainStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrAlreadyRunning, http.StatusConflict, "ALREADY_RUNNING"},
	{domain.ErrNotRunning, http.StatusConflict, "NOT_RUNNING"},
	{domain.ErrInvalidCron, http.StatusBadRequest, "INVALID_CRON"},
	{domain.ErrInvalidMode, http.StatusBadRequest, "INVALID_MODE"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// CustomHTTPErrorHandler creates the centralized HTTP error handler for
// Echo (§7): domain sentinel errors surface their message and an
// appropriate status; echo.HTTPError is passed through with its status
// but a generic message on 5xx; anything else is logged in full and
// reported to the caller as a bare internal error.
func CustomHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ctx := c.Request().Context()
		status, resp := classify(err)

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "unhandled error",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"error", err)
		} else {
			logger.WarnContext(ctx, "request error",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"error", err)
		}

		if jsonErr := c.JSON(status, resp); jsonErr != nil {
			logger.ErrorContext(ctx, "failed to send error response", "error", jsonErr)
		}
	}
}

func classify(err error) (int, errorResponse) {
	for _, d := range domainStatus {
		if errors.Is(err, d.err) {
			return d.status, errorResponse{Error: errorDetail{Code: d.code, Message: err.Error()}}
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := "an error occurred"
		if s, ok := httpErr.Message.(string); ok {
			msg = s
		}
		if httpErr.Code >= http.StatusInternalServerError {
			msg = "an unexpected error occurred"
		}
		return httpErr.Code, errorResponse{Error: errorDetail{Code: "HTTP_ERROR", Message: msg}}
	}

	return http.StatusInternalServerError, errorResponse{
		Error: errorDetail{Code: "INTERNAL_ERROR", Message: "an unexpected error occurred"},
	}
}
