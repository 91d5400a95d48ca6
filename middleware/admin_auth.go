// ABOUTME: Shared-key authentication middleware for the admin HTTP surface
// ABOUTME: Authentication of admin callers beyond this check is out of scope
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"romarchive/domain"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware rejects any request whose X-Admin-Key header does
// not match the configured shared key (§6). An empty configured key
// disables the check entirely — callers are expected to run behind a
// trusted network boundary in that configuration.
func AdminKeyMiddleware(sharedKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sharedKey == "" {
				return next(c)
			}

			provided := c.Request().Header.Get(adminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(sharedKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthorized.Error())
			}

			return next(c)
		}
	}
}
