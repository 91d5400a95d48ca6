package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAdminKeyMiddleware_RejectsMissingKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/pipeline", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := AdminKeyMiddleware("secret")(okHandler)(c)

	assert.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAdminKeyMiddleware_RejectsWrongKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/pipeline", nil)
	req.Header.Set(adminKeyHeader, "wrong")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := AdminKeyMiddleware("secret")(okHandler)(c)

	assert.Error(t, err)
}

func TestAdminKeyMiddleware_AcceptsCorrectKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/pipeline", nil)
	req.Header.Set(adminKeyHeader, "secret")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := AdminKeyMiddleware("secret")(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminKeyMiddleware_EmptySharedKeyDisablesCheck(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/pipeline", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := AdminKeyMiddleware("")(okHandler)(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
