package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, func()) {
	t.Helper()

	spanRecorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(spanRecorder),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tracerProvider)

	return spanRecorder, func() { otel.SetTracerProvider(originalProvider) }
}

func TestOTelStatusMiddleware_2xxResponse_StatusUnset(t *testing.T) {
	spanRecorder, cleanup := setupTestTracer(t)
	defer cleanup()

	e := echo.New()
	tracer := otel.Tracer("test")

	req := httptest.NewRequest(http.MethodGet, "/admin/pipeline", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ctx, span := tracer.Start(req.Context(), "test-span")
	c.SetRequest(req.WithContext(ctx))

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	err := OTelStatusMiddleware()(handler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	span.End()

	spans := spanRecorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	var statusCodeFound bool
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "http.response.status_code" {
			statusCodeFound = true
			assert.Equal(t, int64(200), attr.Value.AsInt64())
		}
	}
	assert.True(t, statusCodeFound, "http.response.status_code attribute not found")
}

func TestOTelStatusMiddleware_5xxResponse_StatusError(t *testing.T) {
	spanRecorder, cleanup := setupTestTracer(t)
	defer cleanup()

	e := echo.New()
	tracer := otel.Tracer("test")

	req := httptest.NewRequest(http.MethodPost, "/admin/pipeline/start", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ctx, span := tracer.Start(req.Context(), "test-span")
	c.SetRequest(req.WithContext(ctx))

	testErr := errors.New("store connection failed")
	handler := func(c echo.Context) error {
		c.Response().WriteHeader(http.StatusInternalServerError)
		return testErr
	}

	err := OTelStatusMiddleware()(handler)(c)
	assert.Equal(t, testErr, err)

	span.End()

	spans := spanRecorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var errorEventFound bool
	for _, event := range spans[0].Events() {
		if event.Name == "exception" {
			errorEventFound = true
		}
	}
	assert.True(t, errorEventFound, "exception event not found in span")
}

func TestOTelStatusMiddleware_NoSpanInContext(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	err := OTelStatusMiddleware()(handler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
