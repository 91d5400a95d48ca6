// ABOUTME: This file implements a slow-query tracer for the catalog connection pool
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const queryDurationThreshold = 100 * time.Millisecond

type queryStartKey struct{}

// QueryTracer logs queries that exceed queryDurationThreshold.
type QueryTracer struct {
	Logger *slog.Logger
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}

	duration := time.Since(start)
	if duration > queryDurationThreshold {
		t.Logger.Warn("slow query", "duration", duration, "err", data.Err)
	}
}
