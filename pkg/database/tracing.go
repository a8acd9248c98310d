package database

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/guibarbosadev/focus-badge/pkg/database"

// QueryTracer implements pgx.QueryTracer. Every statement gets a client span,
// and statements slower than the threshold are logged as warnings.
type QueryTracer struct {
	tracer    trace.Tracer
	threshold time.Duration
	logger    *slog.Logger
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// NewQueryTracer builds a tracer. A zero threshold or nil logger disables
// slow query logging.
func NewQueryTracer(slowThreshold time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{
		tracer:    otel.Tracer(tracerName),
		threshold: slowThreshold,
		logger:    logger,
	}
}

type queryStartKey struct{}

type queryStart struct {
	at        time.Time
	operation string
	sql       string
	span      trace.Span
}

// TraceQueryStart opens a span named after the statement's leading keyword.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := operationName(data.SQL)
	ctx, span := t.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", data.SQL),
		),
	)
	return context.WithValue(ctx, queryStartKey{}, &queryStart{
		at:        time.Now(),
		operation: op,
		sql:       data.SQL,
		span:      span,
	})
}

// TraceQueryEnd closes the span opened by TraceQueryStart.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(*queryStart)
	if !ok {
		return
	}

	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		qs.span.RecordError(data.Err)
		qs.span.SetStatus(codes.Error, data.Err.Error())
	} else {
		qs.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	qs.span.End()

	if t.threshold <= 0 || t.logger == nil {
		return
	}
	if elapsed := time.Since(qs.at); elapsed >= t.threshold {
		attrs := []any{
			slog.String("operation", qs.operation),
			slog.String("statement", qs.sql),
			slog.Duration("duration", elapsed),
		}
		if data.Err != nil {
			attrs = append(attrs, slog.String("error", data.Err.Error()))
		}
		t.logger.WarnContext(ctx, "slow query detected", attrs...)
	}
}

// operationName returns the upper-cased first keyword of a statement.
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "QUERY"
	}
	return strings.ToUpper(fields[0])
}
