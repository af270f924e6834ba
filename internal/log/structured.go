package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger emits the fixed-shape records for requests and writes.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func requestFields(ctx context.Context) LogFields {
	fields := NewFields()
	if s := ScopeFromContext(ctx); s != nil {
		fields.WithRequestID(s.RequestID).WithClientIP(s.ClientIP).WithOwner(s.Owner())
	}
	return fields
}

// LogHTTPStart logs an incoming request. The owner is not known yet.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request) {
	fields := requestFields(ctx).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"))
	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the outcome, at warn for 4xx and error for 5xx, with the
// owner the identity check resolved.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := requestFields(ctx).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs)
	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogWrite records a successful create, update or delete of a ledger entity.
// extra carries resource specific attributes such as WithTransaction.
func (sl *StructuredLogger) LogWrite(ctx context.Context, operation, resource, ownerID, id string, extra ...LogFields) {
	fields := NewFields().
		WithEntity(resource, id).
		WithOwner(ownerID).
		WithOperation(operation)
	for _, e := range extra {
		fields.Merge(e)
	}
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, resource+" "+operation+" succeeded", fields.ToSlice()...)
}

// LogError logs a failure under the given component.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
