package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentApp).With("env", "test").WithComponent(ComponentHTTP)

	l.Info("hello")
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "component="), out)
	assert.Contains(t, out, "component=http")
	assert.Contains(t, out, "env=test")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMiddlewareTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := Middleware(bufferLogger(&buf, "test"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithScope(req.Context(), &Scope{RequestID: "req_1"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), "request_id=req_1")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Same(t, slog.Default(), l.Logger)
}

func TestLogHTTPEndCarriesOwner(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentTrace))

	ctx := WithScope(context.Background(), &Scope{RequestID: "req_2", ClientIP: "10.0.0.1"})
	req := httptest.NewRequest(http.MethodPost, "/api/labels", nil).WithContext(ctx)

	sl.LogHTTPStart(ctx, req)
	assert.NotContains(t, buf.String(), "owner_id=")

	SetOwner(ctx, "u-1")
	sl.LogHTTPEnd(ctx, req, http.StatusConflict, 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	end := lines[1]
	assert.Contains(t, end, "HTTP request completed")
	assert.Contains(t, end, "level=WARN")
	assert.Contains(t, end, "owner_id=u-1")
	assert.Contains(t, end, "request_id=req_2")
	assert.Contains(t, end, "client_ip=10.0.0.1")
	assert.Contains(t, end, "status_code=409")
}

func TestSetOwnerWithoutScope(t *testing.T) {
	assert.NotPanics(t, func() { SetOwner(context.Background(), "u-1") })
}

func TestLogWriteWithTransaction(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))

	sl.LogWrite(context.Background(), OpCreate, "transaction", "u-1", "t-1",
		NewFields().WithTransaction("2024-03-09", decimal.RequireFromString("12.5"), "Expenses", "c-1", ""))

	out := buf.String()
	assert.Contains(t, out, "transaction create succeeded")
	assert.Contains(t, out, "component=ledger")
	assert.Equal(t, 1, strings.Count(out, "component="), out)
	assert.Contains(t, out, "amount=12.50")
	assert.Contains(t, out, "date=2024-03-09")
	assert.Contains(t, out, "category_id=c-1")
	assert.NotContains(t, out, "label_id")
	assert.Contains(t, out, "entity_id=t-1")
}

func TestLogErrorUsesComponent(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))

	sl.LogError(context.Background(), "CSV export failed", assert.AnError, ComponentExport, OpExport, nil)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "component=export")
	assert.Contains(t, out, "operation=export")
}
