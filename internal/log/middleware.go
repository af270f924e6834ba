package log

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	scopeKey
)

// Scope is the per-request state shared by the logging layers. The trace
// middleware creates it; the owner is filled in later by the identity check,
// so it is set in place rather than through a derived context.
type Scope struct {
	RequestID string
	ClientIP  string

	mu      sync.Mutex
	ownerID string
}

func (s *Scope) SetOwner(ownerID string) {
	s.mu.Lock()
	s.ownerID = ownerID
	s.mu.Unlock()
}

func (s *Scope) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

// WithScope attaches a request scope to ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// ScopeFromContext returns the request scope, or nil outside a request.
func ScopeFromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey).(*Scope)
	return s
}

// SetOwner records the authenticated owner on the request scope, if any.
func SetOwner(ctx context.Context, ownerID string) {
	if s := ScopeFromContext(ctx); s != nil {
		s.SetOwner(ownerID)
	}
}

// Middleware stores logger in the request context, tagged with the request
// id when a scope is present.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if s := ScopeFromContext(r.Context()); s != nil && s.RequestID != "" {
				l = logger.With(FieldRequestID, s.RequestID)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey, l)))
		})
	}
}

// FromContext returns the request logger, falling back to slog's default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), base: slog.Default()}
}
