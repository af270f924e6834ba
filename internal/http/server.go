package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on.
type Deps struct {
	Transactions *services.TransactionService
	Registry     *services.RegistryService
	Stats        *services.StatsService
	Users        *services.UserService
	DB           Pinger
}

// Options tune the HTTP layer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	IdentityHeader     string
	IdentityTTL        time.Duration
	IdentityCacheSize  int
	RateLimitPerMinute int
	RateLimitBurst     int
	Logger             *applog.Logger
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	registry     *services.RegistryService
	stats        *services.StatsService
	users        *services.UserService
	db           Pinger

	logger   *applog.StructuredLogger
	identity *Identity
	limiter  *ratelimit.Limiter
	caches   *cache.Manager
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// The identity cache sweeper starts with the server; Shutdown stops it.
func NewServer(deps Deps, opts Options) *Server {
	if opts.IdentityHeader == "" {
		opts.IdentityHeader = "X-User-ID"
	}
	if opts.IdentityCacheSize <= 0 {
		opts.IdentityCacheSize = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	identityCache := cache.NewLRUCache[core.User](opts.IdentityCacheSize, opts.IdentityTTL)
	caches := cache.NewManager()
	caches.Register(identityCache)

	s := &Server{
		transactions: deps.Transactions,
		registry:     deps.Registry,
		stats:        deps.Stats,
		users:        deps.Users,
		db:           deps.DB,
		logger:       applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
		identity:     NewIdentity(opts.IdentityHeader, deps.Users, identityCache),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Burst:             opts.RateLimitBurst,
		}),
		caches: caches,
		now:    time.Now,
	}
	if opts.IdentityTTL > 0 {
		caches.StartCleanup(context.Background(), opts.IdentityTTL)
	}

	detector := security.NewDetector()
	tracer := trace.NewMiddleware(logger, detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.identity.Middleware(
			s.limiter.Middleware(s.rateLimitKey(detector), ratelimit.WritesOnly, s.onRateLimited)(h)))
	}

	api("GET /api/transactions", s.handleListTransactions)
	api("POST /api/transactions", s.handleCreateTransaction)
	api("GET /api/transactions/export.csv", s.handleExportCSV)
	api("GET /api/transactions/{id}", s.handleGetTransaction)
	api("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api("GET /api/categories", s.handleListCategories)
	api("POST /api/categories", s.handleCreateCategory)
	api("PUT /api/categories/{id}", s.handleUpdateCategory)
	api("DELETE /api/categories/{id}", s.handleDeleteCategory)

	api("GET /api/labels", s.handleListLabels)
	api("POST /api/labels", s.handleCreateLabel)
	api("PUT /api/labels/{id}", s.handleUpdateLabel)
	api("DELETE /api/labels/{id}", s.handleDeleteLabel)

	api("GET /api/stats/daily", s.handleDailyStats)
	api("GET /api/stats/series", s.handleSeriesStats)
	api("GET /api/stats/categories", s.handleCategoryStats)
	api("GET /api/stats/labels", s.handleLabelStats)
	api("GET /api/stats/month", s.handleMonthStats)
	api("GET /api/stats/months", s.handleMonthsStats)
	api("GET /api/stats/day/{date}", s.handleDayStats)

	api("GET /api/users/profile", s.handleGetProfile)
	api("PUT /api/users/profile", s.handleUpdateProfile)
	api("PUT /api/users/change-password", s.handleChangePassword)

	var handler http.Handler = mux
	handler = applog.Middleware(logger)(handler)
	handler = tracer.Middleware(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// rateLimitKey prefers the authenticated owner so users behind one address
// do not share a bucket.
func (s *Server) rateLimitKey(detector *security.Detector) func(*http.Request) string {
	return func(r *http.Request) string {
		if owner, ok := OwnerFromContext(r.Context()); ok {
			return "owner:" + owner
		}
		return "ip:" + detector.ExtractClientIP(r)
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and its housekeeping goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			slog.ErrorContext(ctx, "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, KindInternal, "database unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
