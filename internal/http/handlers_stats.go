package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
)

const (
	defaultSeriesWindow = 6
	maxSeriesWindow     = 120
)

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	days, err := s.stats.Daily(ctx, mustOwner(r), f)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(days).Write(w)
}

// handleSeriesStats takes granularity (week|month|year, default month),
// window (default 6) and asOf (default today). Filter dates are ignored.
func (s *Server) handleSeriesStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	f, err := ParseFilter(query)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	g := core.Month
	if v := strings.TrimSpace(query.Get("granularity")); v != "" {
		if g, err = core.ParseGranularity(v); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	window, err := optionalInt(query, "window")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if window == 0 {
		window = defaultSeriesWindow
	}
	if window > maxSeriesWindow {
		writeError(ctx, w, core.NewValidationError("window", "must be at most 120"))
		return
	}
	asOf := core.Today(s.now())
	if d, err := parseOptionalDate(query, "asOf"); err != nil {
		writeError(ctx, w, err)
		return
	} else if d != nil {
		asOf = *d
	}

	series, err := s.stats.Series(ctx, mustOwner(r), f, g, window, asOf)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(series).Write(w)
}

func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	ranks, err := s.stats.Categories(ctx, mustOwner(r), f)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(ranks).Write(w)
}

func (s *Server) handleLabelStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	ranks, err := s.stats.Labels(ctx, mustOwner(r), f)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(ranks).Write(w)
}

// handleMonthStats summarises month=YYYY-MM, defaulting to the current month.
func (s *Server) handleMonthStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	today := core.Today(s.now())
	year, month := today.Year(), today.Month()
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		var err error
		if year, month, err = core.ParseMonthKey(v); err != nil {
			writeError(ctx, w, err)
			return
		}
	}

	summary, err := s.stats.Month(ctx, mustOwner(r), year, month)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleMonthsStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	months, err := s.stats.Months(ctx, mustOwner(r), f)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(months).Write(w)
}

func (s *Server) handleDayStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day, err := core.ParseDateKey(r.PathValue("date"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	summary, err := s.stats.Day(ctx, mustOwner(r), day)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}
