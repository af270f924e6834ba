package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

type testEnv struct {
	t     *testing.T
	srv   *Server
	repo  *storage.SQLiteRepository
	alice string
	bob   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	mkUser := func(id, name string, active bool) string {
		_, err := repo.CreateUser(ctx, core.User{
			ID: id, Username: name, Email: name + "@example.com",
			PasswordHash: "x", Role: core.RoleUser, Active: active,
			CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		return id
	}

	tx := services.NewTransactionService(repo, nil, 0)
	srv := NewServer(Deps{
		Transactions: tx,
		Registry:     services.NewRegistryService(repo, nil),
		Stats:        services.NewStatsService(tx),
		Users:        services.NewUserService(repo),
		DB:           repo,
	}, Options{
		IdentityTTL:        time.Minute,
		RateLimitPerMinute: 6000,
		RateLimitBurst:     1000,
		Logger: applog.New(applog.Config{
			Component: "test",
			Handler:   slog.NewTextHandler(io.Discard, nil),
		}),
	})
	srv.now = func() time.Time { return now }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	env := &testEnv{t: t, srv: srv, repo: repo}
	env.alice = mkUser("u-alice", "alice", true)
	env.bob = mkUser("u-bob", "bob", true)
	mkUser("u-carol", "carol", false)
	return env
}

func (e *testEnv) do(method, path, owner string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "203.0.113.10:4000"
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createCategory(owner, name string, typ core.TransactionType) core.Category {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/categories", owner, map[string]string{"name": name, "type": string(typ)})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.Category](e.t, rec)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsDatabaseFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.db = failingPinger{}
	rec := env.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIdentity(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		owner  string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"unknown user", "u-nobody", http.StatusUnauthorized},
		{"inactive user", "u-carol", http.StatusUnauthorized},
		{"active user", env.alice, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/labels", tt.owner, nil)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, KindUnauthorized, decode[ErrorBody](t, rec).Kind)
			}
		})
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/labels", env.alice, nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_"))
}

func TestTransactionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	food := env.createCategory(env.alice, "Food", core.Expense)
	salary := env.createCategory(env.alice, "Salary", core.Income)

	rec := env.do(http.MethodPost, "/api/labels", env.alice, map[string]string{"name": "Work"})
	require.Equal(t, http.StatusCreated, rec.Code)
	work := decode[core.Label](t, rec)

	// Amount as a string with a decimal comma.
	rec = env.do(http.MethodPost, "/api/transactions", env.alice, map[string]any{
		"date": "2024-03-03", "amount": "12,50", "type": "Expenses",
		"categoryId": food.ID, "labelId": work.ID, "description": "lunch",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lunch := decode[core.Transaction](t, rec)
	assert.Equal(t, "2024-03-03", lunch.DateString)
	assert.Equal(t, "12.5", lunch.Amount.String())
	assert.Equal(t, "/api/transactions/"+lunch.ID, rec.Header().Get("Location"))
	require.NotNil(t, lunch.Category.Name)
	assert.Equal(t, "Food", *lunch.Category.Name)

	// Amount as a JSON number.
	rec = env.do(http.MethodPost, "/api/transactions", env.alice,
		`{"date":"2024-03-09","amount":1000,"type":"Income","categoryId":"`+salary.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/transactions?limit=1", env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[core.TransactionPage](t, rec)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "2024-03-09", page.Transactions[0].DateString)
	assert.Equal(t, core.Pagination{Current: 1, PageSize: 1, Total: 2, TotalPages: 2}, page.Pagination)

	rec = env.do(http.MethodGet, "/api/transactions?type=Expenses&startDate=2024-03-01&endDate=2024-03-03", env.alice, nil)
	page = decode[core.TransactionPage](t, rec)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, lunch.ID, page.Transactions[0].ID)

	// Another owner sees nothing and cannot touch the record.
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/transactions/"+lunch.ID, env.bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/transactions/"+lunch.ID, env.bob, nil).Code)
	page = decode[core.TransactionPage](t, env.do(http.MethodGet, "/api/transactions", env.bob, nil))
	assert.Empty(t, page.Transactions)
	assert.NotNil(t, page.Transactions)

	// Update: change amount, clear label with null.
	rec = env.do(http.MethodPut, "/api/transactions/"+lunch.ID, env.alice, `{"amount":"15","labelId":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[core.Transaction](t, rec)
	assert.Equal(t, "15", updated.Amount.String())
	assert.Empty(t, updated.LabelID)
	assert.Nil(t, updated.Label)
	assert.Equal(t, "lunch", updated.Description)

	// Changing the type away from the category's type is rejected.
	rec = env.do(http.MethodPut, "/api/transactions/"+lunch.ID, env.alice, map[string]string{"type": "Income"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodDelete, "/api/transactions/"+lunch.ID, env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Transaction deleted successfully", decode[MessageBody](t, rec).Message)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/transactions/"+lunch.ID, env.alice, nil).Code)
}

func TestCreateTransactionErrors(t *testing.T) {
	env := newTestEnv(t)
	food := env.createCategory(env.alice, "Food", core.Expense)
	bobs := env.createCategory(env.bob, "Food", core.Expense)

	tests := []struct {
		name   string
		body   any
		status int
		field  string
	}{
		{"empty body", "", http.StatusBadRequest, ""},
		{"not json", "amount=1", http.StatusBadRequest, ""},
		{"missing fields", map[string]any{"amount": "5"}, http.StatusBadRequest, ""},
		{"negative amount", map[string]any{"amount": -5, "type": "Expenses", "categoryId": food.ID}, http.StatusBadRequest, "amount"},
		{"zero amount", map[string]any{"amount": "0", "type": "Expenses", "categoryId": food.ID}, http.StatusBadRequest, "amount"},
		{"bad type", map[string]any{"amount": 5, "type": "Transfer", "categoryId": food.ID}, http.StatusBadRequest, "type"},
		{"bad date", map[string]any{"amount": 5, "type": "Expenses", "categoryId": food.ID, "date": "2024-02-30"}, http.StatusBadRequest, "date"},
		{"type mismatch", map[string]any{"amount": 5, "type": "Income", "categoryId": food.ID}, http.StatusBadRequest, "type"},
		{"foreign category", map[string]any{"amount": 5, "type": "Expenses", "categoryId": bobs.ID}, http.StatusNotFound, ""},
		{"unknown label", map[string]any{"amount": 5, "type": "Expenses", "categoryId": food.ID, "labelId": "nope"}, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/transactions", env.alice, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[ErrorBody](t, rec)
			assert.Equal(t, tt.field, body.Field)
		})
	}

	page := decode[core.TransactionPage](t, env.do(http.MethodGet, "/api/transactions", env.alice, nil))
	assert.Zero(t, page.Pagination.Total, "rejected creates write nothing")
}

func TestListQueryValidation(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"page=abc", "limit=1.5", "page=-1", "type=Other", "startDate=03/01/2024", "startDate=2024-03-05&endDate=2024-03-01"} {
		rec := env.do(http.MethodGet, "/api/transactions?"+q, env.alice, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRegistryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	food := env.createCategory(env.alice, "Food", core.Expense)
	env.createCategory(env.alice, "Salary", core.Income)

	// Same name, same type: conflict. Same name, other owner: fine.
	rec := env.do(http.MethodPost, "/api/categories", env.alice, map[string]string{"name": "Food", "type": "Expenses"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, KindConflict, decode[ErrorBody](t, rec).Kind)
	env.createCategory(env.bob, "Food", core.Expense)

	cats := decode[[]core.Category](t, env.do(http.MethodGet, "/api/categories?type=Income", env.alice, nil))
	require.Len(t, cats, 1)
	assert.Equal(t, "Salary", cats[0].Name)

	rec = env.do(http.MethodPut, "/api/categories/"+food.ID, env.alice, map[string]string{"color": "#ff0000"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#ff0000", decode[core.Category](t, rec).Color)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/api/categories/"+food.ID, env.bob, map[string]string{"color": "#000"}).Code)

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/labels", env.alice, map[string]string{"name": "Trip"}).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/labels", env.alice, map[string]string{"name": "Trip"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/labels", env.alice, map[string]string{"name": " "}).Code)

	rec = env.do(http.MethodDelete, "/api/categories/"+food.ID, env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category deleted successfully", decode[MessageBody](t, rec).Message)
}

func TestDeletedCategoryResolvesToSentinel(t *testing.T) {
	env := newTestEnv(t)
	food := env.createCategory(env.alice, "Food", core.Expense)
	rec := env.do(http.MethodPost, "/api/transactions", env.alice, map[string]any{
		"date": "2024-03-03", "amount": "5", "type": "Expenses", "categoryId": food.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/api/categories/"+food.ID, env.alice, nil).Code)

	page := decode[core.TransactionPage](t, env.do(http.MethodGet, "/api/transactions", env.alice, nil))
	require.Len(t, page.Transactions, 1)
	ref := page.Transactions[0].Category
	assert.Nil(t, ref.Name)
	assert.Equal(t, core.FallbackColor, ref.Color)
	assert.Equal(t, core.DefaultCategoryIcon, ref.Icon)
}

func TestStatsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	food := env.createCategory(env.alice, "Food", core.Expense)
	salary := env.createCategory(env.alice, "Salary", core.Income)
	for _, body := range []map[string]any{
		{"date": "2024-03-03", "amount": "10", "type": "Expenses", "categoryId": food.ID},
		{"date": "2024-03-03", "amount": "5.25", "type": "Expenses", "categoryId": food.ID},
		{"date": "2024-03-09", "amount": "100", "type": "Income", "categoryId": salary.ID},
		{"date": "2024-02-20", "amount": "7", "type": "Expenses", "categoryId": food.ID},
	} {
		require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/transactions", env.alice, body).Code)
	}

	t.Run("daily", func(t *testing.T) {
		days := decode[[]core.DayGroup](t, env.do(http.MethodGet, "/api/stats/daily?startDate=2024-03-01", env.alice, nil))
		require.Len(t, days, 2)
		assert.Equal(t, "2024-03-09", days[0].Day)
		assert.Equal(t, "15.25", days[1].Expenses.String())
	})

	t.Run("series by week", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/stats/series?granularity=week&window=2&asOf=2024-03-09", env.alice, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		series := decode[core.Series](t, rec)
		assert.Equal(t, []string{"2024-02-25", "2024-03-03"}, series.Labels)
		assert.Equal(t, "15.25", series.ExpenseSeries[1].String())
		assert.Equal(t, "100", series.IncomeSeries[1].String())
		assert.True(t, series.ExpenseSeries[0].IsZero())
	})

	t.Run("series defaults to six months", func(t *testing.T) {
		series := decode[core.Series](t, env.do(http.MethodGet, "/api/stats/series", env.alice, nil))
		assert.Equal(t, core.Month, series.Granularity)
		require.Len(t, series.Labels, 6)
		assert.Equal(t, "2024-03", series.Labels[5])
		assert.Equal(t, "7", series.ExpenseSeries[4].String())
	})

	t.Run("bad granularity", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/stats/series?granularity=day", env.alice, nil).Code)
	})

	t.Run("categories", func(t *testing.T) {
		ranks := decode[[]core.CategoryRank](t, env.do(http.MethodGet, "/api/stats/categories", env.alice, nil))
		require.Len(t, ranks, 2)
		assert.Equal(t, salary.ID, ranks[0].CategoryID)
		assert.Equal(t, "22.25", ranks[1].Total.String())
	})

	t.Run("month", func(t *testing.T) {
		summary := decode[core.MonthSummary](t, env.do(http.MethodGet, "/api/stats/month", env.alice, nil))
		assert.Equal(t, "2024-03", summary.Month)
		assert.Equal(t, "84.75", summary.NetBalance.String())
		assert.Equal(t, 3, summary.TransactionCount)

		summary = decode[core.MonthSummary](t, env.do(http.MethodGet, "/api/stats/month?month=2024-02", env.alice, nil))
		assert.Equal(t, 1, summary.TransactionCount)
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/stats/month?month=2024-13", env.alice, nil).Code)
	})

	t.Run("months", func(t *testing.T) {
		months := decode[[]core.MonthGroup](t, env.do(http.MethodGet, "/api/stats/months", env.alice, nil))
		require.Len(t, months, 2)
		assert.Equal(t, "2024-03", months[0].Month)
	})

	t.Run("day", func(t *testing.T) {
		day := decode[core.DayGroup](t, env.do(http.MethodGet, "/api/stats/day/2024-03-03", env.alice, nil))
		assert.Len(t, day.Transactions, 2)
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/stats/day/2024-3-3", env.alice, nil).Code)
	})

	t.Run("other owner sees empty stats", func(t *testing.T) {
		days := decode[[]core.DayGroup](t, env.do(http.MethodGet, "/api/stats/daily", env.bob, nil))
		assert.Empty(t, days)
	})
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	food := env.createCategory(env.alice, "Food", core.Expense)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/transactions", env.alice, map[string]any{
		"date": "2024-03-03", "amount": "12.5", "type": "Expenses", "categoryId": food.ID, "description": "lunch",
	}).Code)

	rec := env.do(http.MethodGet, "/api/transactions/export.csv", env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,type,amount,category,label,description,id", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-03,Expenses,12.50,Food,,lunch,"))
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.srv.limiter.Stop()
	limited := NewServer(Deps{
		Transactions: env.srv.transactions,
		Registry:     env.srv.registry,
		Stats:        env.srv.stats,
		Users:        services.NewUserService(env.repo),
	}, Options{
		IdentityTTL:        time.Minute,
		RateLimitPerMinute: 1,
		RateLimitBurst:     1,
		Logger:             applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)}),
	})
	t.Cleanup(func() { _ = limited.Shutdown(context.Background()) })
	env.srv = limited

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/labels", env.alice, map[string]string{"name": "A"}).Code)
	rec := env.do(http.MethodPost, "/api/labels", env.alice, map[string]string{"name": "B"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, KindRateLimited, decode[ErrorBody](t, rec).Kind)

	// Reads and other owners are unaffected.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/labels", env.alice, nil).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/labels", env.bob, map[string]string{"name": "B"}).Code)
}

func TestUserProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/users/profile", env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decode[core.User](t, rec).Username)
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/users/profile", "", nil).Code)

	rec = env.do(http.MethodPut, "/api/users/profile", env.alice, map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPut, "/api/users/profile", env.alice, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username", decode[ErrorBody](t, rec).Field)

	rec = env.do(http.MethodPut, "/api/users/profile", env.alice, map[string]string{"username": "alicia"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alicia", decode[core.User](t, rec).Username)

	rec = env.do(http.MethodGet, "/api/users/profile", env.alice, nil)
	assert.Equal(t, "alicia", decode[core.User](t, rec).Username)
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	users := services.NewUserService(env.repo)
	dave, err := users.Register(context.Background(), "dave", "dave@example.com", "secret1", core.RoleUser)
	require.NoError(t, err)

	rec := env.do(http.MethodPut, "/api/users/change-password", dave.ID, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret9", "confirmPassword": "secret8",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirmPassword", decode[ErrorBody](t, rec).Field)

	rec = env.do(http.MethodPut, "/api/users/change-password", dave.ID, map[string]string{
		"currentPassword": "wrong-one", "newPassword": "secret9", "confirmPassword": "secret9",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "currentPassword", decode[ErrorBody](t, rec).Field)

	rec = env.do(http.MethodPut, "/api/users/change-password", dave.ID, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret9", "confirmPassword": "secret9",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Password changed successfully", decode[MessageBody](t, rec).Message)

	_, err = users.Authenticate(context.Background(), "dave", "secret9")
	assert.NoError(t, err)
}
