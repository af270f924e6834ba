package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository persists users, the category/label registry and
// transactions. Every owner scoped method filters on owner_id so a foreign
// id behaves exactly like a missing one.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser stores a new account. Username and email collisions are
// reported as ConflictError.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	err := r.queries.CreateUser(ctx, UserRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.Active,
		CreatedAt:    u.CreatedAt.UnixMilli(),
		UpdatedAt:    u.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.NewConflictError("user", "username", "email")
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.NewNotFoundError("user", id)
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.NewNotFoundError("user", username)
		}
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, len(rows))
	for i, row := range rows {
		users[i] = userFromRow(row)
	}
	return users, nil
}

func (r *SQLiteRepository) SetUserActive(ctx context.Context, id string, active bool, at time.Time) error {
	n, err := r.queries.SetUserActive(ctx, id, active, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError("user", id)
	}
	slog.InfoContext(ctx, "User activation changed", "id", id, "active", active)
	return nil
}

// UpdateUsername renames an account. A taken name is a ConflictError.
func (r *SQLiteRepository) UpdateUsername(ctx context.Context, id, username string, at time.Time) (core.User, error) {
	n, err := r.queries.UpdateUsername(ctx, id, username, at.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.NewConflictError("user", "username")
		}
		return core.User{}, fmt.Errorf("update username: %w", err)
	}
	if n == 0 {
		return core.User{}, core.NewNotFoundError("user", id)
	}
	slog.InfoContext(ctx, "Username updated", "id", id, "username", username)
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) SetUserPassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	n, err := r.queries.SetUserPassword(ctx, id, passwordHash, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("set user password: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError("user", id)
	}
	slog.InfoContext(ctx, "User password changed", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := r.queries.CreateCategory(ctx, categoryToRow(c)); err != nil {
		return core.Category{}, r.writeError(err, "category", c.OwnerID, []string{"type", "name"}, "create category")
	}
	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "type", c.Type, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, core.NewNotFoundError("category", id)
		}
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return categoryFromRow(row), nil
}

// ListCategories returns the owner's categories newest first. An empty type
// returns both kinds.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string, typ core.TransactionType) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, ownerID, nullString(string(typ)))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	n, err := r.queries.UpdateCategory(ctx, categoryToRow(c))
	if err != nil {
		return core.Category{}, r.writeError(err, "category", c.OwnerID, []string{"type", "name"}, "update category")
	}
	if n == 0 {
		return core.Category{}, core.NewNotFoundError("category", c.ID)
	}
	slog.InfoContext(ctx, "Category updated", "id", c.ID, "type", c.Type, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteCategory(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError("category", id)
	}
	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateLabel(ctx context.Context, l core.Label) (core.Label, error) {
	if err := r.queries.CreateLabel(ctx, labelToRow(l)); err != nil {
		return core.Label{}, r.writeError(err, "label", l.OwnerID, []string{"name"}, "create label")
	}
	slog.InfoContext(ctx, "Label saved to SQLite", "id", l.ID, "name", l.Name)
	return l, nil
}

func (r *SQLiteRepository) GetLabel(ctx context.Context, ownerID, id string) (core.Label, error) {
	row, err := r.queries.GetLabel(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Label{}, core.NewNotFoundError("label", id)
		}
		return core.Label{}, fmt.Errorf("get label: %w", err)
	}
	return labelFromRow(row), nil
}

func (r *SQLiteRepository) ListLabels(ctx context.Context, ownerID string) ([]core.Label, error) {
	rows, err := r.queries.ListLabels(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	out := make([]core.Label, len(rows))
	for i, row := range rows {
		out[i] = labelFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateLabel(ctx context.Context, l core.Label) (core.Label, error) {
	n, err := r.queries.UpdateLabel(ctx, labelToRow(l))
	if err != nil {
		return core.Label{}, r.writeError(err, "label", l.OwnerID, []string{"name"}, "update label")
	}
	if n == 0 {
		return core.Label{}, core.NewNotFoundError("label", l.ID)
	}
	slog.InfoContext(ctx, "Label updated", "id", l.ID, "name", l.Name)
	return l, nil
}

func (r *SQLiteRepository) DeleteLabel(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteLabel(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError("label", id)
	}
	slog.InfoContext(ctx, "Label deleted", "id", id)
	return nil
}

// CreateTransaction inserts t and reads it back with its references resolved.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		DateMs:      t.Date.UnixMilli(),
		Amount:      t.Amount.StringFixed(core.AmountPlaces),
		Type:        string(t.Type),
		CategoryID:  t.CategoryID,
		LabelID:     nullString(t.LabelID),
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UnixMilli(),
		UpdatedAt:   t.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return core.Transaction{}, r.writeError(err, "transaction", t.OwnerID, nil, "create transaction")
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"date", t.Date.Key(),
		"amount", t.Amount.String(),
		"type", t.Type,
		"category_id", t.CategoryID)

	return r.GetTransaction(ctx, t.OwnerID, t.ID)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.NewNotFoundError("transaction", id)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row)
}

// ListTransactions returns one page of the filtered set, newest first with
// later inserts ahead on the same day. limit < 0 returns everything.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter, limit, offset int) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, filterParams(ownerID, f), int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) (int, error) {
	n, err := r.queries.CountTransactions(ctx, filterParams(ownerID, f))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		DateMs:      t.Date.UnixMilli(),
		Amount:      t.Amount.StringFixed(core.AmountPlaces),
		Type:        string(t.Type),
		CategoryID:  t.CategoryID,
		LabelID:     nullString(t.LabelID),
		Description: t.Description,
		UpdatedAt:   t.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.Transaction{}, core.NewNotFoundError("transaction", t.ID)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", t.ID, "date", t.Date.Key(), "amount", t.Amount.String())
	return r.GetTransaction(ctx, t.OwnerID, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError("transaction", id)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// writeError classifies constraint failures. A unique violation is a
// conflict on fields; a foreign key failure means the owner does not exist.
func (r *SQLiteRepository) writeError(err error, resource, ownerID string, fields []string, op string) error {
	switch {
	case isUniqueViolation(err):
		return core.NewConflictError(resource, fields...)
	case isForeignKeyViolation(err):
		return core.NewNotFoundError("user", ownerID)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

func filterParams(ownerID string, f core.TransactionFilter) TransactionFilterParams {
	p := TransactionFilterParams{
		OwnerID:    ownerID,
		Type:       nullString(string(f.Type)),
		CategoryID: nullString(f.CategoryID),
		LabelID:    nullString(f.LabelID),
	}
	if f.StartDate != nil {
		p.StartMs = sql.NullInt64{Int64: f.StartDate.UnixMilli(), Valid: true}
	}
	if f.EndDate != nil {
		p.EndMs = sql.NullInt64{Int64: f.EndDate.EndOfDay().UnixMilli(), Valid: true}
	}
	return p
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func userFromRow(row UserRow) core.User {
	return core.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         core.Role(row.Role),
		Active:       row.IsActive,
		CreatedAt:    fromMillis(row.CreatedAt),
		UpdatedAt:    fromMillis(row.UpdatedAt),
	}
}

func categoryToRow(c core.Category) CategoryRow {
	return CategoryRow{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		Type:        string(c.Type),
		Description: c.Description,
		Color:       c.Color,
		Icon:        c.Icon,
		IsActive:    c.Active,
		CreatedAt:   c.CreatedAt.UnixMilli(),
		UpdatedAt:   c.UpdatedAt.UnixMilli(),
	}
}

func categoryFromRow(row CategoryRow) core.Category {
	return core.Category{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Name:        row.Name,
		Type:        core.TransactionType(row.Type),
		Description: row.Description,
		Color:       row.Color,
		Icon:        row.Icon,
		Active:      row.IsActive,
		CreatedAt:   fromMillis(row.CreatedAt),
		UpdatedAt:   fromMillis(row.UpdatedAt),
	}
}

func labelToRow(l core.Label) LabelRow {
	return LabelRow{
		ID:        l.ID,
		OwnerID:   l.OwnerID,
		Name:      l.Name,
		Color:     l.Color,
		IsActive:  l.Active,
		CreatedAt: l.CreatedAt.UnixMilli(),
		UpdatedAt: l.UpdatedAt.UnixMilli(),
	}
}

func labelFromRow(row LabelRow) core.Label {
	return core.Label{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Color:     row.Color,
		Active:    row.IsActive,
		CreatedAt: fromMillis(row.CreatedAt),
		UpdatedAt: fromMillis(row.UpdatedAt),
	}
}

// transactionFromRow is the single place a stored date becomes a DateKey.
// Missing category or label rows resolve to the sentinel presentation.
func transactionFromRow(row TransactionRow) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount of transaction %s: %w", row.ID, err)
	}

	date := core.DateFromUnixMilli(row.DateMs)
	t := core.Transaction{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Date:        core.Date{Time: fromMillis(row.DateMs)},
		DateString:  date.Key(),
		Amount:      amount,
		Type:        core.TransactionType(row.Type),
		Description: row.Description,
		CategoryID:  row.CategoryID,
		CreatedAt:   fromMillis(row.CreatedAt),
		UpdatedAt:   fromMillis(row.UpdatedAt),
	}

	if row.CategoryName.Valid {
		name := row.CategoryName.String
		t.Category = core.CategoryRef{
			ID:    row.CategoryID,
			Name:  &name,
			Type:  core.TransactionType(row.CategoryType.String),
			Color: row.CategoryColor.String,
			Icon:  row.CategoryIcon.String,
		}
	} else {
		t.Category = core.NewMissingCategoryRef(row.CategoryID)
	}

	if row.LabelID.Valid {
		t.LabelID = row.LabelID.String
		if row.LabelName.Valid {
			name := row.LabelName.String
			t.Label = &core.LabelRef{ID: t.LabelID, Name: &name, Color: row.LabelColor.String}
		} else {
			t.Label = core.NewMissingLabelRef(t.LabelID)
		}
	}
	return t, nil
}
