package storage

import (
	"context"
	"database/sql"
)

const createUser = `
INSERT INTO users (id, username, email, password_hash, role, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u UserRow) error {
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at, updated_at`

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, rowid`

func (q *Queries) ListUsers(ctx context.Context) ([]UserRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRow
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const setUserActive = `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetUserActive(ctx context.Context, id string, active bool, updatedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, setUserActive, active, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateUsername = `UPDATE users SET username = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUsername(ctx context.Context, id, username string, updatedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUsername, username, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setUserPassword = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetUserPassword(ctx context.Context, id, hash string, updatedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, setUserPassword, hash, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const categoryColumns = `id, owner_id, name, type, description, color, icon, is_active, created_at, updated_at`

const createCategory = `
INSERT INTO categories (` + categoryColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c CategoryRow) error {
	_, err := q.db.ExecContext(ctx, createCategory,
		c.ID, c.OwnerID, c.Name, c.Type, c.Description, c.Color, c.Icon, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return err
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ? AND owner_id = ?`

func (q *Queries) GetCategory(ctx context.Context, id, ownerID string) (CategoryRow, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id, ownerID))
}

const listCategories = `
SELECT ` + categoryColumns + ` FROM categories
WHERE owner_id = @owner_id AND (@type IS NULL OR type = @type)
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListCategories(ctx context.Context, ownerID string, typ sql.NullString) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, sql.Named("owner_id", ownerID), sql.Named("type", typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCategory = `
UPDATE categories
SET name = ?, type = ?, description = ?, color = ?, icon = ?, is_active = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c CategoryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory,
		c.Name, c.Type, c.Description, c.Color, c.Icon, c.IsActive, c.UpdatedAt, c.ID, c.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM categories WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const labelColumns = `id, owner_id, name, color, is_active, created_at, updated_at`

const createLabel = `
INSERT INTO labels (` + labelColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateLabel(ctx context.Context, l LabelRow) error {
	_, err := q.db.ExecContext(ctx, createLabel,
		l.ID, l.OwnerID, l.Name, l.Color, l.IsActive, l.CreatedAt, l.UpdatedAt)
	return err
}

const getLabel = `SELECT ` + labelColumns + ` FROM labels WHERE id = ? AND owner_id = ?`

func (q *Queries) GetLabel(ctx context.Context, id, ownerID string) (LabelRow, error) {
	return scanLabel(q.db.QueryRowContext(ctx, getLabel, id, ownerID))
}

const listLabels = `
SELECT ` + labelColumns + ` FROM labels
WHERE owner_id = ?
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListLabels(ctx context.Context, ownerID string) ([]LabelRow, error) {
	rows, err := q.db.QueryContext(ctx, listLabels, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LabelRow
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const updateLabel = `
UPDATE labels SET name = ?, color = ?, is_active = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateLabel(ctx context.Context, l LabelRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateLabel, l.Name, l.Color, l.IsActive, l.UpdatedAt, l.ID, l.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteLabel = `DELETE FROM labels WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteLabel(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteLabel, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTransaction = `
INSERT INTO transactions (id, owner_id, date_ms, amount, type, category_id, label_id, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateTransactionParams struct {
	ID          string
	OwnerID     string
	DateMs      int64
	Amount      string
	Type        string
	CategoryID  string
	LabelID     sql.NullString
	Description string
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		p.ID, p.OwnerID, p.DateMs, p.Amount, p.Type, p.CategoryID, p.LabelID, p.Description, p.CreatedAt, p.UpdatedAt)
	return err
}

const transactionSelect = `
SELECT t.id, t.owner_id, t.date_ms, t.amount, t.type, t.category_id, t.label_id, t.description,
       t.created_at, t.updated_at,
       c.name, c.type, c.color, c.icon,
       l.name, l.color
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id AND c.owner_id = t.owner_id
LEFT JOIN labels l ON l.id = t.label_id AND l.owner_id = t.owner_id`

const getTransaction = transactionSelect + `
WHERE t.id = ? AND t.owner_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, ownerID string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, ownerID))
}

const transactionFilter = `
WHERE t.owner_id = @owner_id
  AND (@type IS NULL OR t.type = @type)
  AND (@category_id IS NULL OR t.category_id = @category_id)
  AND (@label_id IS NULL OR t.label_id = @label_id)
  AND (@start_ms IS NULL OR t.date_ms >= @start_ms)
  AND (@end_ms IS NULL OR t.date_ms <= @end_ms)`

// TransactionFilterParams carries the optional list filters. Null fields do
// not constrain the result.
type TransactionFilterParams struct {
	OwnerID    string
	Type       sql.NullString
	CategoryID sql.NullString
	LabelID    sql.NullString
	StartMs    sql.NullInt64
	EndMs      sql.NullInt64
}

func (p TransactionFilterParams) args() []interface{} {
	return []interface{}{
		sql.Named("owner_id", p.OwnerID),
		sql.Named("type", p.Type),
		sql.Named("category_id", p.CategoryID),
		sql.Named("label_id", p.LabelID),
		sql.Named("start_ms", p.StartMs),
		sql.Named("end_ms", p.EndMs),
	}
}

const listTransactions = transactionSelect + transactionFilter + `
ORDER BY t.date_ms DESC, t.rowid DESC
LIMIT @limit OFFSET @offset`

// ListTransactions pages through the filtered set. A negative limit returns
// every row.
func (q *Queries) ListTransactions(ctx context.Context, p TransactionFilterParams, limit, offset int64) ([]TransactionRow, error) {
	args := append(p.args(), sql.Named("limit", limit), sql.Named("offset", offset))
	rows, err := q.db.QueryContext(ctx, listTransactions, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const countTransactions = `SELECT COUNT(*) FROM transactions t` + transactionFilter

func (q *Queries) CountTransactions(ctx context.Context, p TransactionFilterParams) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions, p.args()...).Scan(&n)
	return n, err
}

const updateTransaction = `
UPDATE transactions
SET date_ms = ?, amount = ?, type = ?, category_id = ?, label_id = ?, description = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

type UpdateTransactionParams struct {
	ID          string
	OwnerID     string
	DateMs      int64
	Amount      string
	Type        string
	CategoryID  string
	LabelID     sql.NullString
	Description string
	UpdatedAt   int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, p UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		p.DateMs, p.Amount, p.Type, p.CategoryID, p.LabelID, p.Description, p.UpdatedAt, p.ID, p.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(r rowScanner) (UserRow, error) {
	var u UserRow
	err := r.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func scanCategory(r rowScanner) (CategoryRow, error) {
	var c CategoryRow
	err := r.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type, &c.Description, &c.Color, &c.Icon, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanLabel(r rowScanner) (LabelRow, error) {
	var l LabelRow
	err := r.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Color, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func scanTransaction(r rowScanner) (TransactionRow, error) {
	var t TransactionRow
	err := r.Scan(
		&t.ID, &t.OwnerID, &t.DateMs, &t.Amount, &t.Type, &t.CategoryID, &t.LabelID, &t.Description,
		&t.CreatedAt, &t.UpdatedAt,
		&t.CategoryName, &t.CategoryType, &t.CategoryColor, &t.CategoryIcon,
		&t.LabelName, &t.LabelColor,
	)
	return t, err
}
