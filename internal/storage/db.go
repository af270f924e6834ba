package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type UserRow struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    int64
	UpdatedAt    int64
}

type CategoryRow struct {
	ID          string
	OwnerID     string
	Name        string
	Type        string
	Description string
	Color       string
	Icon        string
	IsActive    bool
	CreatedAt   int64
	UpdatedAt   int64
}

type LabelRow struct {
	ID        string
	OwnerID   string
	Name      string
	Color     string
	IsActive  bool
	CreatedAt int64
	UpdatedAt int64
}

// TransactionRow is a transaction joined with whatever is left of its
// category and label.
type TransactionRow struct {
	ID            string
	OwnerID       string
	DateMs        int64
	Amount        string
	Type          string
	CategoryID    string
	LabelID       sql.NullString
	Description   string
	CreatedAt     int64
	UpdatedAt     int64
	CategoryName  sql.NullString
	CategoryType  sql.NullString
	CategoryColor sql.NullString
	CategoryIcon  sql.NullString
	LabelName     sql.NullString
	LabelColor    sql.NullString
}
