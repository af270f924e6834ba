package services

import (
	"context"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

// TransactionStore is the persistence the transaction service needs. The
// registry lookups are used to validate references on write.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter, limit, offset int) ([]core.Transaction, error)
	CountTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) (int, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) error

	GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
	GetLabel(ctx context.Context, ownerID, id string) (core.Label, error)
}

type RegistryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
	ListCategories(ctx context.Context, ownerID string, typ core.TransactionType) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string) error

	CreateLabel(ctx context.Context, l core.Label) (core.Label, error)
	GetLabel(ctx context.Context, ownerID, id string) (core.Label, error)
	ListLabels(ctx context.Context, ownerID string) ([]core.Label, error)
	UpdateLabel(ctx context.Context, l core.Label) (core.Label, error)
	DeleteLabel(ctx context.Context, ownerID, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	SetUserActive(ctx context.Context, id string, active bool, at time.Time) error
	UpdateUsername(ctx context.Context, id, username string, at time.Time) (core.User, error)
	SetUserPassword(ctx context.Context, id, passwordHash string, at time.Time) error
}

// EventPublisher receives change notifications after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, event *amqp.LedgerEvent) error
}
