package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// NewTransaction is the create request. Amount is the decimal text as sent
// by the client; an empty Date means today.
type NewTransaction struct {
	Date        string
	Amount      string
	Type        string
	CategoryID  string
	LabelID     string
	Description string
}

// TransactionPatch is a partial update. Nil fields are left unchanged; an
// empty LabelID clears the label.
type TransactionPatch struct {
	Date        *string
	Amount      *string
	Type        *string
	CategoryID  *string
	LabelID     *string
	Description *string
}

// TransactionService validates and stores owner scoped transactions.
type TransactionService struct {
	store       TransactionStore
	events      EventPublisher
	maxPageSize int
	now         func() time.Time
	newID       func() string
}

func NewTransactionService(store TransactionStore, events EventPublisher, maxPageSize int) *TransactionService {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	return &TransactionService{
		store:       store,
		events:      events,
		maxPageSize: maxPageSize,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// List returns one page of the owner's transactions. Count and fetch run
// concurrently; the total is best effort under concurrent writes.
func (s *TransactionService) List(ctx context.Context, ownerID string, f core.TransactionFilter, page, pageSize int) (core.TransactionPage, error) {
	page, pageSize, err := s.normalizePage(page, pageSize)
	if err != nil {
		return core.TransactionPage{}, err
	}
	if f.Type != "" && !f.Type.Valid() {
		return core.TransactionPage{}, core.NewValidationError("type", "must be one of Expenses, Income")
	}

	var (
		total int
		txs   []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountTransactions(gctx, ownerID, f)
		total = n
		return err
	})
	g.Go(func() error {
		items, err := s.store.ListTransactions(gctx, ownerID, f, pageSize, (page-1)*pageSize)
		txs = items
		return err
	})
	if err := g.Wait(); err != nil {
		return core.TransactionPage{}, err
	}

	if txs == nil {
		txs = make([]core.Transaction, 0)
	}
	return core.TransactionPage{
		Transactions: txs,
		Pagination: core.Pagination{
			Current:    page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: core.TotalPages(total, pageSize),
		},
	}, nil
}

// ListAll returns every transaction matching f, newest first.
func (s *TransactionService) ListAll(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, core.NewValidationError("type", "must be one of Expenses, Income")
	}
	return s.store.ListTransactions(ctx, ownerID, f, -1, 0)
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, ownerID, id)
}

// Create checks, in order: amount, type, date, category ownership, category
// type, label ownership. Nothing is written unless every check passes.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in NewTransaction) (core.Transaction, error) {
	if strings.TrimSpace(in.Amount) == "" || strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.CategoryID) == "" {
		return core.Transaction{}, core.NewValidationError("", "amount, type and categoryId are required")
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	date := core.Today(now)
	if strings.TrimSpace(in.Date) != "" {
		if date, err = core.ParseDateKey(in.Date); err != nil {
			return core.Transaction{}, err
		}
	}

	categoryID := strings.TrimSpace(in.CategoryID)
	category, err := s.store.GetCategory(ctx, ownerID, categoryID)
	if err != nil {
		return core.Transaction{}, err
	}
	if category.Type != typ {
		return core.Transaction{}, core.NewValidationError("type", "must match the category type")
	}

	labelID := strings.TrimSpace(in.LabelID)
	if labelID != "" {
		if _, err := s.store.GetLabel(ctx, ownerID, labelID); err != nil {
			return core.Transaction{}, err
		}
	}

	t, err := s.store.CreateTransaction(ctx, core.Transaction{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Date:        date,
		Amount:      amount,
		Type:        typ,
		CategoryID:  categoryID,
		LabelID:     labelID,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return core.Transaction{}, err
	}

	publish(ctx, s.events, amqp.TransactionCreated, ownerID, t.ID)
	return t, nil
}

// Update applies p to the owner's transaction. Whenever the type or the
// category changes, the effective pair must agree again, unless the kept
// category no longer exists.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, p TransactionPatch) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	if p.Date != nil {
		if t.Date, err = core.ParseDateKey(*p.Date); err != nil {
			return core.Transaction{}, err
		}
		t.DateString = t.Date.Key()
	}
	if p.Amount != nil {
		if t.Amount, err = core.ParseAmount(*p.Amount); err != nil {
			return core.Transaction{}, err
		}
	}
	typeChanged := false
	if p.Type != nil {
		typ, err := core.ParseTransactionType(*p.Type)
		if err != nil {
			return core.Transaction{}, err
		}
		typeChanged = typ != t.Type
		t.Type = typ
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}

	var category *core.Category
	if p.CategoryID != nil {
		categoryID := strings.TrimSpace(*p.CategoryID)
		if categoryID == "" {
			return core.Transaction{}, core.NewValidationError("categoryId", "is required")
		}
		if categoryID != t.CategoryID {
			c, err := s.store.GetCategory(ctx, ownerID, categoryID)
			if err != nil {
				return core.Transaction{}, err
			}
			category = &c
			t.CategoryID = categoryID
		}
	}
	if category == nil && typeChanged {
		c, err := s.store.GetCategory(ctx, ownerID, t.CategoryID)
		switch {
		case err == nil:
			category = &c
		case core.IsNotFound(err):
			slog.WarnContext(ctx, "Skipping type check against deleted category",
				"transaction_id", id,
				"category_id", t.CategoryID)
		default:
			return core.Transaction{}, err
		}
	}
	if category != nil && category.Type != t.Type {
		return core.Transaction{}, core.NewValidationError("type", "must match the category type")
	}

	if p.LabelID != nil {
		labelID := strings.TrimSpace(*p.LabelID)
		if labelID != "" {
			if _, err := s.store.GetLabel(ctx, ownerID, labelID); err != nil {
				return core.Transaction{}, err
			}
		}
		t.LabelID = labelID
	}

	t.UpdatedAt = s.now()
	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	publish(ctx, s.events, amqp.TransactionUpdated, ownerID, id)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}
	publish(ctx, s.events, amqp.TransactionDeleted, ownerID, id)
	return nil
}

// normalizePage applies defaults to zero values and clamps the page size.
func (s *TransactionService) normalizePage(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = DefaultPage
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return 0, 0, core.NewValidationError("page", "must be a positive integer")
	}
	if pageSize < 1 {
		return 0, 0, core.NewValidationError("limit", "must be a positive integer")
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize, nil
}
