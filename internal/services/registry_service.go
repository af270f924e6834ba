package services

import (
	"context"
	"strings"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"

	"github.com/google/uuid"
)

type CategoryInput struct {
	Name        string
	Type        string
	Description string
	Color       string
	Icon        string
}

type CategoryPatch struct {
	Name        *string
	Type        *string
	Description *string
	Color       *string
	Icon        *string
	Active      *bool
}

type LabelInput struct {
	Name  string
	Color string
}

type LabelPatch struct {
	Name   *string
	Color  *string
	Active *bool
}

// RegistryService manages categories and labels. Name uniqueness is left to
// the store's unique indexes, which turn races into ConflictError.
type RegistryService struct {
	store  RegistryStore
	events EventPublisher
	now    func() time.Time
	newID  func() string
}

func NewRegistryService(store RegistryStore, events EventPublisher) *RegistryService {
	return &RegistryService{
		store:  store,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ListCategories returns newest first. typ may be empty.
func (s *RegistryService) ListCategories(ctx context.Context, ownerID, typ string) ([]core.Category, error) {
	var t core.TransactionType
	if strings.TrimSpace(typ) != "" {
		parsed, err := core.ParseTransactionType(typ)
		if err != nil {
			return nil, err
		}
		t = parsed
	}
	return s.store.ListCategories(ctx, ownerID, t)
}

func (s *RegistryService) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	return s.store.GetCategory(ctx, ownerID, id)
}

func (s *RegistryService) CreateCategory(ctx context.Context, ownerID string, in CategoryInput) (core.Category, error) {
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Category{}, err
	}
	now := s.now()
	c := core.Category{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Type:        typ,
		Description: strings.TrimSpace(in.Description),
		Color:       orDefault(in.Color, core.DefaultCategoryColor),
		Icon:        orDefault(in.Icon, core.DefaultCategoryIcon),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	publish(ctx, s.events, amqp.CategoryCreated, ownerID, created.ID)
	return created, nil
}

func (s *RegistryService) UpdateCategory(ctx context.Context, ownerID, id string, p CategoryPatch) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, err
	}

	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		if c.Type, err = core.ParseTransactionType(*p.Type); err != nil {
			return core.Category{}, err
		}
	}
	if p.Description != nil {
		c.Description = strings.TrimSpace(*p.Description)
	}
	if p.Color != nil {
		c.Color = orDefault(*p.Color, core.DefaultCategoryColor)
	}
	if p.Icon != nil {
		c.Icon = orDefault(*p.Icon, core.DefaultCategoryIcon)
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	c.UpdatedAt = s.now()
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	publish(ctx, s.events, amqp.CategoryUpdated, ownerID, id)
	return updated, nil
}

// DeleteCategory removes the category only. Transactions keep their
// reference and resolve it to the missing-category presentation.
func (s *RegistryService) DeleteCategory(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteCategory(ctx, ownerID, id); err != nil {
		return err
	}
	publish(ctx, s.events, amqp.CategoryDeleted, ownerID, id)
	return nil
}

func (s *RegistryService) ListLabels(ctx context.Context, ownerID string) ([]core.Label, error) {
	return s.store.ListLabels(ctx, ownerID)
}

func (s *RegistryService) GetLabel(ctx context.Context, ownerID, id string) (core.Label, error) {
	return s.store.GetLabel(ctx, ownerID, id)
}

func (s *RegistryService) CreateLabel(ctx context.Context, ownerID string, in LabelInput) (core.Label, error) {
	now := s.now()
	l := core.Label{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(in.Name),
		Color:     orDefault(in.Color, core.DefaultLabelColor),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.Validate(); err != nil {
		return core.Label{}, err
	}

	created, err := s.store.CreateLabel(ctx, l)
	if err != nil {
		return core.Label{}, err
	}
	publish(ctx, s.events, amqp.LabelCreated, ownerID, created.ID)
	return created, nil
}

func (s *RegistryService) UpdateLabel(ctx context.Context, ownerID, id string, p LabelPatch) (core.Label, error) {
	l, err := s.store.GetLabel(ctx, ownerID, id)
	if err != nil {
		return core.Label{}, err
	}
	if p.Name != nil {
		l.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		l.Color = orDefault(*p.Color, core.DefaultLabelColor)
	}
	if p.Active != nil {
		l.Active = *p.Active
	}
	if err := l.Validate(); err != nil {
		return core.Label{}, err
	}

	l.UpdatedAt = s.now()
	updated, err := s.store.UpdateLabel(ctx, l)
	if err != nil {
		return core.Label{}, err
	}
	publish(ctx, s.events, amqp.LabelUpdated, ownerID, id)
	return updated, nil
}

func (s *RegistryService) DeleteLabel(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteLabel(ctx, ownerID, id); err != nil {
		return err
	}
	publish(ctx, s.events, amqp.LabelDeleted, ownerID, id)
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
