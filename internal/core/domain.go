package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "Expenses"
	Income  TransactionType = "Income"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Presentation defaults applied when a field is left empty or a reference
// no longer resolves.
const (
	DefaultCategoryColor = "#007bff"
	DefaultCategoryIcon  = "📁"
	DefaultLabelColor    = "#94a3b8"
	FallbackColor        = "#6366f1"
)

type (
	TransactionType string

	Role string

	User struct {
		ID           string    `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Role         Role      `json:"role"`
		Active       bool      `json:"isActive"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	Category struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"-"`
		Name        string          `json:"name"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		Color       string          `json:"color"`
		Icon        string          `json:"icon"`
		Active      bool            `json:"isActive"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	Label struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"-"`
		Name      string    `json:"name"`
		Color     string    `json:"color"`
		Active    bool      `json:"isActive"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// CategoryRef is the category as seen from a transaction. Name is nil
	// when the referenced category was deleted.
	CategoryRef struct {
		ID    string          `json:"id"`
		Name  *string         `json:"name"`
		Type  TransactionType `json:"type,omitempty"`
		Color string          `json:"color"`
		Icon  string          `json:"icon"`
	}

	LabelRef struct {
		ID    string  `json:"id"`
		Name  *string `json:"name"`
		Color string  `json:"color"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"-"`
		Date        Date            `json:"date"`
		DateString  string          `json:"dateString"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		CategoryID  string          `json:"categoryId"`
		Category    CategoryRef     `json:"category"`
		LabelID     string          `json:"labelId,omitempty"`
		Label       *LabelRef       `json:"label"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	// TransactionFilter fields are optional and AND-combined. Date bounds are
	// inclusive calendar days.
	TransactionFilter struct {
		Type       TransactionType
		CategoryID string
		LabelID    string
		StartDate  *Date
		EndDate    *Date
	}

	Pagination struct {
		Current    int `json:"current"`
		PageSize   int `json:"pageSize"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	}

	TransactionPage struct {
		Transactions []Transaction `json:"transactions"`
		Pagination   Pagination    `json:"pagination"`
	}
)

// ParseTransactionType accepts the two canonical type names.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.TrimSpace(s)); t {
	case Expense, Income:
		return t, nil
	default:
		return "", NewValidationError("type", "must be one of Expenses, Income")
	}
}

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DayKey is the grouping key of a transaction. Records loaded from storage
// always carry DateString; the fallback covers hand-built values.
func (t Transaction) DayKey() string {
	if t.DateString != "" {
		return t.DateString
	}
	return DateFromInstant(t.Date.Time).Key()
}

// CalendarDate is the calendar day the transaction belongs to.
func (t Transaction) CalendarDate() Date {
	if t.DateString != "" {
		if d, err := ParseDateKey(t.DateString); err == nil {
			return d
		}
	}
	return DateFromInstant(t.Date.Time)
}

// NewMissingCategoryRef is the presentation of a category that no longer exists.
func NewMissingCategoryRef(id string) CategoryRef {
	return CategoryRef{ID: id, Color: FallbackColor, Icon: DefaultCategoryIcon}
}

// NewMissingLabelRef is the presentation of a label that no longer exists.
func NewMissingLabelRef(id string) *LabelRef {
	return &LabelRef{ID: id, Color: FallbackColor}
}

// TotalPages is ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Validate checks the fields a category needs before it is persisted.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if len(c.Name) > 100 {
		return NewValidationError("name", "must be at most 100 characters")
	}
	if !c.Type.Valid() {
		return NewValidationError("type", "must be one of Expenses, Income")
	}
	if len(c.Description) > 200 {
		return NewValidationError("description", "must be at most 200 characters")
	}
	return nil
}

func (l Label) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if len(l.Name) > 50 {
		return NewValidationError("name", "must be at most 50 characters")
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 {
		return NewValidationError("username", "must be at least 3 characters")
	}
	if !strings.Contains(u.Email, "@") {
		return NewValidationError("email", "must be a valid email address")
	}
	if !u.Role.Valid() {
		return NewValidationError("role", "must be one of user, admin")
	}
	return nil
}
