// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// list filters and paging from the query string, and JSON bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/services"
)

const maxBodyBytes = 1 << 20

// PageParams holds the raw paging request. Zero means "use the default".
type PageParams struct {
	Page  int
	Limit int
}

// ParseFilter reads type, categoryId, labelId, startDate and endDate.
// Dates must be YYYY-MM-DD calendar days.
func ParseFilter(query url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	f.CategoryID = strings.TrimSpace(query.Get("categoryId"))
	f.LabelID = strings.TrimSpace(query.Get("labelId"))

	var err error
	if f.StartDate, err = parseOptionalDate(query, "startDate"); err != nil {
		return f, err
	}
	if f.EndDate, err = parseOptionalDate(query, "endDate"); err != nil {
		return f, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, core.NewValidationError("endDate", "must not be before startDate")
	}
	return f, nil
}

func parseOptionalDate(query url.Values, key string) (*core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDateKey(v)
	if err != nil {
		return nil, core.NewValidationError(key, "must be a calendar date in YYYY-MM-DD form")
	}
	return &d, nil
}

// ParsePage reads page and limit. Non-integers are rejected; range checks
// are left to the service.
func ParsePage(query url.Values) (PageParams, error) {
	var p PageParams
	var err error
	if p.Page, err = optionalInt(query, "page"); err != nil {
		return p, err
	}
	if p.Limit, err = optionalInt(query, "limit"); err != nil {
		return p, err
	}
	return p, nil
}

func optionalInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

// decodeJSON reads a single JSON object into dst. Malformed bodies are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewValidationError("", "request body is required")
		case errors.As(err, &maxErr):
			return core.NewValidationError("", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return core.NewValidationError("", "request body must be a JSON object")
		}
	}
	if dec.More() {
		return core.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

// optionalString distinguishes an absent field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// amountText turns a JSON number or string into the decimal text the
// service parses. Numbers keep their literal digits.
func amountText(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, core.NewValidationError("amount", "must be a number")
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, core.NewValidationError("amount", "must be a number")
	}
	s := n.String()
	return &s, nil
}

type transactionRequest struct {
	Date        *string         `json:"date"`
	Amount      json.RawMessage `json:"amount"`
	Type        *string         `json:"type"`
	CategoryID  *string         `json:"categoryId"`
	LabelID     optionalString  `json:"labelId"`
	Description *string         `json:"description"`
}

func (req transactionRequest) toNew() (services.NewTransaction, error) {
	amount, err := amountText(req.Amount)
	if err != nil {
		return services.NewTransaction{}, err
	}
	return services.NewTransaction{
		Date:        deref(req.Date),
		Amount:      deref(amount),
		Type:        deref(req.Type),
		CategoryID:  deref(req.CategoryID),
		LabelID:     deref(req.LabelID.Value),
		Description: deref(req.Description),
	}, nil
}

// toPatch keeps absent fields nil. An explicit null label clears it, the same
// as an empty string.
func (req transactionRequest) toPatch() (services.TransactionPatch, error) {
	amount, err := amountText(req.Amount)
	if err != nil {
		return services.TransactionPatch{}, err
	}
	if len(bytes.TrimSpace(req.Amount)) > 0 && amount == nil {
		return services.TransactionPatch{}, core.NewValidationError("amount", "must not be null")
	}
	p := services.TransactionPatch{
		Date:        req.Date,
		Amount:      amount,
		Type:        req.Type,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	if req.LabelID.Set {
		label := deref(req.LabelID.Value)
		p.LabelID = &label
	}
	return p, nil
}

type categoryRequest struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	Active      *bool   `json:"isActive"`
}

func (req categoryRequest) toInput() services.CategoryInput {
	return services.CategoryInput{
		Name:        deref(req.Name),
		Type:        deref(req.Type),
		Description: deref(req.Description),
		Color:       deref(req.Color),
		Icon:        deref(req.Icon),
	}
}

func (req categoryRequest) toPatch() services.CategoryPatch {
	return services.CategoryPatch{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		Active:      req.Active,
	}
}

type labelRequest struct {
	Name   *string `json:"name"`
	Color  *string `json:"color"`
	Active *bool   `json:"isActive"`
}

func (req labelRequest) toInput() services.LabelInput {
	return services.LabelInput{Name: deref(req.Name), Color: deref(req.Color)}
}

func (req labelRequest) toPatch() services.LabelPatch {
	return services.LabelPatch{Name: req.Name, Color: req.Color, Active: req.Active}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type profileRequest struct {
	Username *string `json:"username"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
