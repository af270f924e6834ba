// Package core provides the ledger domain: calendar dates, transactions,
// the category/label registry types, typed errors and pure aggregations.
//
// This file contains functions for parsing monetary amounts from strings.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits kept on stored amounts.
const AmountPlaces = 2

// ParseAmount converts a user supplied decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two places. Signs, exponents and thousands separators are rejected
// and the rounded result must be strictly positive.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("0.001")  -> error (rounds to zero)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, NewValidationError("amount", "must be a decimal number")
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			if r == '-' {
				return decimal.Zero, NewValidationError("amount", "must be greater than zero")
			}
			return decimal.Zero, NewValidationError("amount", "must be a decimal number")
		}
	}
	if s == "." {
		return decimal.Zero, NewValidationError("amount", "must be a decimal number")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "must be a decimal number")
	}
	return ValidateAmount(d)
}

// ValidateAmount rounds d to AmountPlaces and rejects non-positive values.
func ValidateAmount(d decimal.Decimal) (decimal.Decimal, error) {
	d = d.Round(AmountPlaces)
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "must be greater than zero")
	}
	return d, nil
}

// Sum adds up the amounts of txs.
func Sum(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
