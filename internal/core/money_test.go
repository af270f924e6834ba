package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{"12.345", "12.35", true},
		{"12,344", "12.34", true},
		{"0.005", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)
			assert.True(t, IsValidation(err), tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.out, got.String(), tc.in)
	}
}

func TestErrorKinds(t *testing.T) {
	v := NewValidationError("amount", "must be greater than zero")
	assert.EqualError(t, v, "validation failed for amount: must be greater than zero")
	assert.True(t, IsValidation(v))
	assert.False(t, IsNotFound(v))

	n := NewNotFoundError("category", "abc")
	assert.EqualError(t, n, `category "abc" not found`)
	assert.True(t, IsNotFound(n))

	c := NewConflictError("category", "type", "name")
	assert.EqualError(t, c, "category already exists with the same type, name")
	assert.True(t, IsConflict(c))
}
