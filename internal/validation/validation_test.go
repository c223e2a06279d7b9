package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type expenseInput struct {
	Amount   *float64 `json:"amount" validate:"required"`
	Category *string  `json:"category" validate:"omitnil,min=1"`
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,maxbytes=72"`
}

func TestStruct(t *testing.T) {
	amount := 12.5
	empty := ""

	tests := []struct {
		name   string
		input  any
		fields map[string]string
	}{
		{
			name:  "valid credentials",
			input: credentials{Email: "a@example.com", Password: "secret1"},
		},
		{
			name:  "missing credentials",
			input: credentials{},
			fields: map[string]string{
				"email":    "Required",
				"password": "Required",
			},
		},
		{
			name:  "bad email and short password",
			input: credentials{Email: "not-an-email", Password: "abc"},
			fields: map[string]string{
				"email":    "Invalid email",
				"password": "String must contain at least 6 character(s)",
			},
		},
		{
			name:  "expense missing amount, bad date, empty category",
			input: expenseInput{Category: &empty, Date: "05-01-2024"},
			fields: map[string]string{
				"amount":   "Required",
				"category": "String must contain at least 1 character(s)",
				"date":     "Expected date in YYYY-MM-DD format",
			},
		},
		{
			name:  "expense valid with nil category",
			input: expenseInput{Amount: &amount, Date: "2024-01-05"},
		},
		{
			name:   "password over byte limit",
			input:  passwordInput{Password: strings.Repeat("é", 40)},
			fields: map[string]string{"password": "String must contain at most 72 byte(s)"},
		},
		{
			name:  "password at byte limit",
			input: passwordInput{Password: strings.Repeat("p", 72)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			ve, ok := core.AsValidationError(err)
			require.True(t, ok, "expected ValidationError, got %v", err)

			got := map[string]string{}
			for _, f := range ve.Fields {
				got[f.Field] = f.Message
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := Struct(42)
	require.Error(t, err)
	_, ok := core.AsValidationError(err)
	assert.False(t, ok)
}
