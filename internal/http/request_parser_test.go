package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{name: "valid", body: `{"amount": 12.5, "category": "Food", "date": "2024-01-01"}`},
		{name: "empty body", body: ``},
		{name: "null body", body: `null`},
		{name: "unknown fields ignored", body: `{"amount": 1, "extra": true}`},
		{name: "malformed", body: `{"amount": `, wantField: "body", wantMsg: "Malformed JSON"},
		{name: "not json", body: `amount=12`, wantField: "body", wantMsg: "Malformed JSON"},
		{name: "amount as string", body: `{"amount": "12.5"}`, wantField: "amount", wantMsg: "Expected number, received string"},
		{name: "category as number", body: `{"category": 7}`, wantField: "category", wantMsg: "Expected string, received number"},
		{name: "array body", body: `[1,2]`, wantField: "body", wantMsg: "Expected object, received array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			var in services.CreateExpenseInput
			err := decodeJSON(req, &in)

			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			ve, ok := core.AsValidationError(err)
			require.True(t, ok, "expected ValidationError, got %v", err)
			require.Len(t, ve.Fields, 1)
			assert.Equal(t, tt.wantField, ve.Fields[0].Field)
			assert.Equal(t, tt.wantMsg, ve.Fields[0].Message)
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	body := `{"description": "` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
	req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 16)

	var in services.CreateExpenseInput
	err := decodeJSON(req, &in)
	assert.True(t, errors.Is(err, errBodyTooLarge), "got %v", err)
}
