// Package http provides HTTP server and handler implementations.
//
// This file decodes JSON request bodies, reporting malformed input as
// field-level validation errors.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"expensetracker/internal/core"
)

// bodyField names errors that concern the payload as a whole.
const bodyField = "body"

// decodeJSON decodes the request body into dst. An empty body leaves dst at
// its zero value so that required-field checks report what is missing.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var (
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return errBodyTooLarge
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = bodyField
		}
		return core.NewValidationError(field,
			fmt.Sprintf("Expected %s, received %s", jsonKind(typeErr.Type.Kind().String()), typeErr.Value))
	default:
		return core.NewValidationError(bodyField, "Malformed JSON")
	}
}

// jsonKind renders a Go kind as the JSON type a client would recognise.
func jsonKind(kind string) string {
	switch kind {
	case "float64", "float32", "int", "int64", "int32":
		return "number"
	case "struct", "map":
		return "object"
	case "slice", "array":
		return "array"
	case "bool":
		return "boolean"
	default:
		return kind
	}
}
