package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/log"
)

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	assert.True(t, strings.HasPrefix(a, "req_"))
	assert.Len(t, a, len("req_")+16)
	assert.NotEqual(t, a, b)
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Component: "test", Output: &buf})
	m := NewMiddleware(logger, func(r *http.Request) string { return "10.0.0.7" })

	var seenID string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusInternalServerError) // ignored
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses?x=1", nil))

	require.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, Metrics{TotalRequests: 1}, m.GetMetrics())

	var lines []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, "inside handler", lines[1]["msg"])
	assert.Equal(t, seenID, lines[1][log.FieldRequestID])
	assert.Equal(t, "10.0.0.7", lines[1][log.FieldClientIP])

	done := lines[2]
	assert.Equal(t, "HTTP request completed", done["msg"])
	assert.Equal(t, "WARN", done["level"])
	assert.Equal(t, float64(http.StatusTeapot), done[log.FieldStatusCode])
	assert.Equal(t, "/expenses", done[log.FieldPath])
	assert.Equal(t, false, done[log.FieldSuccess])
}

func TestMiddlewareCountsServerErrors(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, Metrics{TotalRequests: 2, ServerErrors: 2}, m.GetMetrics())
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
