package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Format: "json", Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentRecurring)

	logger.InfoContext(context.Background(), "Recurring expense created", FieldRecurringExpenseID, 4)
	logger.WithComponent(ComponentBudget).WarnContext(context.Background(), "no default template")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "recurring", lines[0][FieldComponent])
	assert.Equal(t, float64(4), lines[0][FieldRecurringExpenseID])
	assert.Equal(t, "budget", lines[1][FieldComponent])
	assert.Equal(t, "WARN", lines[1]["level"])
}

func TestFromContextDefaults(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Equal(t, "unknown", logger.Component())
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentApp)

	var seen *Logger
	handler := Middleware(logger)(
		ComponentMiddleware(ComponentHTTP)(
			RequestIDMiddleware(func(context.Context) string { return "req-1" })(
				AccessLog(func(*http.Request) string { return "10.0.0.1" })(
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						seen = FromContext(r.Context())
						w.WriteHeader(http.StatusNotFound)
					})))))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets/9?x=1", nil))

	require.NotNil(t, seen)
	assert.Equal(t, ComponentHTTP, seen.Component())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "req-1", lines[0][FieldRequestID])
	assert.Equal(t, float64(404), lines[0][FieldStatusCode])
	assert.Equal(t, "/api/budgets/9", lines[0][FieldPath])
	assert.Equal(t, "x=1", lines[0][FieldQuery])
	assert.Equal(t, "10.0.0.1", lines[0][FieldClientIP])
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithUser(3).
		WithBudget(9, "2024-02").
		WithOperation(OpGenerate).
		WithError(nil).
		WithRequestID("")

	assert.Equal(t, LogFields{
		FieldUserID:    int64(3),
		FieldBudgetID:  int64(9),
		FieldMonth:     "2024-02",
		FieldOperation: OpGenerate,
	}, fields)
	assert.Len(t, fields.ToSlice(), 8)
}
