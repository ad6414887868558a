package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError("invalid_request", "bad\nvalue", http.StatusBadRequest).
		WithDetails(map[string]any{"field": "seed"}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "invalid_request", body["error"])
	require.Equal(t, "bad value", body["message"])
	require.Equal(t, float64(http.StatusBadRequest), body["status"])
	require.Equal(t, "req-1", body["request_id"])
	require.Equal(t, "seed", body["field"])
	require.NotContains(t, body, "trace_id")
}

func TestNewErrorDefaultsAndTruncates(t *testing.T) {
	err := NewError(strings.Repeat("x", 100), "boom", 0)
	require.Equal(t, http.StatusInternalServerError, err.Status)
	require.Len(t, err.Code, 80)
}
