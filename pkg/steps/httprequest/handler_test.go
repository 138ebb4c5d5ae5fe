package httprequest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvex/canvex/pkg/protocol"
)

func TestFactoryRequiresURL(t *testing.T) {
	_, err := NewFactory().Create(map[string]any{})
	assert.Error(t, err)
}

func TestExecuteGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	handler, err := NewFactory().Create(map[string]any{"url": server.URL})
	require.NoError(t, err)

	output, err := handler.Execute(t.Context(), protocol.StepContext{}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, output["status_code"])
	assert.Equal(t, map[string]any{"ok": true}, output["body"])
}

func TestExecutePostWithTemplatedBody(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	handler, err := NewFactory().Create(map[string]any{
		"url":    server.URL,
		"method": "POST",
		"body":   `{"order": "{{.input.order_id}}"}`,
	})
	require.NoError(t, err)

	output, err := handler.Execute(t.Context(), protocol.StepContext{
		Input: map[string]any{"order_id": "A-17"},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, output["status_code"])
	assert.Equal(t, map[string]any{"order": "A-17"}, received)
}

func TestExecuteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	handler, err := NewFactory().Create(map[string]any{"url": server.URL})
	require.NoError(t, err)

	output, err := handler.Execute(t.Context(), protocol.StepContext{}, slog.Default())
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, output["status_code"])
}
