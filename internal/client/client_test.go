package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"llmdesk/internal/config"
	"llmdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.BackendConfig{BaseURL: srv.URL + "/", Token: "tok", Timeout: 5 * time.Second})
}

func TestClient_Generate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req model.GenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, "hi", req.Prompt)
		assert.Equal(t, model.GenerationContext{1, 2, 3}, req.Context)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(model.GenerateResponse{
			Response:        "hello",
			Model:           "llama3",
			Context:         model.GenerationContext{4, 5},
			TotalDuration:   1000,
			PromptEvalCount: 3,
			EvalCount:       7,
			Done:            true,
		})
	})

	resp, err := c.Generate(context.Background(), &model.GenerateRequest{
		Model:   "llama3",
		Prompt:  "hi",
		Context: model.GenerationContext{1, 2, 3},
		Stream:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Response)
	assert.Equal(t, model.GenerationContext{4, 5}, resp.Context)
	assert.Equal(t, 7, resp.EvalCount)
}

func TestClient_GenerateOmitsEmptyContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, present := raw["context"]
		assert.False(t, present)
		w.Write([]byte(`{"response":"ok","done":true}`))
	})

	resp, err := c.Generate(context.Background(), &model.GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Nil(t, resp.Context)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"model not loaded"}`))
	})

	_, err := c.Generate(context.Background(), &model.GenerateRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "model not loaded", apiErr.Message)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_PlainTextError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.StartDownload(context.Background(), "llama3")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestClient_DownloadEndpoints(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.EscapedPath())
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/models/pull":
			var body model.PullRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "llama3:8b", body.Name)
			w.Write([]byte(`{"status":"accepted"}`))
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"status":"downloading","progress":42.5,"message":"pulling layers"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	ops := DownloadOperations{Client: c}

	require.NoError(t, ops.Start(ctx, "llama3:8b"))

	op, err := ops.Status(ctx, "llama3:8b")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDownloading, op.Status)
	assert.Equal(t, 42.5, op.Progress)
	assert.Equal(t, "pulling layers", op.Message)

	require.NoError(t, ops.Clear(ctx, "llama3:8b"))

	assert.Equal(t, []string{
		"POST /api/models/pull",
		"GET /api/models/pull/llama3:8b/progress",
		"DELETE /api/models/pull/llama3:8b/progress",
	}, calls)
}

func TestClient_ListModelsAndHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/models":
			w.Write([]byte(`{"models":[{"name":"llama3","size":42},{"name":"mistral","size":7}]}`))
		case "/api/health":
			w.Write([]byte(`{"status":"healthy","connected":true,"timestamp":"2024-01-01T00:00:00Z","version":"0.3.1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "mistral", models[1].Name)

	health, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Connected)
	assert.Equal(t, "0.3.1", health.Version)
}

func TestTrainingOperations_Status(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/training/jobs/job-1", r.URL.Path)
		w.Write([]byte(`{"id":"job-1","status":"running","progress":10,"message":"epoch 1/10"}`))
	})

	op, err := TrainingOperations{Client: c}.Status(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.DownloadOperation{
		Key:      "job-1",
		Status:   model.StatusDownloading,
		Progress: 10,
		Message:  "epoch 1/10",
	}, op)
}

func TestTrainingStatus(t *testing.T) {
	cases := map[string]model.OperationStatus{
		"queued":    model.StatusInitiated,
		"running":   model.StatusDownloading,
		"succeeded": model.StatusCompleted,
		"failed":    model.StatusFailed,
		"cancelled": model.StatusFailed,
		"weird":     model.StatusInitiated,
	}
	for in, want := range cases {
		assert.Equal(t, want, TrainingStatus(in), in)
	}
}
