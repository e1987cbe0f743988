package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"llmdesk/internal/config"
	"llmdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])
		messages := body["messages"].([]any)
		if !assert.Len(t, messages, 2) {
			return
		}
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "pong"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-test"})

	resp, err := gen.Generate(context.Background(), &model.GenerateRequest{Prompt: "ping", System: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Response)
	assert.Equal(t, 5, resp.PromptEvalCount)
	assert.Equal(t, 1, resp.EvalCount)
	assert.Nil(t, resp.Context)
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(config.OpenAIConfig{APIKey: "nope", BaseURL: srv.URL + "/v1", Model: "gpt-test"})

	_, err := gen.Generate(context.Background(), &model.GenerateRequest{Prompt: "ping"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "bad key", apiErr.Message)
}
