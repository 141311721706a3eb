package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaClient_Defaults(t *testing.T) {
	c := NewOllamaClient(Config{})

	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultModel, c.model)
	assert.Equal(t, defaultTemperature, c.temperature)
	assert.Equal(t, defaultTopP, c.topP)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
}

func TestGenerate_SendsWireFormat(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Model: got.Model, Response: "hello", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Model: "test-model", Temperature: 0.7, TopP: 0.8})
	out, err := c.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "say hello", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.7, got.Options.Temperature)
	assert.Equal(t, 0.8, got.Options.TopP)
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGenerate_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(generateResponse{Response: "late"})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "other"}, {"name": "test-model"}},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Model: "test-model"})
	assert.True(t, c.Healthy(context.Background()))

	c2 := NewOllamaClient(Config{BaseURL: srv.URL, Model: "absent-model"})
	assert.False(t, c2.Healthy(context.Background()))
}

func TestHealthy_Unreachable(t *testing.T) {
	c := NewOllamaClient(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.Healthy(context.Background()))
}
