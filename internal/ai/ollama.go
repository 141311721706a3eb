package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	defaultBaseURL     = "http://localhost:11434"
	defaultModel       = "qwen3max:latest"
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.3
	defaultTopP        = 0.9
	healthTimeout      = 5 * time.Second
)

// Rate limiter defaults: generation calls are expensive, cap at 30/minute.
const (
	defaultRateLimit = 30.0 / 60.0
	defaultBurst     = 3
)

// Config configures the Ollama client.
type Config struct {
	// BaseURL of the Ollama server (default http://localhost:11434).
	BaseURL string

	// Model name passed on every generate call.
	Model string

	// Timeout bounds a single generate call (default 30s).
	Timeout time.Duration

	// Temperature and TopP tune sampling; zero values use defaults.
	Temperature float64
	TopP        float64
}

// OllamaClient implements Generator against the Ollama /api/generate
// endpoint.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	topP        float64
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewOllamaClient creates a client with defaults applied for any zero
// config fields.
func NewOllamaClient(cfg Config) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	topP := cfg.TopP
	if topP == 0 {
		topP = defaultTopP
	}

	return &OllamaClient{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		topP:        topP,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// generateResponse is the non-streaming Ollama response body.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends a single prompt to Ollama and returns the raw response
// text. There is no retry: a failed call is the caller's signal to fall
// back.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			TopP:        c.topP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error (%d): %s", resp.StatusCode, string(raw))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("empty response from ollama")
	}

	return out.Response, nil
}

// tagsResponse is the Ollama /api/tags response body.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Healthy reports whether Ollama is reachable and the configured model
// is in its tag list.
func (c *OllamaClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == c.model {
			return true
		}
	}
	return false
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string { return c.model }

var _ Generator = (*OllamaClient)(nil)
