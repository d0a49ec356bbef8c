package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a local Ollama server over its HTTP API.
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client

	defaultTemperature float64
	defaultNumPredict  int
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpc = c
		}
	}
}

// WithDefaults sets the temperature and num_predict applied when a request
// leaves them unset.
func WithDefaults(temperature float64, numPredict int) Option {
	return func(cl *Client) {
		cl.defaultTemperature = temperature
		cl.defaultNumPredict = numPredict
	}
}

func NewClient(baseURL, model string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:   strings.TrimSpace(model),
		httpc:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float64
	NumPredict  int
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generatePayload struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type chatPayload struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

// CheckConnection reports whether the server answers /api/tags. It never
// returns an error; unreachable just means false.
func (c *Client) CheckConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// ListModels returns installed model names. Degrades to an empty list on any
// failure so callers can render a status page without special-casing.
func (c *Client) ListModels(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil
	}
	out := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, m.Name)
	}
	return out
}

// Generate runs a single non-streaming completion.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	temp := req.Temperature
	if temp == 0 {
		temp = c.defaultTemperature
	}
	numPredict := req.NumPredict
	if numPredict <= 0 {
		numPredict = c.defaultNumPredict
	}

	payload := generatePayload{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: map[string]any{
			"temperature": temp,
		},
	}
	if numPredict > 0 {
		payload.Options["num_predict"] = numPredict
	}

	body, err := c.post(ctx, "/api/generate", payload)
	if err != nil {
		return "", err
	}
	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return gr.Response, nil
}

// Chat runs a non-streaming chat completion over a message history.
func (c *Client) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	payload := chatPayload{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": temperature},
	}
	body, err := c.post(ctx, "/api/chat", payload)
	if err != nil {
		return "", err
	}
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return cr.Message.Content, nil
}

// Pull downloads a model. Streaming progress lines are drained; only the
// final status matters here.
func (c *Client) Pull(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("empty model name")
	}
	_, err := c.post(ctx, "/api/pull", map[string]any{"name": model, "stream": false})
	return err
}

// Embeddings returns the embedding vector for text under the client's model.
func (c *Client) Embeddings(ctx context.Context, text string) ([]float64, error) {
	body, err := c.post(ctx, "/api/embeddings", map[string]any{
		"model":  c.model,
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}
	var er embeddingsResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	return er.Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("ollama %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama %s: status %d: %s", path, resp.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
