// Package ollama implements the llm.Invoker boundary against a locally
// hosted Ollama server. Because it needs no API key and runs offline, it is
// the preferred route for background summarization.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quillhealthco/keepsake/pkg/llm"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"
	defaultTimeout = 30 * time.Second
)

// Config holds connection settings for an Ollama server.
type Config struct {
	BaseURL string        // defaults to http://localhost:11434
	Model   string        // defaults to llama3.2
	Timeout time.Duration // per-request timeout, defaults to 30s
}

// Client invokes chat completions against Ollama.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

// New creates an Ollama client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		http:    http.DefaultClient,
	}
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Model           string `json:"model"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// Invoke sends a non-streaming chat request and returns the reply text with
// token counts when Ollama reports them.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message, settings llm.Settings) (*llm.Result, error) {
	model := settings.Model
	if model == "" {
		model = c.model
	}

	reqBody := chatRequest{
		Model:  model,
		Stream: false,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if settings.Temperature != nil {
		reqBody.Options = map[string]any{"temperature": *settings.Temperature}
	}
	if settings.MaxTokens > 0 {
		if reqBody.Options == nil {
			reqBody.Options = map[string]any{}
		}
		reqBody.Options["num_predict"] = settings.MaxTokens
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llm.ClassifyRequestError(fmt.Errorf("ollama request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.ClassifyRequestError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyHTTPError(resp.StatusCode,
			fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", result.Error)
	}
	if result.Message.Content == "" {
		return nil, errors.New("ollama returned empty content")
	}

	return &llm.Result{
		Text:             result.Message.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptEvalCount,
		CompletionTokens: result.EvalCount,
		TokensKnown:      result.PromptEvalCount > 0 || result.EvalCount > 0,
	}, nil
}
