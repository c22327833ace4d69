// Package anthropic implements the llm.Invoker boundary against the
// Anthropic messages API.
package anthropic

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
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024
	apiVersion       = "2023-06-01"
)

// Config holds connection settings for the Anthropic API.
type Config struct {
	APIKey  string
	BaseURL string        // defaults to https://api.anthropic.com
	Model   string        // defaults to claude-haiku-4-5-20251001
	Timeout time.Duration // per-request timeout, defaults to 30s
}

// Client invokes the messages API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

// New creates an Anthropic client.
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
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		http:    http.DefaultClient,
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke sends a messages request. System-role messages are lifted into the
// API's top-level system field.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message, settings llm.Settings) (*llm.Result, error) {
	model := settings.Model
	if model == "" {
		model = c.model
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: settings.Temperature,
	}
	for _, m := range messages {
		if m.Role == "system" {
			if reqBody.System != "" {
				reqBody.System += "\n\n"
			}
			reqBody.System += m.Content
			continue
		}
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llm.ClassifyRequestError(fmt.Errorf("anthropic request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.ClassifyRequestError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyHTTPError(resp.StatusCode,
			fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != nil {
		return nil, fmt.Errorf("anthropic error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		return nil, errors.New("anthropic returned no content")
	}

	out := &llm.Result{
		Text:  result.Content[0].Text,
		Model: result.Model,
	}
	if result.Usage != nil {
		out.PromptTokens = result.Usage.InputTokens
		out.CompletionTokens = result.Usage.OutputTokens
		out.TokensKnown = true
	}
	return out, nil
}
