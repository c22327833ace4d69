// Package openai implements the llm.Invoker boundary against the OpenAI
// chat completions API.
package openai

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
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// Config holds connection settings for the OpenAI API.
type Config struct {
	APIKey  string
	BaseURL string        // defaults to https://api.openai.com
	Model   string        // defaults to gpt-4o-mini
	Timeout time.Duration // per-request timeout, defaults to 30s
}

// Client invokes chat completions against OpenAI.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

// New creates an OpenAI client.
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

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke sends a chat completion request and returns the first choice.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message, settings llm.Settings) (*llm.Result, error) {
	model := settings.Model
	if model == "" {
		model = c.model
	}

	reqBody := chatRequest{
		Model:       model,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llm.ClassifyRequestError(fmt.Errorf("openai request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.ClassifyRequestError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyHTTPError(resp.StatusCode,
			fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != nil {
		return nil, fmt.Errorf("openai error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	out := &llm.Result{
		Text:  result.Choices[0].Message.Content,
		Model: result.Model,
	}
	if result.Usage != nil {
		out.PromptTokens = result.Usage.PromptTokens
		out.CompletionTokens = result.Usage.CompletionTokens
		out.TokensKnown = true
	}
	return out, nil
}
