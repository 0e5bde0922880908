// Package openaiclient implements the oracle port over an OpenAI-compatible
// chat-completions HTTP API.
package openaiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"aisignalbot/internal/ports"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second

	// The oracle is primed to answer as a trader-analyst; the role text
	// mirrors the one the prompts were tuned against.
	systemPrompt = "Выступи в роли профессионального трейдера-аналитика"
)

// Client implements the ports.Oracle interface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     ports.Logger
}

// Config holds configuration specific to the oracle client.
type Config struct {
	// BaseURL lets the client target any OpenAI-compatible endpoint.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  ports.Logger
}

// New creates an oracle client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for oracle client")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("oracle model name is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     cfg.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// Ask sends the prompt and returns the raw reply text. The reply content is
// located with gjson so unrelated schema changes in the API response do not
// break the client.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	requestID := uuid.NewString()

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug(ctx, "Oracle request sent", map[string]interface{}{
		"requestID":    requestID,
		"model":        c.model,
		"promptLength": len(prompt),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request %s failed: %w", requestID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response for request %s: %w", requestID, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle request %s returned status %d: %s", requestID, resp.StatusCode, truncate(string(body), 300))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.String() == "" {
		return "", fmt.Errorf("oracle request %s: %w", requestID, ports.ErrEmptyReply)
	}

	c.logger.Debug(ctx, "Oracle reply received", map[string]interface{}{
		"requestID":   requestID,
		"replyLength": len(content.String()),
	})
	return content.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
