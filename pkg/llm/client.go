package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

const (
	completionsEndpoint = "/chat/completions"
	defaultTimeout      = 60 * time.Second
	maxResponseBytes    = 1 << 20
)

var (
	ErrDisabled        = errors.New("llm completion is not configured")
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
	errAPIKeyRequired  = errors.New("llm api key is required")
)

// Prompt is a single system + user exchange.
type Prompt struct {
	System string
	User   string
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	logg        *logger.Logger
}

func NewClient(cfg config.LLMConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      apiKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logg:        logg,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) Complete(ctx context.Context, prompt Prompt) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("completion api status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("completion api status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode completion response: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	if c.logg != nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"model":       c.model,
			"duration_ms": time.Since(started).Milliseconds(),
			"chars":       len(content),
		}), "llm completion received")
	}
	return content, nil
}

// Disabled fails every completion; used when no API key is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, Prompt) (string, error) {
	return "", ErrDisabled
}
