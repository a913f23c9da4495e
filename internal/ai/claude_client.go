package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	claudeBaseURL    = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
)

// ClaudeConfig configures the Claude client.
type ClaudeConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ClaudeClient implements Generator against the Anthropic messages API.
// Calls go through a circuit breaker and are never retried.
type ClaudeClient struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	apiKey         string
	model          string
	baseURL        string
	logger         *logrus.Logger
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type claudeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClaudeClient(cfg ClaudeConfig, logger *logrus.Logger) *ClaudeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = claudeBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "claude-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("Claude API circuit breaker state changed")
		},
	})

	return &ClaudeClient{
		httpClient:     &http.Client{Timeout: timeout},
		circuitBreaker: cb,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		baseURL:        strings.TrimRight(base, "/"),
		logger:         logger,
	}
}

// Generate sends the prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (c *ClaudeClient) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("claude API key not configured")
	}

	payload, err := json.MarshalIndent(prompt.Payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prompt payload: %w", err)
	}

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	request := claudeRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: prompt.Temperature,
		System:      prompt.System,
		Messages: []claudeMessage{{
			Role:    "user",
			Content: prompt.Instruction + "\n\n" + string(payload),
		}},
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.makeRequest(ctx, request)
	})
	if err != nil {
		return nil, fmt.Errorf("claude API request failed: %w", err)
	}

	resp := result.(*claudeResponse)
	c.logger.WithFields(logrus.Fields{
		"model":         resp.Model,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"stop_reason":   resp.StopReason,
	}).Debug("Claude completion received")

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return []byte(text.String()), nil
}

func (c *ClaudeClient) makeRequest(ctx context.Context, request claudeRequest) (*claudeResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr claudeError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("invalid API credentials: %s", msg)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limit exceeded: %s", msg)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("bad request: %s", msg)
		default:
			return nil, fmt.Errorf("unexpected error (status %d): %s", resp.StatusCode, msg)
		}
	}

	var out claudeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// State reports the circuit breaker state for health checks.
func (c *ClaudeClient) State() gobreaker.State {
	return c.circuitBreaker.State()
}
