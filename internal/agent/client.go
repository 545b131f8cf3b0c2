package agent

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
)

// Failure classes for the completion call. Rate limits, timeouts, and
// connection failures are retryable; other API errors are not.
var (
	errRateLimited = errors.New("rate limited")
	errTimeout     = errors.New("request timed out")
	errConnection  = errors.New("connection failed")
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func isRetryable(err error) bool {
	return errors.Is(err, errRateLimited) || errors.Is(err, errTimeout) || errors.Is(err, errConnection)
}

// completeChat performs a single chat completion request bounded by
// timeout and returns the first choice's text.
func (a *Agent) completeChat(ctx context.Context, messages []chatMessage, maxTokens int, timeout time.Duration) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		Temperature: a.cfg.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	request, err := http.NewRequestWithContext(cctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := a.httpc.Do(request)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", errTimeout, timeout)
		}
		return "", fmt.Errorf("%w: %v", errConnection, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if response.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status %d: %s", errRateLimited, response.StatusCode, strings.TrimSpace(string(body)))
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("chat completion failed: status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
