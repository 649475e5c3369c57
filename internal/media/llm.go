package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// DefaultLLMRetryTime bounds the retry window for summarization calls
const DefaultLLMRetryTime = 30 * time.Second

// llmTemperature keeps summaries stable across retries
const llmTemperature = 0.2

// LLMClient calls an OpenAI-style chat-completions endpoint to produce
// summaries
type LLMClient struct {
	url          string
	apiKey       string
	model        string
	httpClient   *http.Client
	maxRetryTime time.Duration
	log          *logrus.Entry
}

// NewLLMClient creates a summarization client
func NewLLMClient(url, apiKey, llmModel string, timeout time.Duration, log *logrus.Entry) *LLMClient {
	return &LLMClient{
		url:          url,
		apiKey:       apiKey,
		model:        llmModel,
		httpClient:   &http.Client{Timeout: timeout},
		maxRetryTime: DefaultLLMRetryTime,
		log:          log,
	}
}

// SetMaxRetryTime bounds the total retry window
func (c *LLMClient) SetMaxRetryTime(d time.Duration) {
	c.maxRetryTime = d
}

// Summarize sends text and returns the model's reply. Network errors,
// non-2xx status and malformed bodies all surface as errors; 4xx status is
// not retried.
func (c *LLMClient) Summarize(ctx context.Context, text string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("summarization endpoint not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": text},
		},
		"temperature": llmTemperature,
	})
	if err != nil {
		return "", err
	}

	var summary string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.WithError(err).Warn("summarization request failed")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("summarization endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("summarization endpoint returned %d", resp.StatusCode)
		}

		content, err := extractContent(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		summary = content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return summary, nil
}

// extractContent reads choices[0].message.content from an OpenAI-style
// response body
func extractContent(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed summarization response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("summarization response contained no content")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
