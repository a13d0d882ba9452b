// Package judge is a client for the Judge0 submissions API.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Judge0 status ids.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeFirst      = 7
	StatusRuntimeLast       = 12
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
	maxErrorBody    = 512
)

// ErrRejected is a non-retryable answer from the judge, such as an unknown
// language id.
var ErrRejected = errors.New("judge rejected the submission")

type Submission struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type Result struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Message       string `json:"message"`
	Status        Status `json:"status"`
	// Time is the wall time in seconds, as a decimal string.
	Time     string `json:"time"`
	Memory   int    `json:"memory"`
	ExitCode *int   `json:"exit_code"`
}

type Executor interface {
	Execute(ctx context.Context, sub Submission) (*Result, error)
}

type Client struct {
	baseURL  string
	apiKey   string
	apiHost  string
	http     *http.Client
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewClient builds a client for baseURL. With apiHost set the key is sent
// the RapidAPI way, otherwise as X-Auth-Token.
func NewClient(baseURL, apiKey, apiHost string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		apiHost:  apiHost,
		http:     &http.Client{Timeout: timeout},
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   logger,
	}
}

// Execute submits synchronously and waits for the verdict. Transport
// errors, 429 and 5xx answers are retried with exponential backoff.
func (c *Client) Execute(ctx context.Context, sub Submission) (*Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			c.logger.Warn("retrying judge request", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		res, retry, err := c.do(ctx, body)
		if err == nil {
			return res, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("judge unavailable after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (*Result, bool, error) {
	url := c.baseURL + "/submissions?base64_encoded=false&wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		if c.apiHost != "" {
			req.Header.Set("X-RapidAPI-Key", c.apiKey)
			req.Header.Set("X-RapidAPI-Host", c.apiHost)
		} else {
			req.Header.Set("X-Auth-Token", c.apiKey)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("judge answered %d: %s", resp.StatusCode, readSnippet(resp.Body))
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, readSnippet(resp.Body))
	}

	res := new(Result)
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, false, fmt.Errorf("failed to decode judge response: %w", err)
	}
	return res, false, nil
}

func readSnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(bytes.TrimSpace(data))
}
