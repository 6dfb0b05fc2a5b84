package generator

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

	"github.com/cenkalti/backoff/v4"
	"github.com/vytor/logicbuild/internal/logger"
)

// ErrDisabled is returned by every call when no base URL is configured.
var ErrDisabled = errors.New("content generator disabled")

// StatusError is a non-2xx answer from the generator.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackOff sets the retry schedule factory.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = f
	}
}

// New creates a generator client. An empty baseURL yields a client whose
// calls all fail with ErrDisabled, which callers treat like any outage.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxRetries: 2,
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		log: logger.Default().WithPrefix("generator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

func (c *Client) GenerateLesson(ctx context.Context, req LessonRequest) (*LessonResponse, error) {
	var out LessonResponse
	if err := c.post(ctx, "/lessons", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResponse, error) {
	var out QuizResponse
	if err := c.post(ctx, "/quizzes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GradeAnswer(ctx context.Context, req GradeRequest) (*GradeResponse, error) {
	var out GradeResponse
	if err := c.post(ctx, "/grades", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	log := logger.FromContext(ctx).WithPrefix("generator").WithField("path", path)

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Warn("request failed (attempt %d): %v", attempt, err)
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()
		log.Debug("response received in %v, status=%d", time.Since(start), resp.StatusCode)

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			statusErr := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			if retryableStatus(resp.StatusCode) {
				log.Warn("retryable status (attempt %d): %v", attempt, statusErr)
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		log.Warn("giving up after %d attempt(s): %v", attempt, err)
		return err
	}
	return nil
}
