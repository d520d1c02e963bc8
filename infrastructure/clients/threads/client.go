package threads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"threadsctl/domain/model"
	"threadsctl/infrastructure/logger"
	"threadsctl/infrastructure/utils"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryWait  = 60 * time.Second
	errorBodyLimit    = 200
)

// Client is the authenticated transport for the versioned Threads Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	observer   func(msg string)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy sets how many times a 429 is retried and how long each wait lasts
func WithRetryPolicy(maxRetries int, wait time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryWait = wait
	}
}

// WithObserver registers a callback notified before each rate-limit wait
func WithObserver(fn func(msg string)) Option {
	return func(c *Client) { c.observer = fn }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// NewClient creates a client for baseURL, e.g. https://graph.threads.net/v1.0
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: DefaultMaxRetries,
		retryWait:  DefaultRetryWait,
		sleep:      utils.SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request issues method against path with params plus the session token and
// returns the parsed JSON body. A successful response without a JSON body
// yields a nil result.
func (c *Client) Request(ctx context.Context, sess model.Session, method, path string, params url.Values) (json.RawMessage, error) {
	values := url.Values{}
	for k, v := range params {
		values[k] = append([]string(nil), v...)
	}
	values.Set("access_token", sess.AccessToken)
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")

	for attempt := 0; ; attempt++ {
		status, body, err := c.do(ctx, method, endpoint, values)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"method":  method,
			"path":    path,
			"status":  status,
			"attempt": attempt + 1,
		}).Debug("threads api call")

		if status == http.StatusTooManyRequests && attempt < c.maxRetries {
			c.notify(fmt.Sprintf("Rate limited (429). Waiting %s before retry %d/%d...", c.retryWait, attempt+1, c.maxRetries))
			if err := c.sleep(ctx, c.retryWait); err != nil {
				return nil, err
			}
			continue
		}
		return parseResponse(status, body)
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, values url.Values) (int, []byte, error) {
	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+values.Encode(), nil)
	}
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// notify is best effort: a misbehaving observer never stops the retry
func (c *Client) notify(msg string) {
	if c.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("panic", r).Warn("rate limit observer panicked")
		}
	}()
	c.observer(msg)
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func parseResponse(status int, body []byte) (json.RawMessage, error) {
	ok := status >= 200 && status < 300
	trimmed := bytes.TrimSpace(body)
	parsed := len(trimmed) > 0 && json.Valid(trimmed)

	if ok {
		if !parsed {
			return nil, nil
		}
		return json.RawMessage(trimmed), nil
	}
	if parsed {
		var env errorEnvelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Error != nil {
			return nil, &model.ApiError{Status: status, Type: env.Error.Type, Message: env.Error.Message, Code: env.Error.Code}
		}
	}
	msg := truncate(string(trimmed), errorBodyLimit)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return nil, &model.ApiError{Status: status, Message: msg}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func decode(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode threads response: %w", err)
	}
	return nil
}
