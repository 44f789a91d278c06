package opensky

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://opensky-network.org/api"

	maxRetries    = 3
	baseBackoff   = 1 * time.Second
	maxBackoff    = 30 * time.Second
	backoffFactor = 2
)

var (
	log = logrus.WithField("module", "opensky")
)

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

func WithCredentials(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithBackoff sets the delay before the first retry.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) { c.backoff = d }
}

// Client fetches state vectors on demand. Scheduled polling goes through
// perfetch instead, see StatesURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	backoff    time.Duration
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff:    baseBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatesURL is the /states/all endpoint for baseURL.
func StatesURL(baseURL string) string {
	return baseURL + "/states/all"
}

// FetchRaw returns the undecoded /states/all payload.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, StatesURL(c.baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// FetchStates retrieves the current state vectors, retrying server errors
// and rate limiting with exponential backoff.
func (c *Client) FetchStates(ctx context.Context) ([]State, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= backoffFactor
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		raw, err := c.FetchRaw(ctx)
		if err == nil {
			return ParseStates(raw)
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if se, ok := err.(*StatusError); ok && !se.Retryable() {
			return nil, err
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("error fetching states")
	}

	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}
