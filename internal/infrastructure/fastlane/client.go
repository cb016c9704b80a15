package fastlane

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	// DefaultURL is the public page that shows the current toll
	DefaultURL = "https://fastlane.co.il/"
	// DefaultTimeout bounds a single page fetch
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the service to the source site
	DefaultUserAgent = "Mozilla/5.0 (FastLane-Price-Service/1.0)"

	defaultRetryWaitTime    = 500 * time.Millisecond
	defaultRetryMaxWaitTime = 2 * time.Second
)

// ClientConfig holds the page fetch parameters
type ClientConfig struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	// RetryCount is the number of extra attempts on network or 5xx errors; zero disables retries
	RetryCount int
}

// Client fetches the toll page and reduces it to visible text
type Client struct {
	httpClient *resty.Client
	url        string
}

// NewClient creates a page client; zero fields take the package defaults
func NewClient(cfg ClientConfig) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return &Client{
		httpClient: httpClient,
		url:        cfg.URL,
	}
}

// FetchPageText downloads the page and returns its visible text.
// Failures are returned as *FetchError.
func (c *Client) FetchPageText(ctx context.Context) (string, error) {
	log.Printf("[FASTLANE] Fetching %s", c.url)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		fetchErr := classifyTransportError(err)
		log.Printf("[FASTLANE] Request failed: %v", fetchErr)
		return "", fetchErr
	}

	if !resp.IsSuccess() {
		fetchErr := ClassifyStatus(resp.StatusCode())
		log.Printf("[FASTLANE] Unexpected response: %v", fetchErr)
		return "", fetchErr
	}

	text, err := VisibleText(strings.NewReader(resp.String()))
	if err != nil {
		return "", &FetchError{Type: ErrorTypeUnknown, Cause: err}
	}

	return text, nil
}

// Close releases the underlying HTTP client resources
func (c *Client) Close() error {
	return c.httpClient.Close()
}

// classifyTransportError separates timeouts from other network failures
func classifyTransportError(err error) *FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Type: ErrorTypeTimeout, Cause: err}
	}
	return &FetchError{Type: ErrorTypeNetwork, Cause: err}
}

// retryCondition retries network errors, 5xx, 408 and 429
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	switch code := r.StatusCode(); {
	case code >= http.StatusInternalServerError:
		return true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// retryHook logs retry attempts
func retryHook(r *resty.Response, err error) {
	if err != nil {
		log.Printf("[FASTLANE] Retrying request (attempt %d) after error: %v", r.Request.Attempt, err)
		return
	}
	log.Printf("[FASTLANE] Retrying request (attempt %d) after status %d", r.Request.Attempt, r.StatusCode())
}
