package socrata

import (
	"net/http"
	"strings"
	"time"

	"github.com/jlenander/firestat/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the portal base URL, e.g. for a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAppToken sets the portal application token.
func WithAppToken(token string) Option {
	return func(c *Client) {
		c.appToken = token
	}
}

// WithPageLimit sets the number of rows requested per page.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithThrottle sets the delay between page requests. Zero disables
// throttling; negative values are ignored.
func WithThrottle(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.throttle = d
		}
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base backoff delay; it doubles per attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
