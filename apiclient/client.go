// Package apiclient talks to the MOB Esports REST API. Every response is
// wrapped in the API's {status, data, error} envelope; failures come back as
// *APIError.
package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Client provides access to the REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*response]

	mu    sync.RWMutex
	token string

	Auth        *AuthResource
	Tournaments *TournamentResource
	Posts       *PostResource
	Teams       *TeamResource
	Users       *UserResource
	Friends     *FriendResource
	Uploads     *UploadResource
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit paces outbound calls to rps with the given burst. A zero rps
// disables pacing.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker replaces the circuit breaker settings.
func WithBreaker(settings BreakerSettings) ClientOption {
	return func(c *Client) {
		c.breaker = newBreaker(settings, c.logger)
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a REST client for baseURL, e.g. http://localhost:5000/api.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "apiclient"))
	if c.breaker == nil {
		c.breaker = newBreaker(BreakerSettings{}, c.logger)
	}

	c.Auth = &AuthResource{c: c}
	c.Tournaments = &TournamentResource{c: c}
	c.Posts = &PostResource{c: c}
	c.Teams = &TeamResource{c: c}
	c.Users = &UserResource{c: c}
	c.Friends = &FriendResource{c: c}
	c.Uploads = &UploadResource{c: c}
	return c
}

// SetToken replaces the bearer token used when the request context does not
// carry one. An empty token sends requests unauthenticated.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type tokenKey struct{}

// ContextWithToken makes requests issued with ctx use token instead of the
// client's own. The console uses it to act on behalf of a browser session.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token set by ContextWithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok
}

func (c *Client) tokenFor(ctx context.Context) string {
	if t, ok := TokenFromContext(ctx); ok {
		return t
	}
	return c.Token()
}
