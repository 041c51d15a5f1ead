package njt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jusunglee/njt-go/internal/metrics"
	"github.com/jusunglee/njt-go/internal/models"
)

// DefaultTokenTTL is how long an issued token is reused
const DefaultTokenTTL = 12 * time.Hour

// Authenticator exchanges credentials for a token and caches it until expiry
type Authenticator struct {
	baseURL    string
	creds      models.Credentials
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu    sync.Mutex
	token models.Token
	group singleflight.Group
}

// AuthOption customizes an Authenticator
type AuthOption func(*Authenticator)

// WithClock replaces time.Now
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) { a.now = now }
}

// WithTokenTTL overrides the token expiry window
func WithTokenTTL(ttl time.Duration) AuthOption {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) AuthOption {
	return func(a *Authenticator) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) AuthOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates an Authenticator for the given credentials
func NewAuthenticator(baseURL string, creds models.Credentials, opts ...AuthOption) *Authenticator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	a := &Authenticator{
		baseURL:    baseURL,
		creds:      creds,
		httpClient: NewHTTPClient(DefaultTimeout),
		ttl:        DefaultTokenTTL,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Token returns a valid token, authenticating when the cached one is missing or expired
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.token.Valid(a.now()) {
		value := a.token.Value
		a.mu.Unlock()
		metrics.TokenCacheHits.Inc()
		return value, nil
	}
	a.mu.Unlock()

	// The exchange outlives any single caller; the HTTP client timeout still bounds it
	ch := a.group.DoChan("token", func() (interface{}, error) {
		return a.authenticate(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", transportError("getToken", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Expiry returns the expiry of the cached token, zero when none is cached
func (a *Authenticator) Expiry() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token.ExpiresAt
}

// Invalidate drops the cached token so the next call authenticates again
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = models.Token{}
}

func (a *Authenticator) authenticate(ctx context.Context) (string, error) {
	const op = "getToken"

	// A concurrent exchange may have finished while we waited
	a.mu.Lock()
	if a.token.Valid(a.now()) {
		value := a.token.Value
		a.mu.Unlock()
		return value, nil
	}
	a.token = models.Token{}
	a.mu.Unlock()

	value, err := a.exchange(ctx, op)
	if err != nil {
		result := metrics.ResultCannotConnect
		if errors.Is(err, ErrInvalidAuth) {
			result = metrics.ResultAuthFailed
		}
		metrics.AuthExchanges.WithLabelValues(result).Inc()
		a.logger.Error("RailData authentication failed", "username", a.creds.Username, "error", err)
		return "", err
	}

	a.mu.Lock()
	a.token = models.Token{Value: value, ExpiresAt: a.now().Add(a.ttl)}
	expires := a.token.ExpiresAt
	a.mu.Unlock()

	metrics.AuthExchanges.WithLabelValues(metrics.ResultOK).Inc()
	a.logger.Debug("RailData token issued", "username", a.creds.Username, "expires_at", expires)
	return value, nil
}

func (a *Authenticator) exchange(ctx context.Context, op string) (string, error) {
	form := url.Values{}
	form.Set("username", a.creds.Username)
	form.Set("password", a.creds.Password)

	resp, err := postForm(ctx, a.httpClient, a.baseURL, endpointToken, form)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(op, resp.StatusCode)
	}

	var body models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: decode token response: %v", ErrInvalidAuth, err)}
	}
	if strings.EqualFold(strings.TrimSpace(body.Authenticated), "false") {
		return "", &APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: credentials rejected", ErrInvalidAuth)}
	}
	token := strings.TrimSpace(body.UserToken)
	if token == "" {
		return "", &APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: missing UserToken", ErrInvalidAuth)}
	}
	return token, nil
}
