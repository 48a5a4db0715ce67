package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/gregjones/httpcache"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// AuthStyle selects how the credential is attached to a request.
type AuthStyle int

const (
	// AuthHeader sends "Authorization: OAuth <token>".
	AuthHeader AuthStyle = iota
	// AuthQuery sends the credential as the client_id query parameter.
	AuthQuery
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 15 * time.Second

// TokenSource is the credential owner a [Fetcher] borrows from. *credentials.Session satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context, stale string) (string, error)
}

// StatusError is a terminal non-200 upstream response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s returned %d", shared.ErrUnexpectedStatus, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return shared.ErrUnexpectedStatus }

// Options configures a [Fetcher].
type Options struct {
	Style     AuthStyle
	Timeout   time.Duration
	Limiter   *rate.Limiter
	Backoff   shared.BackoffFactory
	UserAgent string
	Logger    *log.Logger
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	tokens    TokenSource
	style     AuthStyle
	timeout   time.Duration
	limiter   *rate.Limiter
	backoff   shared.BackoffFactory
	userAgent string
	logger    *log.Logger
}

// New creates a [Fetcher]. A nil client uses [http.DefaultClient].
func New(client *http.Client, tokens TokenSource, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:    client,
		tokens:    tokens,
		style:     opts.Style,
		timeout:   opts.Timeout,
		limiter:   opts.Limiter,
		backoff:   opts.Backoff,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.backoff == nil {
		f.backoff = shared.RateLimitBackoff
	}
	if f.userAgent == "" {
		f.userAgent = shared.DefaultUserAgent
	}
	if f.logger == nil {
		f.logger = shared.NewLogger(nil)
	}
	return f
}

// NewLimiter returns a limiter allowing rps requests per second, or nil when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewHTTPClient returns a client that optionally revalidates responses with an in-memory HTTP cache.
func NewHTTPClient(cache bool) *http.Client {
	if !cache {
		return &http.Client{}
	}
	return &http.Client{Transport: httpcache.NewMemoryCacheTransport()}
}

// Fetch GETs rawURL and returns the JSON body of a 200 response.
//
// On 401/403 the credential is refreshed and the request retried exactly once; a second
// rejection returns [shared.ErrAuthExpired].
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (json.RawMessage, error) {
	token, err := f.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain credential: %w", err)
	}

	for refreshed := false; ; refreshed = true {
		status, body, err := f.send(ctx, rawURL, token)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			if !json.Valid(body) {
				f.logger.Error("malformed response", "url", rawURL)
				return nil, fmt.Errorf("%w: %s", shared.ErrMalformedResponse, rawURL)
			}
			return json.RawMessage(body), nil
		case http.StatusUnauthorized, http.StatusForbidden:
			authRefreshes.Inc()
			if refreshed {
				f.logger.Error("credential rejected after refresh", "url", rawURL, "status", status)
				return nil, fmt.Errorf("%w: %s returned %d", shared.ErrAuthExpired, rawURL, status)
			}
			f.logger.Info("credential rejected, refreshing", "url", rawURL, "status", status)
			if token, err = f.tokens.Refresh(ctx, token); err != nil {
				return nil, fmt.Errorf("failed to refresh credential: %w", err)
			}
		default:
			f.logger.Warn("unexpected status", "url", rawURL, "status", status)
			return nil, &StatusError{StatusCode: status, URL: rawURL, Body: body}
		}
	}
}

// FetchInto decodes the JSON body of [Fetcher.Fetch] into v.
func (f *Fetcher) FetchInto(ctx context.Context, rawURL string, v any) error {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	return nil
}

// send performs one logical request, retrying only on 429.
func (f *Fetcher) send(ctx context.Context, rawURL, token string) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	err := retry.Do(ctx, f.backoff(), func(ctx context.Context) error {
		var err error
		status, body, err = f.do(ctx, rawURL, token)
		if err != nil {
			return err
		}
		requests.WithLabelValues(strconv.Itoa(status)).Inc()
		if status == http.StatusTooManyRequests {
			rateLimited.Inc()
			f.logger.Warn("rate limited", "url", rawURL)
			return retry.RetryableError(fmt.Errorf("%w: %s", shared.ErrRateLimited, rawURL))
		}
		return nil
	})
	return status, body, err
}

func (f *Fetcher) do(ctx context.Context, rawURL, token string) (int, []byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	req, err := f.newRequest(ctx, rawURL, token)
	if err != nil {
		return 0, nil, err
	}

	reqCtx, cancel := context.WithTimeout(req.Context(), f.timeout)
	defer cancel()

	resp, err := f.client.Do(req.WithContext(reqCtx))
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetworkFailure, err)
	}
	return resp.StatusCode, body, nil
}

func (f *Fetcher) newRequest(ctx context.Context, rawURL, token string) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if f.style == AuthQuery {
		q := u.Query()
		q.Set("client_id", token)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	if f.style == AuthHeader {
		req.Header.Set("Authorization", "OAuth "+token)
	}
	return req, nil
}
