package issuer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenTTL applies when the token endpoint omits expires_in.
const DefaultTokenTTL = 3600 * time.Second

// TokenIssuer obtains an access token with the OAuth client credentials grant.
//
// Credentials are sent in the form body, so the request is
// grant_type=client_credentials&client_id=...&client_secret=...
type TokenIssuer struct {
	config  clientcredentials.Config
	client  *http.Client
	backoff shared.BackoffFactory
	logger  *log.Logger
}

// NewTokenIssuer creates a [TokenIssuer]. A nil client uses [http.DefaultClient].
func NewTokenIssuer(cfg shared.SoundCloudConfig, client *http.Client, logger *log.Logger) *TokenIssuer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenIssuer{
		config: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client:  client,
		backoff: shared.RateLimitBackoff,
		logger:  shared.WithLogger(logger, "issuer", "token"),
	}
}

// WithBackoff replaces the rate limit backoff policy.
func (t *TokenIssuer) WithBackoff(f shared.BackoffFactory) *TokenIssuer {
	t.backoff = f
	return t
}

func (t *TokenIssuer) Name() string { return "token" }

// Issue requests a token, backing off on HTTP 429 and failing after the fourth.
func (t *TokenIssuer) Issue(ctx context.Context) (credentials.Grant, error) {
	if t.config.ClientID == "" || t.config.ClientSecret == "" {
		return credentials.Grant{}, fmt.Errorf("%w: client id and secret are required", shared.ErrMissingCredentials)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.client)

	var tok *oauth2.Token
	attempt := 0
	err := retry.Do(ctx, t.backoff(), func(ctx context.Context) error {
		attempt++
		var err error
		tok, err = t.config.Token(ctx)
		if err == nil {
			return nil
		}

		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			if rerr.Response != nil && rerr.Response.StatusCode == http.StatusTooManyRequests {
				t.logger.Warn("token endpoint rate limited", "attempt", attempt)
				return retry.RetryableError(fmt.Errorf("%w: token endpoint returned 429", shared.ErrRateLimited))
			}
			status := 0
			if rerr.Response != nil {
				status = rerr.Response.StatusCode
			}
			return fmt.Errorf("%w: token endpoint returned %d", shared.ErrAuthFailed, status)
		}
		return fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	})
	if err != nil {
		if errors.Is(err, shared.ErrRateLimited) {
			return credentials.Grant{}, fmt.Errorf("%w after %d attempts: %w", shared.ErrIssuanceExhausted, attempt, err)
		}
		return credentials.Grant{}, err
	}

	if tok.AccessToken == "" {
		return credentials.Grant{}, fmt.Errorf("%w: empty access token", shared.ErrMalformedResponse)
	}

	ttl := DefaultTokenTTL
	if !tok.Expiry.IsZero() {
		if remaining := time.Until(tok.Expiry); remaining > 0 {
			ttl = remaining
		}
	}

	t.logger.Debug("token issued", "ttl", ttl, "attempts", attempt)
	return credentials.Grant{Value: tok.AccessToken, TTL: ttl}, nil
}
