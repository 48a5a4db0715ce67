package issuer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/desertthunder/lumen/internal/services"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/sethvargo/go-retry"
)

// ClientIDPath is the proxy endpoint serving the scraped identifier.
const ClientIDPath = "/api/client-id"

// ProxyIssuer asks a running proxy for its client identifier.
type ProxyIssuer struct {
	api     *services.APIService
	backoff shared.BackoffFactory
	logger  *log.Logger
}

// NewProxyIssuer creates a [ProxyIssuer] over api.
func NewProxyIssuer(api *services.APIService, logger *log.Logger) *ProxyIssuer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProxyIssuer{api: api, backoff: shared.RateLimitBackoff, logger: shared.WithLogger(logger, "issuer", "proxy")}
}

// WithBackoff replaces the rate limit backoff policy.
func (p *ProxyIssuer) WithBackoff(f shared.BackoffFactory) *ProxyIssuer {
	p.backoff = f
	return p
}

func (p *ProxyIssuer) Name() string { return "proxy" }

// Issue fetches {"clientId": ...} from the proxy, backing off on 429.
func (p *ProxyIssuer) Issue(ctx context.Context) (credentials.Grant, error) {
	var body struct {
		ClientID string `json:"clientId"`
		Error    string `json:"error"`
	}

	attempt := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		resp, err := p.api.Get(ctx, ClientIDPath)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusTooManyRequests:
			p.logger.Warn("proxy rate limited", "attempt", attempt)
			return retry.RetryableError(fmt.Errorf("%w: proxy returned 429", shared.ErrRateLimited))
		default:
			detail := string(resp.Body)
			if err := resp.Decode(&body); err == nil && body.Error != "" {
				detail = body.Error
			}
			return fmt.Errorf("%w: proxy returned %d: %s", shared.ErrUnexpectedStatus, resp.StatusCode, detail)
		}

		if err := resp.Decode(&body); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrRateLimited) {
			return credentials.Grant{}, fmt.Errorf("%w after %d attempts: %w", shared.ErrIssuanceExhausted, attempt, err)
		}
		return credentials.Grant{}, err
	}

	if body.ClientID == "" {
		return credentials.Grant{}, fmt.Errorf("%w: proxy returned an empty clientId", shared.ErrIdentifierNotFound)
	}
	return credentials.Grant{Value: body.ClientID, TTL: ScrapedTTL}, nil
}
