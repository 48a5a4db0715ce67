package shared

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// Rate limit backoff: 2s, 4s, 8s, then give up on the fourth 429.
const (
	RateLimitBase       = 2 * time.Second
	RateLimitMaxRetries = 3
)

// BackoffFactory builds a fresh [retry.Backoff] for one operation.
type BackoffFactory func() retry.Backoff

// RateLimitBackoff is the policy applied to HTTP 429 responses by issuers and the fetcher.
func RateLimitBackoff() retry.Backoff {
	return retry.WithMaxRetries(RateLimitMaxRetries, retry.NewExponential(RateLimitBase))
}
