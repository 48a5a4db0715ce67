package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/shared"
	"golang.org/x/sync/singleflight"
)

const flightKey = "credential"

// Session hands out the current credential and re-issues it when the upstream rejects it.
//
// All re-issuance runs through one singleflight group, so concurrent callers that hit an
// authorization failure at the same time share a single issuer call.
type Session struct {
	store  *Store
	issuer Issuer
	group  singleflight.Group
	logger *log.Logger
}

// Status describes the cached credential for `auth status` and the health endpoint.
type Status struct {
	Issuer    string    `json:"issuer"`
	Present   bool      `json:"present"`
	Valid     bool      `json:"valid"`
	IssuedAt  time.Time `json:"issued_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// NewSession creates a [Session]. A nil logger writes to stderr.
func NewSession(store *Store, issuer Issuer, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{store: store, issuer: issuer, logger: shared.WithLogger(logger, "issuer", issuer.Name())}
}

// Token returns a valid credential value, issuing one on a cache miss.
func (s *Session) Token(ctx context.Context) (string, error) {
	if c, ok := s.store.Read(ctx); ok {
		return c.Value, nil
	}
	return s.issue(ctx, "")
}

// Refresh replaces a credential the upstream rejected.
//
// When the store already holds a valid value other than stale, another caller refreshed
// first and that value is returned without contacting the issuer.
func (s *Session) Refresh(ctx context.Context, stale string) (string, error) {
	if c, ok := s.store.Read(ctx); ok && c.Value != stale {
		return c.Value, nil
	}
	return s.issue(ctx, stale)
}

// Clear drops the cached credential so the next [Session.Token] call re-issues.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Status reports what the store currently holds.
func (s *Session) Status(ctx context.Context) Status {
	st := Status{Issuer: s.issuer.Name()}
	c, err := s.store.Peek(ctx)
	if err != nil {
		return st
	}

	st.Present = true
	st.IssuedAt = c.IssuedAt
	st.ExpiresAt = c.ExpiresAt
	st.Valid = c.ValidAt(s.store.Now(), s.store.Margin())
	return st
}

func (s *Session) issue(ctx context.Context, stale string) (string, error) {
	// The flight outlives any single caller's cancellation; each caller still waits on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey, func() (any, error) {
		if c, ok := s.store.Read(flightCtx); ok && c.Value != stale {
			return c.Value, nil
		}
		return s.issueAndStore(flightCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			s.logger.Debug("joined in-flight credential issuance")
		}
		return res.Val.(string), nil
	}
}

func (s *Session) issueAndStore(ctx context.Context) (string, error) {
	name := s.issuer.Name()
	start := time.Now()
	grant, err := s.issuer.Issue(ctx)
	issueDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		issuances.WithLabelValues(name, "error").Inc()
		s.logger.Error("credential issuance failed", "error", err)
		return "", err
	}

	c, err := s.store.Write(ctx, grant.Value, grant.TTL)
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidTTL):
		issuances.WithLabelValues(name, "error").Inc()
		return "", fmt.Errorf("issuer returned an unusable credential: %w", err)
	case err != nil:
		// The grant is still good; the next Read misses and issues again.
		storeWriteFailures.Inc()
		issuances.WithLabelValues(name, "ok").Inc()
		s.logger.Warn("issued credential could not be cached", "error", err)
		return grant.Value, nil
	}

	issuances.WithLabelValues(name, "ok").Inc()
	s.logger.Info("issued credential", "expires_at", c.ExpiresAt.Format(time.RFC3339))
	return c.Value, nil
}
