package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/shared"
)

// DefaultSafetyMargin is how long before expiry a credential stops being served.
const DefaultSafetyMargin = 5 * time.Minute

// DefaultKey is the slot key the credential is stored under.
const DefaultKey = "lumen:credential"

// Credential is an access token or public client identifier with its validity window.
type Credential struct {
	Value     string    `json:"value"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether c may be used at now given the safety margin.
func (c Credential) ValidAt(now time.Time, margin time.Duration) bool {
	if c.Value == "" || !c.ExpiresAt.After(c.IssuedAt) {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-margin))
}

// Grant is what an [Issuer] hands back: a credential value and its lifetime.
type Grant struct {
	Value string
	TTL   time.Duration
}

// Issuer obtains a fresh credential from the upstream.
type Issuer interface {
	Name() string
	Issue(ctx context.Context) (Grant, error)
}

// Slot is a durable key-value cell. Get returns [shared.ErrSlotEmpty] when the key is absent.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes the single cached [Credential].
type Store struct {
	slot   Slot
	key    string
	margin time.Duration
	now    func() time.Time
	logger *log.Logger
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithSafetyMargin overrides [DefaultSafetyMargin].
func WithSafetyMargin(d time.Duration) StoreOption {
	return func(s *Store) { s.margin = d }
}

// WithKey overrides [DefaultKey].
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStoreLogger sets the logger used for slot failures and corrupt data.
func WithStoreLogger(l *log.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a [Store] over slot.
func NewStore(slot Slot, opts ...StoreOption) *Store {
	s := &Store{slot: slot, key: DefaultKey, margin: DefaultSafetyMargin, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	return s
}

// Read returns the cached credential while it is outside the safety margin.
//
// A missing slot, an unreadable slot, and corrupt slot data are all reported as a miss.
func (s *Store) Read(ctx context.Context) (Credential, bool) {
	c, err := s.Peek(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrSlotEmpty) {
			s.logger.Warn("treating credential slot as empty", "key", s.key, "error", err)
		}
		cacheLookups.WithLabelValues("miss").Inc()
		return Credential{}, false
	}

	if !c.ValidAt(s.now(), s.margin) {
		s.logger.Debug("cached credential inside safety margin", "expires_at", c.ExpiresAt)
		cacheLookups.WithLabelValues("expired").Inc()
		return Credential{}, false
	}

	cacheLookups.WithLabelValues("hit").Inc()
	return c, true
}

// Peek returns whatever credential the slot holds, regardless of validity.
func (s *Store) Peek(ctx context.Context) (Credential, error) {
	data, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return Credential{}, err
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	return c, nil
}

// Write stores value as the current credential, replacing any prior one.
func (s *Store) Write(ctx context.Context, value string, ttl time.Duration) (Credential, error) {
	if value == "" {
		return Credential{}, fmt.Errorf("%w: empty credential", shared.ErrInvalidInput)
	}
	if ttl <= 0 {
		return Credential{}, fmt.Errorf("%w: got %v", shared.ErrInvalidTTL, ttl)
	}

	now := s.now()
	c := Credential{Value: value, IssuedAt: now, ExpiresAt: now.Add(ttl)}
	data, err := json.Marshal(c)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to encode credential: %w", err)
	}

	if err := s.slot.Set(ctx, s.key, data); err != nil {
		return Credential{}, fmt.Errorf("failed to write credential slot: %w", err)
	}
	return c, nil
}

// Clear removes the cached credential.
func (s *Store) Clear(ctx context.Context) error {
	return s.slot.Delete(ctx, s.key)
}

// Margin returns the configured safety margin.
func (s *Store) Margin() time.Duration { return s.margin }

// Now returns the store's notion of the current time.
func (s *Store) Now() time.Time { return s.now() }
