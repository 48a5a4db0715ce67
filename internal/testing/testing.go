// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/sethvargo/go-retry"
)

// MockService is a test double for services.Service.
//
// Results are keyed by permalink; unknown permalinks fail. Delay, when set, is applied per call
// so tests can force out-of-order completion.
type MockService struct {
	mu      sync.Mutex
	Results map[string]*models.Playlist
	Errors  map[string]error
	Delay   func(url string) time.Duration
	calls   []string
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) ResolvePlaylist(ctx context.Context, url string) (*models.Playlist, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if m.Delay != nil {
		select {
		case <-time.After(m.Delay(url)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := m.Errors[url]; ok {
		return nil, err
	}
	if p, ok := m.Results[url]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, url)
}

// Calls returns the permalinks resolved so far.
func (m *MockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// RecordingBackoff wraps [shared.RateLimitBackoff], records each delay it would have slept,
// and sleeps for zero instead.
type RecordingBackoff struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *RecordingBackoff) Factory() shared.BackoffFactory {
	return func() retry.Backoff {
		inner := shared.RateLimitBackoff()
		return retry.BackoffFunc(func() (time.Duration, bool) {
			d, stop := inner.Next()
			if !stop {
				r.mu.Lock()
				r.delays = append(r.delays, d)
				r.mu.Unlock()
			}
			return 0, stop
		})
	}
}

func (r *RecordingBackoff) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// RecordingSleeper records requested sleeps and returns immediately unless ctx is done.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	// OnSleep runs before returning, with the number of sleeps so far.
	OnSleep func(n int)
}

func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	n := len(r.sleeps)
	r.mu.Unlock()

	if r.OnSleep != nil {
		r.OnSleep(n)
	}
	return ctx.Err()
}

func (r *RecordingSleeper) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// WriteJSON writes a JSON body with the given status, the way upstream APIs do.
func WriteJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
