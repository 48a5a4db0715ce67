package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
	tu "github.com/desertthunder/lumen/internal/testing"
)

type stubTokens struct {
	err   error
	calls int
}

func (s *stubTokens) Token(context.Context) (string, error) {
	s.calls++
	return "tok", s.err
}

type memCache struct {
	mu    sync.Mutex
	saved []*models.Playlist
	err   error
}

func (m *memCache) CachePlaylist(p *models.Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, p)
	return m.err
}

func newMockService(n int) *tu.MockService {
	svc := &tu.MockService{Results: map[string]*models.Playlist{}}
	for _, u := range urls(n) {
		svc.Results[u] = &models.Playlist{Title: u, SourceURL: u}
	}
	return svc
}

func TestGalleryEngine(t *testing.T) {
	ctx := context.Background()
	quiet := shared.NewLogger(io.Discard)

	t.Run("Primes Credential Then Loads", func(t *testing.T) {
		tokens := &stubTokens{}
		svc := newMockService(7)
		e := NewGalleryEngine(svc, tokens, newTestLoader(&tu.RecordingSleeper{}), quiet)

		c := NewCollector()
		res, err := e.Load(ctx, urls(7), c, nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if tokens.calls != 1 {
			t.Errorf("Token() calls = %d, want 1", tokens.calls)
		}
		if res.Resolved != 7 || c.Len() != 7 {
			t.Errorf("resolved = %d, collected = %d", res.Resolved, c.Len())
		}

		select {
		case <-c.Done():
		default:
			t.Error("collector should be done")
		}

		for i, p := range res.Playlists() {
			if p.Index != i {
				t.Errorf("playlist %d has index %d", i, p.Index)
			}
		}
	})

	t.Run("Credential Failure Is Page Level", func(t *testing.T) {
		tokens := &stubTokens{err: shared.ErrIssuanceExhausted}
		svc := newMockService(3)
		e := NewGalleryEngine(svc, tokens, newTestLoader(&tu.RecordingSleeper{}), quiet)

		_, err := e.Load(ctx, urls(3), NewCollector(), nil)
		if !errors.Is(err, shared.ErrGalleryUnavailable) || !errors.Is(err, shared.ErrIssuanceExhausted) {
			t.Fatalf("Load() error = %v, want ErrGalleryUnavailable wrapping the cause", err)
		}
		if len(svc.Calls()) != 0 {
			t.Errorf("no playlist should be resolved, got %v", svc.Calls())
		}
	})

	t.Run("Per Item Failures", func(t *testing.T) {
		svc := newMockService(4)
		svc.Errors = map[string]error{urls(4)[1]: shared.ErrAuthExpired}
		e := NewGalleryEngine(svc, nil, newTestLoader(&tu.RecordingSleeper{}), quiet)

		c := NewCollector()
		res, err := e.Load(ctx, urls(4), c, nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		got, ok := c.Result(1)
		if !ok || !errors.Is(got.Err, shared.ErrAuthExpired) {
			t.Errorf("item 1 = %+v, want ErrAuthExpired", got)
		}
		if res.Failed != 1 || res.Resolved != 3 {
			t.Errorf("failed/resolved = %d/%d", res.Failed, res.Resolved)
		}
	})

	t.Run("Caches Successes", func(t *testing.T) {
		svc := newMockService(3)
		svc.Errors = map[string]error{urls(3)[2]: errors.New("gone")}
		cache := &memCache{err: errors.New("disk full")}
		e := NewGalleryEngine(svc, nil, newTestLoader(&tu.RecordingSleeper{}), quiet)
		e.SetCache(cache)

		res, err := e.Load(ctx, urls(3), nil, nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(cache.saved) != 2 {
			t.Errorf("cached = %d, want 2", len(cache.saved))
		}
		if res.Resolved != 2 {
			t.Errorf("cache errors must not fail items, resolved = %d", res.Resolved)
		}
	})

	t.Run("No Service", func(t *testing.T) {
		e := NewGalleryEngine(nil, nil, nil, quiet)
		if _, err := e.Load(ctx, urls(1), nil, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("Load() error = %v, want ErrServiceUnavailable", err)
		}
	})
}

func TestSource(t *testing.T) {
	t.Run("ParseSource", func(t *testing.T) {
		got, err := ParseSource(strings.NewReader(`{"playlists":["https://soundcloud.com/a/sets/b"," ","https://soundcloud.com/c/sets/d"]}`))
		if err != nil {
			t.Fatalf("ParseSource() error = %v", err)
		}
		if len(got) != 2 || got[1] != "https://soundcloud.com/c/sets/d" {
			t.Errorf("ParseSource() = %v", got)
		}
	})

	t.Run("ParseSource Invalid", func(t *testing.T) {
		if _, err := ParseSource(strings.NewReader(`[1,2`)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("ParseSource() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("ReadSource Roundtrip", func(t *testing.T) {
		path := t.TempDir() + "/playlists.json"
		var b strings.Builder
		if err := WriteSource(&b, urls(3)); err != nil {
			t.Fatalf("WriteSource() error = %v", err)
		}
		tu.MustWriteFile(t, path, b.String())

		got, err := ReadSource(path)
		if err != nil || len(got) != 3 {
			t.Fatalf("ReadSource() = %v, %v", got, err)
		}
	})

	t.Run("ReadSource Missing", func(t *testing.T) {
		if _, err := ReadSource(t.TempDir() + "/nope.json"); err == nil {
			t.Error("expected error for missing source")
		}
	})
}
