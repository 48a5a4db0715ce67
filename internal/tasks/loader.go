package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkSize = 5
	DefaultPace      = 500 * time.Millisecond
)

// Renderer receives loader results. Calls may arrive concurrently from item goroutines.
type Renderer interface {
	// ItemResolved is called once per live item, with either a playlist or an error.
	ItemResolved(index int, p *models.Playlist, err error)
	// AllResolved is called once per load cycle after every item has settled.
	AllResolved()
}

// LivenessChecker is optionally implemented by a [Renderer]. Results for indexes that are no
// longer live are dropped without calling ItemResolved.
type LivenessChecker interface {
	Live(index int) bool
}

// ResolveFunc resolves the item at index.
type ResolveFunc func(ctx context.Context, index int, url string) (*models.Playlist, error)

// ItemResult is the outcome of one item in a load cycle.
type ItemResult struct {
	Index    int
	URL      string
	Playlist *models.Playlist
	Err      error
	Dropped  bool
}

// LoadResult summarizes a load cycle. Items is indexed like the input.
type LoadResult struct {
	Items    []ItemResult
	Resolved int
	Failed   int
	Dropped  int
}

func (r *LoadResult) Total() int { return len(r.Items) }

// Playlists returns the resolved playlists in source order.
func (r *LoadResult) Playlists() []*models.Playlist { return playlists(r.Items) }

// LoadState tracks settlement for a single cycle.
type LoadState struct {
	Total     int
	completed atomic.Int64
	once      sync.Once
}

// Completed returns how many items have settled.
func (s *LoadState) Completed() int { return int(s.completed.Load()) }

// settle records one outcome and reports whether it was the last.
func (s *LoadState) settle() (int, bool) {
	n := int(s.completed.Add(1))
	return n, n == s.Total
}

// Loader resolves items in fixed-size sequential batches with a pause between batches.
//
// Items within a batch resolve concurrently. A failing item never affects its siblings.
type Loader struct {
	chunkSize int
	pace      time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *log.Logger
	running   atomic.Bool
}

// LoaderOption configures a [Loader].
type LoaderOption func(*Loader)

// WithChunkSize sets the batch size. Non-positive values keep the default.
func WithChunkSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

// WithPace sets the delay between batches.
func WithPace(d time.Duration) LoaderOption {
	return func(l *Loader) { l.pace = d }
}

// WithSleep replaces the pacing sleep, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) LoaderOption {
	return func(l *Loader) { l.sleep = fn }
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a [Loader] with [DefaultChunkSize] and [DefaultPace] unless overridden.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{chunkSize: DefaultChunkSize, pace: DefaultPace, sleep: sleepCtx}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = shared.NewLogger(nil)
	}
	return l
}

// ChunkSize returns the configured batch size.
func (l *Loader) ChunkSize() int { return l.chunkSize }

// Chunk splits items into consecutive slices of at most size elements, preserving order.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		chunks = append(chunks, items[i:min(i+size, len(items))])
	}
	return chunks
}

// Load runs one load cycle over urls.
//
// Every item settles exactly once and AllResolved fires once all have settled, including
// immediately for an empty input. Cancellation is observed between batches and during the
// pacing delay; it returns ctx.Err() and AllResolved does not fire.
func (l *Loader) Load(ctx context.Context, urls []string, resolve ResolveFunc, r Renderer, progress chan<- ProgressUpdate) (*LoadResult, error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, shared.ErrLoadInFlight
	}
	defer l.running.Store(false)

	if r == nil {
		r = nopRenderer{}
	}
	live, _ := r.(LivenessChecker)

	state := &LoadState{Total: len(urls)}
	result := &LoadResult{Items: make([]ItemResult, len(urls))}
	finish := func() {
		state.once.Do(func() {
			l.logger.Info("all playlists settled", "total", state.Total)
			r.AllResolved()
		})
	}

	if state.Total == 0 {
		finish()
		sendProgress(progress, loadCompleteUpdate(result))
		return result, nil
	}

	batches := Chunk(urls, l.chunkSize)
	for b, batch := range batches {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sendProgress(progress, resolveBatchUpdate(b+1, len(batches), len(batch)))
		var g errgroup.Group
		for j, url := range batch {
			index := b*l.chunkSize + j
			g.Go(func() error {
				p, err := l.resolveItem(ctx, resolve, index, url)

				res := ItemResult{Index: index, URL: url, Playlist: p, Err: err}
				if live != nil && !live.Live(index) {
					res.Dropped = true
				} else {
					if err != nil {
						l.logger.Error("failed to load playlist", "url", url, "error", err)
					}
					r.ItemResolved(index, p, err)
				}
				result.Items[index] = res

				n, last := state.settle()
				sendProgress(progress, itemSettledUpdate(n, state.Total, res))
				if last {
					finish()
				}
				return nil
			})
		}
		g.Wait()

		if b < len(batches)-1 {
			sendProgress(progress, paceUpdate(b+1, len(batches)))
			if err := l.sleep(ctx, l.pace); err != nil {
				return result, err
			}
		}
	}

	for _, it := range result.Items {
		switch {
		case it.Dropped:
			result.Dropped++
		case it.Err != nil:
			result.Failed++
		default:
			result.Resolved++
		}
	}
	sendProgress(progress, loadCompleteUpdate(result))
	return result, nil
}

// resolveItem converts a panicking resolver into an item error.
func (l *Loader) resolveItem(ctx context.Context, resolve ResolveFunc, index int, url string) (p *models.Playlist, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("resolver panicked: %v", rec)
		}
	}()
	return resolve(ctx, index, url)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRenderer struct{}

func (nopRenderer) ItemResolved(int, *models.Playlist, error) {}
func (nopRenderer) AllResolved()                              {}
