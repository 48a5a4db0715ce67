package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/services"
	"github.com/desertthunder/lumen/internal/shared"
)

// TokenPrimer obtains the credential before a load cycle. *credentials.Session satisfies it.
type TokenPrimer interface {
	Token(ctx context.Context) (string, error)
}

// PlaylistCacher persists resolved playlists. Errors are logged and otherwise ignored.
type PlaylistCacher interface {
	CachePlaylist(p *models.Playlist) error
}

// GalleryEngine loads a gallery: it primes the credential, then resolves every source URL
// through the [Loader].
type GalleryEngine struct {
	service services.Service
	tokens  TokenPrimer
	loader  *Loader
	cache   PlaylistCacher
	logger  *log.Logger
}

// NewGalleryEngine creates a [GalleryEngine]. tokens may be nil when the service needs no credential.
func NewGalleryEngine(service services.Service, tokens TokenPrimer, loader *Loader, logger *log.Logger) *GalleryEngine {
	if loader == nil {
		loader = NewLoader(WithLoaderLogger(logger))
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &GalleryEngine{service: service, tokens: tokens, loader: loader, logger: logger}
}

// SetCache enables persisting each resolved playlist.
func (e *GalleryEngine) SetCache(c PlaylistCacher) {
	e.cache = c
}

// Load runs one gallery load cycle.
//
// Failing to obtain a credential up front is the only page-level error
// ([shared.ErrGalleryUnavailable]); per-playlist failures are reported to r.
func (e *GalleryEngine) Load(ctx context.Context, urls []string, r Renderer, progress chan<- ProgressUpdate) (*LoadResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: no media service configured", shared.ErrServiceUnavailable)
	}

	if e.tokens != nil {
		sendProgress(progress, primeCredentialUpdate())
		if _, err := e.tokens.Token(ctx); err != nil {
			e.logger.Error("error loading playlists", "error", err)
			return nil, fmt.Errorf("%w: %w", shared.ErrGalleryUnavailable, err)
		}
	}

	return e.loader.Load(ctx, urls, e.resolve, r, progress)
}

func (e *GalleryEngine) resolve(ctx context.Context, index int, url string) (*models.Playlist, error) {
	p, err := e.service.ResolvePlaylist(ctx, url)
	if err != nil {
		return nil, err
	}
	p.Index = index

	if e.cache != nil {
		if err := e.cache.CachePlaylist(p); err != nil {
			e.logger.Warn("failed to cache playlist", "url", url, "error", err)
		}
	}
	return p, nil
}
