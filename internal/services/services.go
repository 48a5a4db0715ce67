package services

import (
	"context"

	"github.com/desertthunder/lumen/internal/models"
)

// Service resolves playlist permalinks against a media provider.
type Service interface {
	// ResolvePlaylist fetches and normalizes the playlist at permalink.
	ResolvePlaylist(ctx context.Context, permalink string) (*models.Playlist, error)

	// Name returns the name of the service (e.g., "SoundCloud")
	Name() string
}

// JSONFetcher performs an authenticated GET and decodes the JSON body. *fetcher.Fetcher satisfies it.
type JSONFetcher interface {
	FetchInto(ctx context.Context, url string, v any) error
}
