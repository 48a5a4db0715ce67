package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
)

const (
	// DefaultSoundCloudAPI is the v2 API root.
	DefaultSoundCloudAPI = "https://api-v2.soundcloud.com"

	// PlaceholderArtwork stands in for playlists without artwork.
	PlaceholderArtwork = "https://placeholder.com/500x500"

	unknownArtist = "Unknown Artist"
)

var playlistURLPattern = regexp.MustCompile(`soundcloud\.com/([^/]+)/sets/([^/?#]+)`)

type scUser struct {
	Username string `json:"username"`
}

type scTrack struct {
	Duration int64 `json:"duration"`
}

// scPlaylist is the subset of a /resolve response used for display.
// Tracks is nil when the field is absent or null.
type scPlaylist struct {
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	PermalinkURL string    `json:"permalink_url"`
	ArtworkURL   string    `json:"artwork_url"`
	Duration     int64     `json:"duration"`
	TrackCount   int       `json:"track_count"`
	User         *scUser   `json:"user"`
	Tracks       []scTrack `json:"tracks"`
}

// SoundCloudService resolves SoundCloud playlists.
type SoundCloudService struct {
	baseURL string
	fetcher JSONFetcher
	logger  *log.Logger
}

// NewSoundCloudService creates a [SoundCloudService]. An empty baseURL uses [DefaultSoundCloudAPI].
func NewSoundCloudService(baseURL string, f JSONFetcher, logger *log.Logger) *SoundCloudService {
	if baseURL == "" {
		baseURL = DefaultSoundCloudAPI
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SoundCloudService{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: f,
		logger:  shared.WithLogger(logger, "service", "soundcloud"),
	}
}

func (s *SoundCloudService) Name() string { return "SoundCloud" }

// ResolvePlaylist resolves permalink via /resolve and normalizes the result.
func (s *SoundCloudService) ResolvePlaylist(ctx context.Context, permalink string) (*models.Playlist, error) {
	if _, _, err := ParsePlaylistURL(permalink); err != nil {
		return nil, err
	}

	endpoint := s.baseURL + "/resolve?url=" + url.QueryEscape(permalink)
	var raw scPlaylist
	if err := s.fetcher.FetchInto(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", permalink, err)
	}

	if raw.Kind != "playlist" && raw.Tracks == nil {
		s.logger.Error("invalid response type", "kind", raw.Kind, "url", permalink)
		return nil, fmt.Errorf("%w: got kind %q", shared.ErrUnexpectedKind, raw.Kind)
	}

	p := normalize(permalink, raw)
	return &p, nil
}

// ParsePlaylistURL extracts the user and set slugs from a playlist permalink.
func ParsePlaylistURL(permalink string) (user, slug string, err error) {
	m := playlistURLPattern.FindStringSubmatch(permalink)
	if m == nil {
		return "", "", fmt.Errorf("%w: %s", shared.ErrInvalidPlaylistURL, permalink)
	}
	return m[1], m[2], nil
}

// ArtworkURL upgrades the default artwork size to 500x500, or returns the placeholder.
func ArtworkURL(raw string) string {
	if raw == "" {
		return PlaceholderArtwork
	}
	return strings.Replace(raw, "-large", "-t500x500", 1)
}

func normalize(permalink string, raw scPlaylist) models.Playlist {
	p := models.Playlist{
		SourceURL:    permalink,
		Title:        raw.Title,
		Artist:       unknownArtist,
		PermalinkURL: raw.PermalinkURL,
		ArtworkURL:   ArtworkURL(raw.ArtworkURL),
		TrackCount:   raw.TrackCount,
		Duration:     raw.Duration,
	}

	if raw.User != nil && raw.User.Username != "" {
		p.Artist = raw.User.Username
	}
	if p.PermalinkURL == "" {
		p.PermalinkURL = permalink
	}

	if raw.Tracks != nil {
		p.TrackCount = len(raw.Tracks)
		p.Duration = 0
		for _, t := range raw.Tracks {
			p.Duration += t.Duration
		}
	}
	return p
}
