package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
)

const playlistColumns = `id, source_url, position, title, artist, permalink_url, artwork_url, track_count, duration_ms, resolved_at`

// PlaylistRepository implements models.Repository[*models.CachedPlaylist] over the playlist_cache table.
//
// The gallery engine writes through [PlaylistRepository.CachePlaylist]; rows are keyed by
// source URL so each playlist keeps only its latest resolution.
type PlaylistRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, now: time.Now}
}

// Create inserts a new cached playlist with a generated ID.
func (r *PlaylistRepository) Create(c *models.CachedPlaylist) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	c.PlaylistID = shared.GenerateID()
	if c.ResolvedAt.IsZero() {
		c.ResolvedAt = r.now()
	}

	query := `INSERT INTO playlist_cache (` + playlistColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		c.PlaylistID,
		c.SourceURL,
		c.Index,
		c.Title,
		c.Artist,
		c.PermalinkURL,
		c.ArtworkURL,
		c.TrackCount,
		c.Duration,
		c.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	return nil
}

// Get retrieves a cached playlist by ID
func (r *PlaylistRepository) Get(id string) (*models.CachedPlaylist, error) {
	row := r.db.QueryRow(`SELECT `+playlistColumns+` FROM playlist_cache WHERE id = ?`, id)
	return r.scan(row)
}

// GetBySourceURL retrieves the cached resolution of a playlists.json entry.
func (r *PlaylistRepository) GetBySourceURL(url string) (*models.CachedPlaylist, error) {
	row := r.db.QueryRow(`SELECT `+playlistColumns+` FROM playlist_cache WHERE source_url = ?`, url)
	return r.scan(row)
}

// Update overwrites the metadata of an existing cached playlist.
func (r *PlaylistRepository) Update(c *models.CachedPlaylist) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	c.ResolvedAt = r.now()

	query := `
		UPDATE playlist_cache
		SET position = ?, title = ?, artist = ?, permalink_url = ?, artwork_url = ?,
		    track_count = ?, duration_ms = ?, resolved_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		c.Index,
		c.Title,
		c.Artist,
		c.PermalinkURL,
		c.ArtworkURL,
		c.TrackCount,
		c.Duration,
		c.ResolvedAt,
		c.PlaylistID,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	return expectRows(result, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, c.PlaylistID))
}

// Delete removes a cached playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM playlist_cache WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return expectRows(result, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id))
}

// List returns cached playlists in gallery order.
//
// Supported criteria: "artist" (string, exact match) and "limit" (int).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.CachedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlist_cache WHERE 1 = 1`
	args := []any{}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	query += " ORDER BY position ASC, source_url ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.CachedPlaylist
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// CachePlaylist upserts p by source URL. It satisfies tasks.PlaylistCacher.
func (r *PlaylistRepository) CachePlaylist(p *models.Playlist) error {
	c := &models.CachedPlaylist{Playlist: *p, PlaylistID: shared.GenerateID(), ResolvedAt: r.now()}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlist_cache (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			artist = excluded.artist,
			permalink_url = excluded.permalink_url,
			artwork_url = excluded.artwork_url,
			track_count = excluded.track_count,
			duration_ms = excluded.duration_ms,
			resolved_at = excluded.resolved_at
	`
	_, err := r.db.Exec(query,
		c.PlaylistID,
		c.SourceURL,
		c.Index,
		c.Title,
		c.Artist,
		c.PermalinkURL,
		c.ArtworkURL,
		c.TrackCount,
		c.Duration,
		c.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to cache playlist: %w", err)
	}
	return nil
}

// Clear deletes every cached playlist and returns how many were removed.
func (r *PlaylistRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM playlist_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear playlist cache: %w", err)
	}
	return result.RowsAffected()
}

func (r *PlaylistRepository) scan(s scanner) (*models.CachedPlaylist, error) {
	var c models.CachedPlaylist
	err := s.Scan(
		&c.PlaylistID,
		&c.SourceURL,
		&c.Index,
		&c.Title,
		&c.Artist,
		&c.PermalinkURL,
		&c.ArtworkURL,
		&c.TrackCount,
		&c.Duration,
		&c.ResolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return &c, nil
}
