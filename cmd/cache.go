package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lumen/internal/formatter"
	"github.com/desertthunder/lumen/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheList prints the playlists persisted by previous gallery loads.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if artist := cmd.String("artist"); artist != "" {
		criteria["artist"] = artist
	}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = limit
	}

	cached, err := repositories.NewPlaylistRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(cached, true)
	}
	if len(cached) == 0 {
		return r.writePlain("No cached playlists\n")
	}

	entries := make([]formatter.Entry, 0, len(cached))
	for _, c := range cached {
		p := c.Playlist
		entries = append(entries, formatter.Entry{Index: c.Index, URL: c.SourceURL, Playlist: &p})
	}
	data, err := formatter.ToTable(entries)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// CacheClear deletes every cached playlist.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewPlaylistRepository(db).Clear()
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	r.logger.Info("playlist cache cleared", "rows", n)
	return r.writePlain("✓ Removed %d cached playlists\n", n)
}
