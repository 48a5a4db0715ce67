package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lumen/internal/formatter"
	"github.com/desertthunder/lumen/internal/repositories"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/desertthunder/lumen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// GalleryLoad resolves every playlist in the source file and prints the gallery.
func (r *Runner) GalleryLoad(ctx context.Context, cmd *cli.Command) error {
	source := cmd.String("source")
	if source == "" {
		source = r.config.Loader.Source
	}

	urls, err := tasks.ReadSource(source)
	if err != nil {
		return err
	}
	r.logger.Info("loading gallery", "source", source, "playlists", len(urls))

	if cmd.Bool("tui") {
		return r.GalleryTUI(ctx, urls)
	}

	engine, err := r.galleryEngine(ctx)
	if err != nil {
		return err
	}

	format := formatter.Format(cmd.String("format"))
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	res, err := engine.Load(ctx, urls, nil, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	entries := make([]formatter.Entry, 0, len(res.Items))
	for _, it := range res.Items {
		entries = append(entries, formatter.Entry{Index: it.Index, URL: it.URL, Playlist: it.Playlist, Err: it.Err})
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, format, entries); err != nil {
			return err
		}
		r.logger.Info("gallery written", "path", path, "format", format)
	} else {
		data, err := formatter.Render(format, entries)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if format != formatter.FormatJSON {
		r.writePlainln("%d loaded, %d failed", res.Resolved, res.Failed)
	}
	return nil
}

// GalleryOpen opens the permalink of a cached playlist in the browser.
//
// --index is a position in the current source file, so cache rows left over from an
// older playlists.json are never matched by position.
func (r *Runner) GalleryOpen(ctx context.Context, cmd *cli.Command) error {
	sourceURL := cmd.String("url")
	if sourceURL == "" {
		if !cmd.IsSet("index") {
			return fmt.Errorf("%w: either --index or --url must be provided", shared.ErrMissingArgument)
		}
		source := cmd.String("source")
		if source == "" {
			source = r.config.Loader.Source
		}
		urls, err := tasks.ReadSource(source)
		if err != nil {
			return err
		}
		index := cmd.Int("index")
		if index < 0 || index >= len(urls) {
			return fmt.Errorf("%w: index %d outside %s (%d playlists)", shared.ErrInvalidFlag, index, source, len(urls))
		}
		sourceURL = urls[index]
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	cached, err := repositories.NewPlaylistRepository(db).GetBySourceURL(sourceURL)
	if err != nil {
		return fmt.Errorf("%w (run 'lumen gallery load' first)", err)
	}

	r.logger.Info("opening playlist", "title", cached.Title, "url", cached.PermalinkURL)
	if err := r.browse(cached.PermalinkURL); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return r.writePlain("Opened %s\n", cached.PermalinkURL)
}
