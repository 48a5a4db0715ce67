package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/desertthunder/lumen/internal/ui"
)

// GalleryTUI shows the gallery as an interactive grid that fills in as playlists resolve.
func (r *Runner) GalleryTUI(ctx context.Context, urls []string) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	shared.SetLogLevel(fileLogger, shared.ParseLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	engine, err := r.galleryEngine(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, engine, urls)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
