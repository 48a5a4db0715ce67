package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/lumen/internal/server"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/desertthunder/lumen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the local proxy until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.SoundCloud.Strategy == shared.StrategyProxy {
		return fmt.Errorf("%w: the proxy cannot issue credentials through itself; use the scrape or token strategy", shared.ErrInvalidConfig)
	}

	session, err := r.credentialSession(ctx)
	if err != nil {
		return err
	}

	f, err := r.apiFetcher(ctx)
	if err != nil {
		return err
	}
	engine, err := r.galleryEngine(ctx)
	if err != nil {
		return err
	}

	source := r.config.Loader.Source
	router := server.NewRouter(server.Deps{
		Credentials: session,
		Upstream:    f,
		UpstreamURL: r.config.API.BaseURL,
		Gallery:     engine,
		Source:      func() ([]string, error) { return tasks.ReadSource(source) },
		Logger:      shared.WithLogger(r.logger, "component", "proxy"),
	})

	addr := r.config.Server.Addr()
	if host := cmd.String("host"); host != "" {
		addr = fmt.Sprintf("%s:%d", host, r.config.Server.Port)
	}
	if port := cmd.Int("port"); port > 0 {
		host, _, _ := strings.Cut(addr, ":")
		addr = fmt.Sprintf("%s:%d", host, port)
	}

	var ready func()
	if cmd.Bool("open") {
		url := "http://" + addr + server.GalleryRoute
		ready = func() {
			if err := r.browse(url); err != nil {
				r.logger.Warn("failed to open browser", "url", url, "error", err)
			}
		}
	}

	r.writePlain("Proxy running at http://%s (ctrl+c to stop)\n", addr)
	return server.Serve(ctx, addr, router, r.logger, ready)
}
