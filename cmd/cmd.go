// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and browser headers.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "headers",
				Usage: "Save browser headers used when scraping a client id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output path for the headers file (default: credentials.soundcloud.headers_path)",
					},
				},
				Action: r.SetupHeaders,
			},
		},
	}
}

// authCommand manages the cached API credential
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the cached API credential",
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "Obtain a credential, reusing the cached one while it is valid",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Discard the cached credential and issue a new one",
					},
					&cli.BoolFlag{
						Name:  "show",
						Usage: "Print the credential value",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthToken,
			},
			{
				Name:  "status",
				Usage: "Show cached credential validity without issuing",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "clear",
				Usage:  "Delete the cached credential",
				Action: r.AuthClear,
			},
		},
	}
}

// galleryCommand loads and browses the playlist gallery
func galleryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "gallery",
		Aliases: []string{"g"},
		Usage:   "Load and browse the playlist gallery",
		Commands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Resolve every playlist in the source file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Path to playlists.json (default: loader.source)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table, markdown, or json",
						Value:   "table",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON (same as --format json)",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show the interactive gallery",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the gallery to a file instead of stdout",
					},
				},
				Action: r.GalleryLoad,
			},
			{
				Name:  "open",
				Usage: "Open a cached playlist in the browser",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Usage:   "Position of the playlist in the source file (0-based)",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Source URL of the playlist",
					},
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Path to playlists.json used to resolve --index (default: loader.source)",
					},
				},
				Action: r.GalleryOpen,
			},
		},
	}
}

// apiCommand handles direct (proxy) API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct GET calls to the local proxy",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the proxy, prints JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// serveCommand runs the local proxy
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local proxy (client id, API passthrough, gallery, metrics)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the gallery endpoint in the browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// cacheCommand inspects the playlist cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect playlists cached by gallery loads",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached playlists in gallery order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Only playlists by this artist",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to list",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "clear",
				Usage:  "Delete every cached playlist",
				Action: r.CacheClear,
			},
		},
	}
}
