package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/desertthunder/lumen/internal/fetcher"
	"github.com/desertthunder/lumen/internal/repositories"
	"github.com/desertthunder/lumen/internal/shared"
	tu "github.com/desertthunder/lumen/internal/testing"
)

type fakeIssuer struct {
	calls atomic.Int32
	value string
	err   error
}

func (f *fakeIssuer) Name() string { return "fake" }

func (f *fakeIssuer) Issue(context.Context) (credentials.Grant, error) {
	f.calls.Add(1)
	if f.err != nil {
		return credentials.Grant{}, f.err
	}
	return credentials.Grant{Value: f.value, TTL: time.Hour}, nil
}

func quiet() RunnerOpts {
	return RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}}
}

func testDB(t *testing.T) RunnerOpts {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opts := quiet()
	opts.DB = db
	return opts
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(io.Discard)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output, HTTPClient: httpClient})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api == nil {
				t.Error("expected api service to be built from config")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil || runner.logger == nil {
				t.Error("expected default config and logger")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) || !strings.HasSuffix(output.String(), "\n") {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected marshal error")
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON(map[string]string{"a": "b"}, false); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		if err := runner.writePlain("Hello %s\n", "World"); err != nil {
			t.Fatal(err)
		}
		if output.String() != "Hello World\n" {
			t.Errorf("got %q", output.String())
		}

		runner = NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writePlain("x"); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(quiet())
		names := map[string]bool{}
		for _, c := range runner.register() {
			names[c.Name] = true
		}
		for _, want := range []string{"setup", "auth", "gallery", "api", "serve", "cache"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})
}

func TestStack(t *testing.T) {
	ctx := context.Background()

	t.Run("Store Backends", func(t *testing.T) {
		tt := []struct {
			name    string
			backend string
			setup   func(t *testing.T, opts *RunnerOpts)
			want    string
		}{
			{name: "Memory", backend: shared.BackendMemory, want: "memory"},
			{
				name:    "File",
				backend: shared.BackendFile,
				setup: func(t *testing.T, opts *RunnerOpts) {
					opts.Config.Credentials.Store.Path = t.TempDir()
				},
				want: "file",
			},
			{name: "SQLite", backend: shared.BackendSQLite, want: "sqlite"},
			{
				name:    "Redis",
				backend: shared.BackendRedis,
				setup: func(t *testing.T, opts *RunnerOpts) {
					opts.Config.Credentials.Store.RedisURL = "redis://" + miniredis.RunT(t).Addr()
				},
				want: "redis",
			},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				opts := testDB(t)
				opts.Config = shared.DefaultConfig()
				opts.Config.Credentials.Store.Backend = tc.backend
				if tc.setup != nil {
					tc.setup(t, &opts)
				}

				r := NewRunner(opts)
				defer r.Close()

				slot, err := r.credentialSlot(ctx)
				if err != nil {
					t.Fatalf("credentialSlot() error = %v", err)
				}
				if got := slotKind(slot); got != tc.want {
					t.Errorf("slot kind = %s, want %s", got, tc.want)
				}
			})
		}
	})

	t.Run("Unknown Backend", func(t *testing.T) {
		opts := quiet()
		opts.Config = shared.DefaultConfig()
		opts.Config.Credentials.Store.Backend = "etcd"
		if _, err := NewRunner(opts).credentialSlot(ctx); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("Redis Without URL", func(t *testing.T) {
		opts := quiet()
		opts.Config = shared.DefaultConfig()
		opts.Config.Credentials.Store.Backend = shared.BackendRedis
		if _, err := NewRunner(opts).credentialSlot(ctx); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("error = %v, want ErrMissingConfig", err)
		}
	})

	t.Run("Issuer Strategies", func(t *testing.T) {
		tt := []struct {
			name     string
			strategy string
			secrets  bool
			want     string
			wantErr  error
			style    fetcher.AuthStyle
		}{
			{name: "Scrape", strategy: shared.StrategyScrape, want: "scrape", style: fetcher.AuthQuery},
			{name: "Proxy", strategy: shared.StrategyProxy, want: "proxy", style: fetcher.AuthQuery},
			{name: "Token", strategy: shared.StrategyToken, secrets: true, want: "token", style: fetcher.AuthHeader},
			{name: "Token Without Secrets", strategy: shared.StrategyToken, wantErr: shared.ErrMissingCredentials},
			{name: "Unknown", strategy: "magic", wantErr: shared.ErrInvalidConfig},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				opts := quiet()
				opts.Config = shared.DefaultConfig()
				opts.Config.Credentials.SoundCloud.Strategy = tc.strategy
				opts.Config.Credentials.SoundCloud.HeadersPath = filepath.Join(t.TempDir(), "missing.json")
				if tc.secrets {
					opts.Config.Credentials.SoundCloud.ClientID = "id"
					opts.Config.Credentials.SoundCloud.ClientSecret = "secret"
				}
				r := NewRunner(opts)

				iss, err := r.credentialIssuer()
				if tc.wantErr != nil {
					if !errors.Is(err, tc.wantErr) {
						t.Errorf("error = %v, want %v", err, tc.wantErr)
					}
					return
				}
				if err != nil {
					t.Fatalf("credentialIssuer() error = %v", err)
				}
				if iss.Name() != tc.want {
					t.Errorf("issuer = %s, want %s", iss.Name(), tc.want)
				}
				if r.authStyle() != tc.style {
					t.Errorf("auth style = %v, want %v", r.authStyle(), tc.style)
				}
			})
		}
	})
}

func slotKind(s credentials.Slot) string {
	switch s.(type) {
	case *credentials.MemorySlot:
		return "memory"
	case *credentials.FileSlot:
		return "file"
	case *credentials.RedisSlot:
		return "redis"
	case *repositories.SlotRepository:
		return "sqlite"
	default:
		return "unknown"
	}
}

func TestAuthCommands(t *testing.T) {
	ctx := context.Background()

	newRunner := func(iss *fakeIssuer) (*Runner, *bytes.Buffer) {
		out := &bytes.Buffer{}
		opts := quiet()
		opts.Output = out
		opts.Slot = credentials.NewMemorySlot()
		opts.Issuer = iss
		return NewRunner(opts), out
	}

	t.Run("Token Reuses Cache", func(t *testing.T) {
		iss := &fakeIssuer{value: "abc"}
		r, out := newRunner(iss)

		for range 2 {
			if err := authCommand(r).Run(ctx, []string{"auth", "token", "--show"}); err != nil {
				t.Fatalf("auth token error = %v", err)
			}
		}
		if iss.calls.Load() != 1 {
			t.Errorf("issuer calls = %d, want 1", iss.calls.Load())
		}
		if !strings.Contains(out.String(), "Value: abc") || !strings.Contains(out.String(), "✓ Valid") {
			t.Errorf("output = %s", out.String())
		}
	})

	t.Run("Token Force", func(t *testing.T) {
		iss := &fakeIssuer{value: "abc"}
		r, _ := newRunner(iss)

		_ = authCommand(r).Run(ctx, []string{"auth", "token"})
		if err := authCommand(r).Run(ctx, []string{"auth", "token", "--force"}); err != nil {
			t.Fatal(err)
		}
		if iss.calls.Load() != 2 {
			t.Errorf("issuer calls = %d, want 2", iss.calls.Load())
		}
	})

	t.Run("Token JSON Hides Value", func(t *testing.T) {
		r, out := newRunner(&fakeIssuer{value: "secret"})
		if err := authCommand(r).Run(ctx, []string{"auth", "token", "--json"}); err != nil {
			t.Fatal(err)
		}

		var got map[string]any
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if _, ok := got["token"]; ok || got["valid"] != true {
			t.Errorf("got %v", got)
		}
	})

	t.Run("Token Failure", func(t *testing.T) {
		r, _ := newRunner(&fakeIssuer{err: shared.ErrIssuanceExhausted})
		if err := authCommand(r).Run(ctx, []string{"auth", "token"}); !errors.Is(err, shared.ErrIssuanceExhausted) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("Status And Clear", func(t *testing.T) {
		iss := &fakeIssuer{value: "abc"}
		r, out := newRunner(iss)

		if err := authCommand(r).Run(ctx, []string{"auth", "status"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "None cached") {
			t.Errorf("status before issue = %s", out.String())
		}
		if iss.calls.Load() != 0 {
			t.Error("status must not issue")
		}

		_ = authCommand(r).Run(ctx, []string{"auth", "token"})
		if err := authCommand(r).Run(ctx, []string{"auth", "clear"}); err != nil {
			t.Fatal(err)
		}

		out.Reset()
		_ = authCommand(r).Run(ctx, []string{"auth", "status"})
		if !strings.Contains(out.String(), "None cached") {
			t.Errorf("status after clear = %s", out.String())
		}
	})
}

func TestGalleryCommands(t *testing.T) {
	ctx := context.Background()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("client_id") != "cid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch target := r.URL.Query().Get("url"); {
		case strings.HasSuffix(target, "/sets/gone"):
			tu.WriteJSON(w, http.StatusNotFound, `{}`)
		default:
			tu.WriteJSON(w, http.StatusOK, `{
				"kind": "playlist",
				"title": "Night Drive",
				"user": {"username": "Artist"},
				"permalink_url": "`+target+`",
				"artwork_url": "https://i1.sndcdn.com/a-large.jpg",
				"tracks": [{"duration": 60000}, {"duration": 5000}]
			}`)
		}
	}))
	t.Cleanup(api.Close)

	source := filepath.Join(t.TempDir(), "playlists.json")
	tu.MustWriteFile(t, source, `{"playlists": [
		"https://soundcloud.com/artist/sets/night-drive",
		"https://soundcloud.com/artist/sets/gone"
	]}`)

	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer) {
		out := &bytes.Buffer{}
		opts := testDB(t)
		opts.Output = out
		opts.Slot = credentials.NewMemorySlot()
		opts.Issuer = &fakeIssuer{value: "cid"}
		opts.Config = shared.DefaultConfig()
		opts.Config.API.BaseURL = api.URL
		opts.Config.API.RequestsPerSecond = 0
		opts.Config.Loader.PaceMS = 0
		return NewRunner(opts), out
	}

	t.Run("Load Table", func(t *testing.T) {
		r, out := newRunner(t)
		if err := galleryCommand(r).Run(ctx, []string{"gallery", "load", "--source", source}); err != nil {
			t.Fatalf("gallery load error = %v", err)
		}
		for _, want := range []string{"Night Drive", "Artist", "1:05", "Failed to load playlist", "1 loaded, 1 failed"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("Load JSON Caches Results", func(t *testing.T) {
		r, out := newRunner(t)
		if err := galleryCommand(r).Run(ctx, []string{"gallery", "load", "--source", source, "--json"}); err != nil {
			t.Fatal(err)
		}

		var got []map[string]any
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out.String())
		}
		if len(got) != 2 {
			t.Fatalf("entries = %d", len(got))
		}

		out.Reset()
		if err := cacheCommand(r).Run(ctx, []string{"cache", "list"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "Night Drive") || strings.Contains(out.String(), "Failed") {
			t.Errorf("cache list = %s", out.String())
		}

		out.Reset()
		if err := cacheCommand(r).Run(ctx, []string{"cache", "clear"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "Removed 1") {
			t.Errorf("cache clear = %s", out.String())
		}
	})

	t.Run("Bad Format", func(t *testing.T) {
		r, _ := newRunner(t)
		err := galleryCommand(r).Run(ctx, []string{"gallery", "load", "--source", source, "--format", "csv"})
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("error = %v, want ErrInvalidFlag", err)
		}
	})

	t.Run("Credential Failure", func(t *testing.T) {
		r, _ := newRunner(t)
		r.issuer = &fakeIssuer{err: shared.ErrIdentifierNotFound}
		err := galleryCommand(r).Run(ctx, []string{"gallery", "load", "--source", source})
		if !errors.Is(err, shared.ErrGalleryUnavailable) {
			t.Errorf("error = %v, want ErrGalleryUnavailable", err)
		}
	})

	t.Run("Load Writes Output File", func(t *testing.T) {
		r, out := newRunner(t)
		path := filepath.Join(t.TempDir(), "gallery.md")
		args := []string{"gallery", "load", "--source", source, "--format", "markdown", "--output", path}
		if err := galleryCommand(r).Run(ctx, args); err != nil {
			t.Fatal(err)
		}

		tu.AssertFileExists(t, path)
		if got := tu.MustReadFile(t, path); !strings.Contains(got, "# Playlists") || !strings.Contains(got, "Night Drive") {
			t.Errorf("file = %s", got)
		}
		if strings.Contains(out.String(), "# Playlists") {
			t.Error("gallery should not also be printed to stdout")
		}
	})

	t.Run("Open", func(t *testing.T) {
		r, _ := newRunner(t)
		var opened []string
		r.browse = func(url string) error {
			opened = append(opened, url)
			return nil
		}
		if err := galleryCommand(r).Run(ctx, []string{"gallery", "load", "--source", source}); err != nil {
			t.Fatal(err)
		}

		t.Run("By Index", func(t *testing.T) {
			opened = nil
			if err := galleryCommand(r).Run(ctx, []string{"gallery", "open", "--index", "0", "--source", source}); err != nil {
				t.Fatalf("gallery open error = %v", err)
			}
			if len(opened) != 1 || opened[0] != "https://soundcloud.com/artist/sets/night-drive" {
				t.Errorf("opened = %v", opened)
			}
		})

		t.Run("By URL", func(t *testing.T) {
			opened = nil
			args := []string{"gallery", "open", "--url", "https://soundcloud.com/artist/sets/night-drive"}
			if err := galleryCommand(r).Run(ctx, args); err != nil {
				t.Fatalf("gallery open error = %v", err)
			}
			if len(opened) != 1 {
				t.Errorf("opened = %v", opened)
			}
		})

		t.Run("Index Follows Current Source", func(t *testing.T) {
			opened = nil
			changed := filepath.Join(t.TempDir(), "playlists.json")
			tu.MustWriteFile(t, changed, `{"playlists": ["https://soundcloud.com/other/sets/new-one"]}`)

			err := galleryCommand(r).Run(ctx, []string{"gallery", "open", "--index", "0", "--source", changed})
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("error = %v, want ErrPlaylistNotFound", err)
			}
			if len(opened) != 0 {
				t.Errorf("stale cache row opened: %v", opened)
			}
		})

		t.Run("Index Out Of Range", func(t *testing.T) {
			err := galleryCommand(r).Run(ctx, []string{"gallery", "open", "--index", "7", "--source", source})
			if !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("error = %v, want ErrInvalidFlag", err)
			}
		})

		t.Run("Needs Index Or URL", func(t *testing.T) {
			err := galleryCommand(r).Run(ctx, []string{"gallery", "open"})
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("error = %v, want ErrMissingArgument", err)
			}
		})
	})
}

func TestSetupCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("Headers From cURL", func(t *testing.T) {
		out := &bytes.Buffer{}
		opts := quiet()
		opts.Output = out
		r := NewRunner(opts)

		path := filepath.Join(t.TempDir(), "nested", "headers.json")
		args := []string{"setup", "headers", "--curl", `curl -H 'user-agent: test' -b 'a=b' https://soundcloud.com`, "--output", path}
		if err := setupCommand(r).Run(ctx, args); err != nil {
			t.Fatalf("setup headers error = %v", err)
		}

		h, err := shared.LoadHeaders(path)
		if err != nil {
			t.Fatal(err)
		}
		if h.Headers["user-agent"] != "test" || h.Cookie != "a=b" {
			t.Errorf("saved headers = %+v", h)
		}
	})

	t.Run("Headers Needs Input", func(t *testing.T) {
		r := NewRunner(quiet())
		if err := setupCommand(r).Run(ctx, []string{"setup", "headers"}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("error = %v, want ErrMissingArgument", err)
		}
	})

	t.Run("Database", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "lumen.db")
		tu.MustWriteFile(t, cfgPath, "[database]\npath = \""+filepath.ToSlash(dbPath)+"\"\n")

		r := NewRunner(quiet())
		if err := setupCommand(r).Run(ctx, []string{"setup", "database", "--config", cfgPath}); err != nil {
			t.Fatalf("setup database error = %v", err)
		}
		tu.AssertFileExists(t, dbPath)
	})
}

func TestAPICommands(t *testing.T) {
	ctx := context.Background()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			tu.WriteJSON(w, http.StatusOK, `{"status":"ok"}`)
		case "/text":
			io.WriteString(w, "plain body")
		default:
			tu.WriteJSON(w, http.StatusNotFound, `{"error":"not found"}`)
		}
	}))
	t.Cleanup(proxy.Close)

	newRunner := func() (*Runner, *bytes.Buffer) {
		out := &bytes.Buffer{}
		opts := quiet()
		opts.Output = out
		opts.Config = shared.DefaultConfig()
		opts.Config.Credentials.SoundCloud.ProxyURL = proxy.URL
		return NewRunner(opts), out
	}

	t.Run("Get", func(t *testing.T) {
		r, out := newRunner()
		if err := apiCommand(r).Run(ctx, []string{"api", "get", "/health"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), `"status": "ok"`) {
			t.Errorf("output = %s", out.String())
		}
	})

	t.Run("Get Error Status", func(t *testing.T) {
		r, _ := newRunner()
		if err := apiCommand(r).Run(ctx, []string{"api", "get", "/missing"}); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("Get Plain Text", func(t *testing.T) {
		r, out := newRunner()
		if err := apiCommand(r).Run(ctx, []string{"api", "get", "/text"}); err != nil {
			t.Fatal(err)
		}
		if out.String() != "plain body\n" {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("Get Missing Path", func(t *testing.T) {
		r, _ := newRunner()
		if err := apiCommand(r).Run(ctx, []string{"api", "get"}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("error = %v, want ErrMissingArgument", err)
		}
	})
}
