package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/desertthunder/lumen/internal/fetcher"
	"github.com/desertthunder/lumen/internal/issuer"
	"github.com/desertthunder/lumen/internal/repositories"
	"github.com/desertthunder/lumen/internal/services"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/desertthunder/lumen/internal/tasks"
)

// database opens and migrates the configured sqlite file once.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.closers = append(r.closers, db)
	return db, nil
}

// credentialSlot builds the durable slot for the configured store backend.
func (r *Runner) credentialSlot(ctx context.Context) (credentials.Slot, error) {
	if r.slot != nil {
		return r.slot, nil
	}

	store := r.config.Credentials.Store
	var (
		slot credentials.Slot
		err  error
	)
	switch store.Backend {
	case shared.BackendFile, "":
		slot, err = credentials.NewFileSlot(store.Path)
	case shared.BackendMemory:
		slot = credentials.NewMemorySlot()
	case shared.BackendRedis:
		if store.RedisURL == "" {
			return nil, fmt.Errorf("%w: credentials.store.redis_url (or %s)", shared.ErrMissingConfig, shared.EnvRedisURL)
		}
		var rs *credentials.RedisSlot
		if rs, err = credentials.NewRedisSlot(ctx, store.RedisURL); err == nil {
			r.closers = append(r.closers, rs)
			slot = rs
		}
	case shared.BackendSQLite:
		var db *sql.DB
		if db, err = r.database(); err == nil {
			slot = repositories.NewSlotRepository(db)
		}
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s credential store: %w", store.Backend, err)
	}

	r.logger.Debug("credential store ready", "backend", store.Backend)
	r.slot = slot
	return slot, nil
}

// credentialIssuer builds the issuer for the configured strategy.
func (r *Runner) credentialIssuer() (credentials.Issuer, error) {
	if r.issuer != nil {
		return r.issuer, nil
	}

	sc := r.config.Credentials.SoundCloud
	var iss credentials.Issuer
	switch sc.Strategy {
	case shared.StrategyToken:
		if sc.ClientID == "" || sc.ClientSecret == "" {
			return nil, fmt.Errorf("%w: token strategy needs client_id and client_secret (or %s/%s)",
				shared.ErrMissingCredentials, shared.EnvClientID, shared.EnvClientSecret)
		}
		iss = issuer.NewTokenIssuer(sc, r.httpClient, r.logger)
	case shared.StrategyScrape, "":
		headers, err := shared.LoadHeaders(sc.HeadersPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				r.logger.Warn("ignoring browser headers", "path", sc.HeadersPath, "error", err)
			}
			headers = nil
		}
		iss = issuer.NewScrapeIssuer(sc.HomeURL, r.httpClient, headers, r.logger)
	case shared.StrategyProxy:
		iss = issuer.NewProxyIssuer(services.NewAPIService(sc.ProxyURL, r.httpClient), r.logger)
	default:
		return nil, fmt.Errorf("%w: unknown credential strategy %q", shared.ErrInvalidConfig, sc.Strategy)
	}

	r.issuer = iss
	return iss, nil
}

// credentialSession wires the store and issuer into a [credentials.Session].
func (r *Runner) credentialSession(ctx context.Context) (*credentials.Session, error) {
	if r.session != nil {
		return r.session, nil
	}

	slot, err := r.credentialSlot(ctx)
	if err != nil {
		return nil, err
	}
	iss, err := r.credentialIssuer()
	if err != nil {
		return nil, err
	}

	store := credentials.NewStore(slot,
		credentials.WithKey(r.config.Credentials.Store.Key),
		credentials.WithSafetyMargin(r.config.Credentials.Store.SafetyMargin()),
		credentials.WithStoreLogger(r.logger),
	)
	r.session = credentials.NewSession(store, iss, r.logger)
	return r.session, nil
}

// authStyle picks how the credential travels: OAuth tokens in the header, client ids in the query.
func (r *Runner) authStyle() fetcher.AuthStyle {
	if r.config.Credentials.SoundCloud.Strategy == shared.StrategyToken {
		return fetcher.AuthHeader
	}
	return fetcher.AuthQuery
}

// apiFetcher builds the authenticated fetcher for the media API.
func (r *Runner) apiFetcher(ctx context.Context) (*fetcher.Fetcher, error) {
	if r.fetch != nil {
		return r.fetch, nil
	}

	session, err := r.credentialSession(ctx)
	if err != nil {
		return nil, err
	}

	api := r.config.API
	client := r.httpClient
	if api.HTTPCache {
		client = fetcher.NewHTTPClient(true)
	}

	r.fetch = fetcher.New(client, session, fetcher.Options{
		Style:     r.authStyle(),
		Timeout:   api.Timeout(),
		Limiter:   fetcher.NewLimiter(api.RequestsPerSecond, api.Burst),
		UserAgent: api.UserAgent,
		Logger:    r.logger,
	})
	return r.fetch, nil
}

// galleryEngine builds the engine; the playlist cache is attached when the database opens.
func (r *Runner) galleryEngine(ctx context.Context) (*tasks.GalleryEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	f, err := r.apiFetcher(ctx)
	if err != nil {
		return nil, err
	}
	session, err := r.credentialSession(ctx)
	if err != nil {
		return nil, err
	}

	service := services.NewSoundCloudService(r.config.API.BaseURL, f, r.logger)
	loader := tasks.NewLoader(
		tasks.WithChunkSize(r.config.Loader.ChunkSize),
		tasks.WithPace(r.config.Loader.Pace()),
		tasks.WithLoaderLogger(r.logger),
	)
	r.engine = tasks.NewGalleryEngine(service, session, loader, r.logger)

	if db, err := r.database(); err != nil {
		r.logger.Warn("playlist cache disabled", "error", err)
	} else {
		r.engine.SetCache(repositories.NewPlaylistRepository(db))
	}
	return r.engine, nil
}
