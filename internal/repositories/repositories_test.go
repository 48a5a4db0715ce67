package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
)

var _ models.Repository[*models.CachedPlaylist] = (*PlaylistRepository)(nil)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func playlist(index int, url, title string) *models.Playlist {
	return &models.Playlist{
		Index:        index,
		SourceURL:    url,
		Title:        title,
		Artist:       "Artist",
		PermalinkURL: url,
		ArtworkURL:   "https://i1.sndcdn.com/artworks-1-t500x500.jpg",
		TrackCount:   3,
		Duration:     185000,
	}
}

func TestSlotRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		repo := NewSlotRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, shared.ErrSlotEmpty) {
			t.Errorf("Get() error = %v, want ErrSlotEmpty", err)
		}
	})

	t.Run("Set And Get", func(t *testing.T) {
		repo := NewSlotRepository(setupTestDB(t))
		if err := repo.Set(ctx, "lumen:credential", []byte(`{"value":"a"}`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := repo.Get(ctx, "lumen:credential")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `{"value":"a"}` {
			t.Errorf("Get() = %s", got)
		}
	})

	t.Run("Set Replaces", func(t *testing.T) {
		repo := NewSlotRepository(setupTestDB(t))
		_ = repo.Set(ctx, "k", []byte("one"))
		if err := repo.Set(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, _ := repo.Get(ctx, "k")
		if string(got) != "two" {
			t.Errorf("Get() = %s, want two", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSlotRepository(setupTestDB(t))
		_ = repo.Set(ctx, "k", []byte("v"))
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Get(ctx, "k"); !errors.Is(err, shared.ErrSlotEmpty) {
			t.Errorf("Get() after Delete error = %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		c := &models.CachedPlaylist{Playlist: *playlist(0, "https://soundcloud.com/a/sets/one", "One")}

		if err := repo.Create(c); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if c.ID() == "" {
			t.Fatal("ID should be set after creation")
		}

		got, err := repo.Get(c.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != "One" || got.Duration != 185000 || got.TrackCount != 3 {
			t.Errorf("Get() = %+v", got)
		}
	})

	t.Run("Create Validates", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		if err := repo.Create(&models.CachedPlaylist{}); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		if _, err := repo.Get("nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("Get() error = %v, want ErrPlaylistNotFound", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		c := &models.CachedPlaylist{Playlist: *playlist(0, "https://soundcloud.com/a/sets/one", "One")}
		_ = repo.Create(c)

		c.Title = "Renamed"
		if err := repo.Update(c); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, _ := repo.Get(c.ID())
		if got.Title != "Renamed" {
			t.Errorf("title = %q, want Renamed", got.Title)
		}

		c.PlaylistID = "missing"
		if err := repo.Update(c); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("Update() missing error = %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		c := &models.CachedPlaylist{Playlist: *playlist(0, "https://soundcloud.com/a/sets/one", "One")}
		_ = repo.Create(c)

		if err := repo.Delete(c.ID()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete(c.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("second Delete() error = %v", err)
		}
	})

	t.Run("CachePlaylist Upserts By Source URL", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		url := "https://soundcloud.com/a/sets/one"

		if err := repo.CachePlaylist(playlist(2, url, "First")); err != nil {
			t.Fatalf("CachePlaylist() error = %v", err)
		}
		if err := repo.CachePlaylist(playlist(0, url, "Second")); err != nil {
			t.Fatalf("CachePlaylist() error = %v", err)
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected one row per source url, got %d", len(all))
		}
		if all[0].Title != "Second" || all[0].Index != 0 {
			t.Errorf("cached = %+v", all[0])
		}
	})

	t.Run("List Orders By Position", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		for _, p := range []*models.Playlist{
			playlist(2, "https://soundcloud.com/a/sets/c", "C"),
			playlist(0, "https://soundcloud.com/a/sets/a", "A"),
			playlist(1, "https://soundcloud.com/b/sets/b", "B"),
		} {
			if err := repo.CachePlaylist(p); err != nil {
				t.Fatalf("CachePlaylist() error = %v", err)
			}
		}

		all, _ := repo.List(nil)
		if len(all) != 3 || all[0].Title != "A" || all[1].Title != "B" || all[2].Title != "C" {
			t.Errorf("List() order wrong: %v", titles(all))
		}

		limited, _ := repo.List(map[string]any{"limit": 2})
		if len(limited) != 2 {
			t.Errorf("limit 2 returned %d", len(limited))
		}
	})

	t.Run("List By Artist", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		a := playlist(0, "https://soundcloud.com/a/sets/a", "A")
		b := playlist(1, "https://soundcloud.com/b/sets/b", "B")
		b.Artist = "Other"
		_ = repo.CachePlaylist(a)
		_ = repo.CachePlaylist(b)

		got, _ := repo.List(map[string]any{"artist": "Other"})
		if len(got) != 1 || got[0].Title != "B" {
			t.Errorf("List(artist) = %v", titles(got))
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return fixed }

		_ = repo.CachePlaylist(playlist(0, "https://soundcloud.com/a/sets/a", "A"))
		_ = repo.CachePlaylist(playlist(1, "https://soundcloud.com/a/sets/b", "B"))

		got, _ := repo.GetBySourceURL("https://soundcloud.com/a/sets/a")
		if got == nil || !got.ResolvedAt.Equal(fixed) {
			t.Errorf("resolved_at = %v, want %v", got, fixed)
		}

		n, err := repo.Clear()
		if err != nil || n != 2 {
			t.Errorf("Clear() = %d, %v; want 2", n, err)
		}
		if all, _ := repo.List(nil); len(all) != 0 {
			t.Errorf("expected empty cache, got %d", len(all))
		}
	})
}

func titles(ps []*models.CachedPlaylist) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}
