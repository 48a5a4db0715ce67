package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Playlist is a resolved, normalized playlist.
//
// Index is the position of the source URL in the load cycle, and Duration is the
// total length in milliseconds.
type Playlist struct {
	Index        int    `json:"index"`
	SourceURL    string `json:"source_url"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	PermalinkURL string `json:"permalink_url"`
	ArtworkURL   string `json:"artwork_url"`
	TrackCount   int    `json:"track_count"`
	Duration     int64  `json:"duration_ms"`
}

// CachedPlaylist is a [Playlist] persisted after a successful resolution.
type CachedPlaylist struct {
	Playlist
	PlaylistID string
	ResolvedAt time.Time
}

func (c *CachedPlaylist) ID() string           { return c.PlaylistID }
func (c *CachedPlaylist) CreatedAt() time.Time { return c.ResolvedAt }
func (c *CachedPlaylist) UpdatedAt() time.Time { return c.ResolvedAt }

func (c *CachedPlaylist) Validate() error {
	switch {
	case c.SourceURL == "":
		return fmt.Errorf("cached playlist needs a source url")
	case c.Title == "":
		return fmt.Errorf("cached playlist needs a title")
	case c.Index < 0:
		return fmt.Errorf("cached playlist index must not be negative")
	}
	return nil
}
