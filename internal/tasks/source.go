package tasks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/lumen/internal/shared"
)

// Source is the playlists.json document: an ordered list of playlist permalinks.
type Source struct {
	Playlists []string `json:"playlists"`
}

// ReadSource loads the playlist list at path.
func ReadSource(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist source: %w", err)
	}
	defer f.Close()
	return ParseSource(f)
}

// ParseSource decodes a playlists.json document, dropping blank entries.
func ParseSource(r io.Reader) ([]string, error) {
	var src Source
	if err := json.NewDecoder(r).Decode(&src); err != nil {
		return nil, fmt.Errorf("%w: playlist source: %v", shared.ErrInvalidInput, err)
	}

	urls := make([]string, 0, len(src.Playlists))
	for _, u := range src.Playlists {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// WriteSource writes urls as a playlists.json document.
func WriteSource(w io.Writer, urls []string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Source{Playlists: urls})
}
