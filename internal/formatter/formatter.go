// package formatter renders resolved galleries as a text table, Markdown, or JSON
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
)

// Format names an output format accepted by [Render].
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Entry is one gallery slot: a playlist or the error that replaced it.
type Entry struct {
	Index    int
	URL      string
	Playlist *models.Playlist
	Err      error
}

// FormatDuration renders milliseconds as m:ss. Minutes are not wrapped into hours.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := (ms + 500) / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Render writes entries in format f.
func Render(f Format, entries []Entry) ([]byte, error) {
	switch f {
	case FormatTable, "":
		return ToTable(entries)
	case FormatMarkdown:
		return ToMarkdown(entries)
	case FormatJSON:
		return ToJSON(entries)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want table, markdown, or json)", shared.ErrInvalidFlag, f)
	}
}

// ToTable renders a tab-aligned table with columns: #, Title, Artist, Tracks, Duration
func ToTable(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "#\tTITLE\tARTIST\tTRACKS\tDURATION")
	for _, e := range entries {
		if e.Playlist == nil {
			fmt.Fprintf(w, "%d\t%s\t%s\t-\t-\n", e.Index+1, "Failed to load playlist", errText(e.Err))
			continue
		}
		p := e.Playlist
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", e.Index+1, p.Title, p.Artist, p.TrackCount, FormatDuration(p.Duration))
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write table: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMarkdown renders a gallery as a Markdown list with cover images.
func ToMarkdown(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Playlists\n\n")
	for _, e := range entries {
		if e.Playlist == nil {
			fmt.Fprintf(&buf, "%d. **Failed to load playlist** (%s)\n", e.Index+1, errText(e.Err))
			continue
		}

		p := e.Playlist
		fmt.Fprintf(&buf, "%d. [%s](%s) by %s\n", e.Index+1, escapeMarkdown(p.Title), p.PermalinkURL, escapeMarkdown(p.Artist))
		fmt.Fprintf(&buf, "   ![%s](%s)\n", escapeMarkdown(p.Title), p.ArtworkURL)
		fmt.Fprintf(&buf, "   %d tracks [%s]\n", p.TrackCount, FormatDuration(p.Duration))
	}

	return buf.Bytes(), nil
}

// WriteFile renders entries in format f and writes them to path.
func WriteFile(path string, f Format, entries []Entry) error {
	data, err := Render(f, entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type jsonEntry struct {
	Index    int              `json:"index"`
	URL      string           `json:"url,omitempty"`
	Playlist *models.Playlist `json:"playlist,omitempty"`
	Duration string           `json:"duration,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ToJSON renders entries as an indented JSON array.
func ToJSON(entries []Entry) ([]byte, error) {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		je := jsonEntry{Index: e.Index, URL: e.URL, Playlist: e.Playlist}
		if e.Playlist != nil {
			je.Duration = FormatDuration(e.Playlist.Duration)
		} else {
			je.Error = errText(e.Err)
		}
		out = append(out, je)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode gallery: %w", err)
	}
	return append(data, '\n'), nil
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
