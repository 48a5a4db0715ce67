package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/lumen/internal/formatter"
	"github.com/desertthunder/lumen/internal/models"
)

const cardWidth = 30

var _ list.Item = card{}

type cardState int

const (
	cardPending cardState = iota
	cardLoaded
	cardFailed
)

// card is one gallery slot. It implements [list.Item] so loaded cards can be filtered by title.
type card struct {
	url      string
	state    cardState
	playlist *models.Playlist
	err      error
}

func (c card) FilterValue() string { return c.Title() }

func (c card) Title() string {
	switch c.state {
	case cardLoaded:
		return c.playlist.Title
	case cardFailed:
		return "Failed to load playlist"
	default:
		return "Loading..."
	}
}

func (c card) Description() string {
	if c.state != cardLoaded {
		return c.url
	}
	p := c.playlist
	return fmt.Sprintf("%s • %d tracks • %s", p.Artist, p.TrackCount, formatter.FormatDuration(p.Duration))
}

// render draws the card body; spin is the current spinner frame for pending cards.
func (c card) render(spin string, selected bool) string {
	var body string
	switch c.state {
	case cardLoaded:
		p := c.playlist
		body = strings.Join([]string{
			styles.ok.Render(truncate(p.Title, cardWidth-2)),
			truncate(p.Artist, cardWidth-2),
			styles.help.Render(fmt.Sprintf("%d tracks • %s", p.TrackCount, formatter.FormatDuration(p.Duration))),
		}, "\n")
	case cardFailed:
		body = strings.Join([]string{
			styles.err.Render("Failed to load playlist"),
			styles.help.Render(truncate(c.url, cardWidth-2)),
			"",
		}, "\n")
	default:
		body = strings.Join([]string{spin + " Loading...", styles.help.Render(truncate(c.url, cardWidth-2)), ""}, "\n")
	}

	if selected {
		return styles.selected.Render(body)
	}
	return styles.card.Render(body)
}

// grid lays cards out in rows that fit width.
func grid(cards []card, cursor int, spin string, width int) string {
	perRow := max(1, width/(cardWidth+4))

	var rows []string
	for start := 0; start < len(cards); start += perRow {
		end := min(start+perRow, len(cards))
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, cards[i].render(spin, i == cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
