package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/desertthunder/lumen/internal/tasks"
)

// Gallery runs load cycles. *tasks.GalleryEngine satisfies it.
type Gallery interface {
	Load(ctx context.Context, urls []string, r tasks.Renderer, progress chan<- tasks.ProgressUpdate) (*tasks.LoadResult, error)
}

// Bridge is the [tasks.Renderer] handed to the loader. It forwards outcomes to the
// running program and reports every slot dead once the program has quit.
type Bridge struct {
	mu     sync.RWMutex
	send   func(tea.Msg)
	closed atomic.Bool
}

// NewBridge creates a [Bridge] that delivers messages with send (usually [tea.Program.Send]).
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

// SetSender replaces the delivery function, for wiring after the program exists.
func (b *Bridge) SetSender(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) deliver(msg tea.Msg) {
	if b.closed.Load() {
		return
	}
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (b *Bridge) ItemResolved(index int, p *models.Playlist, err error) {
	b.deliver(itemResolvedMsg(index, p, err))
}

func (b *Bridge) AllResolved() { b.deliver(allResolvedMsg()) }

// Live reports whether the gallery is still on screen.
func (b *Bridge) Live(int) bool { return !b.closed.Load() }

// Close marks every slot dead; later outcomes are dropped by the loader.
func (b *Bridge) Close() { b.closed.Store(true) }

// Model is the gallery view.
type Model struct {
	ctx       context.Context
	gallery   Gallery
	urls      []string
	bridge    *Bridge
	open      func(url string) error
	cards     []card
	cursor    int
	width     int
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	progress  tasks.ProgressUpdate
	updates   chan tasks.ProgressUpdate
	done      chan error
	loading   bool
	allLoaded bool
	resolved  int
	failed    int
	err       error
	notice    string
}

// NewModel creates the gallery view over urls. Call [Model.Attach] with the program before running it.
func NewModel(ctx context.Context, gallery Gallery, urls []string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.warn

	return &Model{
		ctx:     ctx,
		gallery: gallery,
		urls:    urls,
		bridge:  NewBridge(nil),
		open:    shared.OpenBrowser,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
		width:   80,
	}
}

// Attach routes loader callbacks into p.
func (m *Model) Attach(p *tea.Program) {
	m.bridge.SetSender(p.Send)
}

// Bridge returns the renderer the model listens on.
func (m *Model) Bridge() *Bridge { return m.bridge }

// Init starts the first load cycle.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startLoad())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgItemResolved:
		r := msg.data.(itemResolved)
		if r.index < 0 || r.index >= len(m.cards) {
			return m, nil
		}
		if r.err != nil {
			m.cards[r.index] = card{url: m.cards[r.index].url, state: cardFailed, err: r.err}
			m.failed++
		} else {
			m.cards[r.index] = card{url: m.cards[r.index].url, state: cardLoaded, playlist: r.playlist}
			m.resolved++
		}
		return m, nil

	case MsgAllResolved:
		m.allLoaded = true
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgLoadDone:
		m.loading = false
		if err, _ := msg.data.(error); err != nil && !errors.Is(err, context.Canceled) {
			m.err = err
		}
		return m, nil

	case MsgOpened:
		if err, _ := msg.data.(error); err != nil {
			m.notice = fmt.Sprintf("could not open browser: %v", err)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	perRow := max(1, m.width/(cardWidth+4))

	switch {
	case key.Matches(msg, m.keys.quit):
		m.bridge.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.left):
		m.move(-1)
	case key.Matches(msg, m.keys.right):
		m.move(1)
	case key.Matches(msg, m.keys.up):
		m.move(-perRow)
	case key.Matches(msg, m.keys.down):
		m.move(perRow)
	case key.Matches(msg, m.keys.open):
		return m, m.openSelected()
	case key.Matches(msg, m.keys.reload):
		if !m.loading {
			return m, m.startLoad()
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if len(m.cards) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.cards)-1)
}

func (m *Model) openSelected() tea.Cmd {
	if m.cursor >= len(m.cards) || m.cards[m.cursor].state != cardLoaded {
		return nil
	}
	url := m.cards[m.cursor].playlist.PermalinkURL
	open := m.open
	return func() tea.Msg { return openedMsg(open(url)) }
}

// startLoad resets every card to pending and runs one cycle in the background.
func (m *Model) startLoad() tea.Cmd {
	m.cards = make([]card, len(m.urls))
	for i, u := range m.urls {
		m.cards[i] = card{url: u}
	}
	m.cursor = 0
	m.loading = true
	m.allLoaded = false
	m.resolved, m.failed = 0, 0
	m.err = nil
	m.notice = ""

	updates := make(chan tasks.ProgressUpdate, 64)
	done := make(chan error, 1)
	m.updates, m.done = updates, done

	go func() {
		_, err := m.gallery.Load(m.ctx, m.urls, m.bridge, updates)
		done <- err
		close(updates)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return loadDoneMsg(<-done)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the gallery grid with a status line and help.
func (m *Model) View() string {
	title := styles.title.Render("Playlists")

	if m.err != nil {
		msg := "Error loading playlists"
		if !errors.Is(m.err, shared.ErrGalleryUnavailable) {
			msg = fmt.Sprintf("Error: %v", m.err)
		}
		return fmt.Sprintf("%s\n%s\n\n%s", title, styles.err.Render(msg), m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n%s",
		title,
		grid(m.cards, m.cursor, m.spinner.View(), m.width),
		m.status(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

func (m *Model) status() string {
	var line string
	switch {
	case len(m.urls) == 0:
		line = styles.warn.Render("No playlists configured")
	case m.allLoaded:
		line = styles.ok.Render(fmt.Sprintf("✓ All playlists loaded (%d ok, %d failed)", m.resolved, m.failed))
	case m.loading && m.progress.Message != "":
		line = styles.help.Render(m.progress.Message)
	default:
		line = styles.help.Render(fmt.Sprintf("%d/%d loaded", m.resolved+m.failed, len(m.urls)))
	}
	if m.notice != "" {
		line += "\n" + styles.warn.Render(m.notice)
	}
	return line
}
