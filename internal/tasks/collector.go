package tasks

import (
	"sync"

	"github.com/desertthunder/lumen/internal/models"
)

// Collector is a [Renderer] that buffers outcomes, for non-interactive output and the HTTP gallery endpoint.
type Collector struct {
	mu       sync.Mutex
	items    map[int]ItemResult
	done     chan struct{}
	doneOnce sync.Once
	// OnItem, when set, is called for each outcome under the collector's lock.
	OnItem func(ItemResult)
}

// NewCollector creates an empty [Collector].
func NewCollector() *Collector {
	return &Collector{items: make(map[int]ItemResult), done: make(chan struct{})}
}

func (c *Collector) ItemResolved(index int, p *models.Playlist, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := ItemResult{Index: index, Playlist: p, Err: err}
	c.items[index] = res
	if c.OnItem != nil {
		c.OnItem(res)
	}
}

func (c *Collector) AllResolved() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Done is closed when the loader reports that every item has settled.
func (c *Collector) Done() <-chan struct{} { return c.done }

// Len returns the number of outcomes received.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Result returns the outcome for index, if one arrived.
func (c *Collector) Result(index int) (ItemResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[index]
	return r, ok
}
