package mapview

import (
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Collection is the in-memory pin set owned by one map session. It is
// changed only by wholesale replacement or by the Coordinator's like
// transitions, and every change is atomic for readers.
type Collection struct {
	mu    sync.RWMutex
	pins  []domain.Pin
	index map[string]int
}

// NewCollection returns a collection holding a copy of pins.
func NewCollection(pins []domain.Pin) *Collection {
	c := &Collection{}
	c.Replace(pins)
	return c
}

// Replace swaps the whole collection for a copy of pins.
func (c *Collection) Replace(pins []domain.Pin) {
	next := make([]domain.Pin, len(pins))
	index := make(map[string]int, len(pins))
	for i, p := range pins {
		next[i] = p.Clone()
		index[p.ID] = i
	}

	c.mu.Lock()
	c.pins = next
	c.index = index
	c.mu.Unlock()
}

// Snapshot returns a copy of the current pins in collection order.
func (c *Collection) Snapshot() []domain.Pin {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Pin, len(c.pins))
	for i, p := range c.pins {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of the pin with the given ID.
func (c *Collection) Get(id string) (domain.Pin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return domain.Pin{}, false
	}
	return c.pins[i].Clone(), true
}

// Len returns the number of pins held.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pins)
}

// update applies fn to the stored pin and returns the result.
func (c *Collection) update(id string, fn func(p *domain.Pin)) (domain.Pin, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return domain.Pin{}, false
	}
	fn(&c.pins[i])
	return c.pins[i].Clone(), true
}
