package handlers

import (
	"sync"

	"github.com/chenjuwe/photo-dedup/internal/photo"
)

// Catalog is the in-memory photo registry behind the API. Insertion order
// is preserved because grouping results depend on it.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	items map[string]*photo.Item
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*photo.Item)}
}

// Add inserts or replaces an item. A replaced item keeps its original
// position in the order.
func (c *Catalog) Add(item *photo.Item) {
	if item == nil || item.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[item.ID]; !ok {
		c.order = append(c.order, item.ID)
	}
	c.items[item.ID] = item
}

// Get returns the item for id, or nil.
func (c *Catalog) Get(id string) *photo.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[id]
}

// Remove deletes the item for id and reports whether it existed.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Items returns all items in insertion order.
func (c *Catalog) Items() []*photo.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*photo.Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all items.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.items = make(map[string]*photo.Item)
}
