package events

import (
	"context"
	"sync"

	"snapcircle/internal/types"
)

// EventLoader abstracts the event lookup the cache falls back to on a miss.
// Satisfied by the db.EventRepository.
type EventLoader interface {
	Get(ctx context.Context, id string) (*types.PhotoEvent, error)
}

// Cache is a read-through, single-entry-per-event cache in front of the event
// repository. It has no expiry: entries are replaced only by explicit Add.
// Callers that mutate an event's persisted state (the monitor rewriting the
// pending-notification queue) must re-Add the entry in the same step, or the
// cache will serve stale pending lists to subsequent readers.
//
// The cache is owned by the composition root and passed by reference to both
// the access filter and the monitor.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*types.PhotoEvent
	loader  EventLoader
}

// NewCache creates an empty cache backed by the given loader.
func NewCache(loader EventLoader) *Cache {
	return &Cache{
		entries: make(map[string]*types.PhotoEvent),
		loader:  loader,
	}
}

// Get returns the cached event or loads-and-caches it via the repository.
func (c *Cache) Get(ctx context.Context, id string) (*types.PhotoEvent, error) {
	c.mu.RLock()
	event, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return event, nil
	}

	event, err := c.loader.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Add(event)
	return event, nil
}

// Has reports whether an entry exists for the given event ID.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Add overwrites the entry for the event unconditionally. Last writer wins.
func (c *Cache) Add(event *types.PhotoEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[event.ID] = event
}
