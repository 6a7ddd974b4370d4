// Package dedup implements a bounded, time-windowed idempotency cache
// keyed by chat message id. Telegram redelivers updates after network
// hiccups; the cache drops duplicates without growing unboundedly the
// way a plain processed-messages set would.
package dedup

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cache remembers recently processed message ids for a fixed window.
type Cache struct {
	entries *lru.Cache
	window  time.Duration
	now     func() time.Time
}

// New creates a Cache holding at most size entries, treating entries
// older than window as expired.
func New(size int, window time.Duration) (*Cache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}
	return &Cache{entries: entries, window: window, now: time.Now}, nil
}

// Seen records the message id and reports whether it was already seen
// within the window. The first call for an id returns false; repeat
// calls within the window return true.
func (c *Cache) Seen(chatID int64, messageID int) bool {
	key := key(chatID, messageID)
	now := c.now()

	if v, ok := c.entries.Get(key); ok {
		if now.Sub(v.(time.Time)) < c.window {
			return true
		}
	}
	c.entries.Add(key, now)
	return false
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func key(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}
