package represent

import (
	"sync"
)

// Cache memoizes the expensive digests across repeated builds of the same
// corpus. Keys are function IDs; the caller owns the cache lifetime and
// discards it when records change.
type Cache struct {
	mu          sync.RWMutex
	structural  map[string]string
	fingerprint map[string][]uint64
}

func NewCache() *Cache {
	return &Cache{
		structural:  make(map[string]string),
		fingerprint: make(map[string][]uint64),
	}
}

func (c *Cache) structuralHash(functionID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.structural[functionID]
	return h, ok
}

func (c *Cache) putStructuralHash(functionID, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structural[functionID] = hash
}

func (c *Cache) fingerprintFor(functionID string) ([]uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.fingerprint[functionID]
	return fp, ok
}

func (c *Cache) putFingerprint(functionID string, fp []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fingerprint[functionID] = fp
}

// Len reports how many structural hashes are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.structural)
}
