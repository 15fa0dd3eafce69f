package retriever

import "sync"

// resultCache is a bounded FIFO cache of search results. Eviction order is
// insertion order; repeated queries on a stable index dominate the hit rate,
// so recency tracking buys little here.
type resultCache struct {
	mu      sync.Mutex
	entries map[string][]Candidate
	order   []string
	max     int
}

func newResultCache(max int) *resultCache {
	return &resultCache{
		entries: make(map[string][]Candidate),
		max:     max,
	}
}

// get returns a copy of the cached result so callers can mutate freely.
func (c *resultCache) get(key string) ([]Candidate, bool) {
	if c.max <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	out := make([]Candidate, len(cached))
	copy(out, cached)
	return out, true
}

func (c *resultCache) put(key string, results []Candidate) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}

	stored := make([]Candidate, len(results))
	copy(stored, results)
	c.entries[key] = stored
}
