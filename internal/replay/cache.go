package replay

import "sync"

// maxCachedRuns bounds the retained replay reports; oldest evicted first.
const maxCachedRuns = 16

// runCache is a bounded, insertion-ordered cache of recent reports, safe
// for concurrent use by in-flight requests.
type runCache struct {
	mu      sync.RWMutex
	max     int
	order   []string
	reports map[string]*Report
}

func newRunCache(max int) *runCache {
	return &runCache{
		max:     max,
		reports: make(map[string]*Report, max),
	}
}

func (c *runCache) put(r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.reports, oldest)
	}
	c.order = append(c.order, r.RunID)
	c.reports[r.RunID] = r
}

func (c *runCache) get(runID string) (*Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[runID]
	return r, ok
}
