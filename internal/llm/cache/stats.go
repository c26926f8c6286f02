package cache

// Stats holds cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Errors  int64
	HitRate float64
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Errors:  c.errors.Load(),
		HitRate: hitRate,
	}
}
