package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"crimelens/dataset"
)

// Cache owns the current canonical table and the decision of when to
// rebuild it. The pipeline itself stays a pure function; staleness is an
// explicit {table, builtAt} check here, not hidden memoization.
type Cache struct {
	loader *Loader
	ttl    time.Duration
	log    *logrus.Logger

	// OnRebuild, when set before first use, runs after every successful
	// rebuild (snapshot writes, websocket notification).
	OnRebuild func(*dataset.Table, *Report)

	mu      sync.Mutex
	table   *dataset.Table
	report  *Report
	builtAt time.Time
}

func NewCache(loader *Loader, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{loader: loader, ttl: ttl, log: log}
}

func (c *Cache) isStale(now time.Time) bool {
	return c.table == nil || now.Sub(c.builtAt) > c.ttl
}

// Get returns the current table, rebuilding first when stale. A failed
// rebuild never discards a previously built table: callers keep getting the
// last good table until a rebuild succeeds, and only ever see an error when
// no table has been built at all.
func (c *Cache) Get(ctx context.Context) (*dataset.Table, *Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isStale(time.Now()) {
		return c.table, c.report, nil
	}
	return c.rebuildLocked(ctx)
}

// Refresh rebuilds regardless of TTL.
func (c *Cache) Refresh(ctx context.Context) (*dataset.Table, *Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

// Current returns whatever is cached without triggering a rebuild.
func (c *Cache) Current() (*dataset.Table, *Report, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table, c.report, c.builtAt, c.table != nil
}

func (c *Cache) rebuildLocked(ctx context.Context) (*dataset.Table, *Report, error) {
	table, report, err := c.loader.Build(ctx)
	if err != nil {
		if c.table != nil {
			c.log.WithError(err).Warn("rebuild failed, keeping previous table")
			return c.table, c.report, nil
		}
		return nil, report, err
	}
	c.table = table
	c.report = report
	c.builtAt = report.BuiltAt
	if c.OnRebuild != nil {
		c.OnRebuild(table, report)
	}
	return table, report, nil
}
