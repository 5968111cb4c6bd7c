package snapshot

import (
	"context"
	"fmt"
	"time"

	"risk-register-backup/internal/entity"
	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/store"

	"golang.org/x/sync/errgroup"
)

// CollectedGroup is the raw result of collecting one entity type
type CollectedGroup struct {
	Name    string
	Records []entity.Record
}

// Collection is the full collected state, in registry order
type Collection []CollectedGroup

// Collector reads every registered entity type from the store
type Collector struct {
	store         *store.Store
	logger        *logging.Logger
	logGroupLimit int
}

// NewCollector creates a collector. A non-positive logGroupLimit falls back
// to DefaultLogGroupLimit.
func NewCollector(s *store.Store, logGroupLimit int, logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if logGroupLimit <= 0 {
		logGroupLimit = DefaultLogGroupLimit
	}
	return &Collector{store: s, logger: logger, logGroupLimit: logGroupLimit}
}

// Collect fetches every group concurrently. The first failure cancels the
// remaining fetches and no partial collection is returned.
func (c *Collector) Collect(ctx context.Context) (Collection, error) {
	g, gctx := errgroup.WithContext(ctx)
	collection := make(Collection, len(Registry))

	for i, desc := range Registry {
		g.Go(func() error {
			start := time.Now()
			records, err := desc.collect(gctx, c.store, c.logGroupLimit)
			if err != nil {
				return fmt.Errorf("collect %s: %w", desc.Name(), err)
			}

			// each goroutine owns its own index
			collection[i] = CollectedGroup{Name: desc.Name(), Records: records}

			c.logger.WithFields(map[string]interface{}{
				"group":    desc.Name(),
				"records":  len(records),
				"duration": time.Since(start).String(),
			}).Debug("Collected entity group")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collection, nil
}
