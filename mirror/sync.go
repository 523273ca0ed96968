package mirror

import (
	"context"
	"time"
)

// sync runs one synchronization cycle: enumerate the remote paths, drop
// cached entries that are gone from the remote store, then add or update
// entries whose remote mtime has advanced. When full is set, the cycle
// clears readiness at the start and restores it only on success.
//
// The building flag is the single-flight guard over the whole cycle. A call
// that finds a cycle already running returns nil immediately.
//
// No cancellation is applied to the cycle as a whole. A canceled context
// makes the individual remote calls fail, and those failures are isolated
// per path like any other fetch error.
func (m *Mirror) sync(ctx context.Context, full bool) error {
	if !m.building.CompareAndSwap(false, true) {
		log.Debugw("Sync already in progress, skipping", "full", full)
		return nil
	}

	start := time.Now()
	var stats SyncStats
	stats.Full = full
	defer func() {
		m.building.Store(false)
		log.Infow("Sync cycle finished", "full", full, "added", stats.Added, "updated", stats.Updated,
			"removed", stats.Removed, "count", m.Len(), "elapsed", time.Since(start))
	}()

	if full {
		m.ready.Store(false)
	}

	remote, err := m.listAll(ctx)
	if err != nil {
		// The only fatal failure of a cycle. A failed full build leaves the
		// mirror not ready; a failed refresh leaves the previous table as a
		// stale but valid fallback.
		log.Errorw("Cannot enumerate remote store", "err", err, "full", full, "source", m.src)
		return err
	}

	m.mutex.Lock()
	for path := range m.entries {
		if _, ok := remote[path]; !ok {
			delete(m.entries, path)
			stats.Removed++
		}
	}
	m.mutex.Unlock()

	for path := range remote {
		prev, exists := m.Entry(path)
		if exists && m.meta != nil {
			mtime, err := m.meta.Mtime(ctx, path)
			if err != nil {
				log.Errorw("Cannot fetch document metadata, skipping", "err", err, "path", path)
				continue
			}
			if mtime <= prev.Mtime {
				// Not newer than what is here already.
				continue
			}
		}

		doc, err := m.src.Content(ctx, path)
		if err != nil {
			log.Errorw("Cannot fetch document, skipping", "err", err, "path", path)
			continue
		}
		if exists && doc.Mtime <= prev.Mtime {
			// Sources without metadata support land here after a full fetch.
			continue
		}

		m.setEntry(path, Entry{Content: doc.Content, Mtime: doc.Mtime})
		if exists {
			stats.Updated++
		} else {
			stats.Added++
		}
	}

	if full {
		m.ready.Store(true)
	}

	stats.Elapsed = time.Since(start)
	m.lastSync.Store(&stats)
	return nil
}
