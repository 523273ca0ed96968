package mirror

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/vaultmirror/go-vaultmirror/apierror"
	"github.com/vaultmirror/go-vaultmirror/vault"
)

var log = logging.Logger("mirror")

// Entry is the last known synchronized state of one remote document.
type Entry struct {
	// Content is the full document text.
	Content string
	// Mtime is the document's last-modification time in epoch milliseconds.
	Mtime int64
}

// SyncStats describes the outcome of the most recent completed cycle.
type SyncStats struct {
	Added   int
	Updated int
	Removed int
	Elapsed time.Duration
	Full    bool
}

// Mirror is an in-memory mirror of a remote document store, keyed by
// store-relative document path.
type Mirror struct {
	src        vault.Store
	meta       vault.MetadataStore // nil when src cannot serve mtime alone
	retries    int
	retryDelay time.Duration
	refreshIn  time.Duration

	mutex   sync.RWMutex
	entries map[string]Entry

	ready    atomic.Bool
	building atomic.Bool
	lastSync atomic.Pointer[SyncStats]

	schedMutex sync.Mutex
	closing    chan struct{} // non-nil while auto refresh is running
}

// New creates a mirror of the documents served by src. The mirror is empty
// and not ready until Build completes.
func New(src vault.Store, options ...Option) (*Mirror, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("no document source")
	}

	m := &Mirror{
		src:        src,
		retries:    opts.retryAttempts,
		retryDelay: opts.retryDelay,
		refreshIn:  opts.refreshIn,
		entries:    make(map[string]Entry),
	}
	if meta, ok := src.(vault.MetadataStore); ok {
		m.meta = meta
	}
	return m, nil
}

// Build performs the initial full population of the mirror. It is a no-op if
// the mirror is already built or another cycle is in flight, so it is safe
// for a caller to fire it from multiple startup paths, or to run it in a
// goroutine and poll Ready.
func (m *Mirror) Build(ctx context.Context) error {
	if m.ready.Load() {
		log.Debugw("Mirror already built", "source", m.src)
		return nil
	}
	return m.sync(ctx, true)
}

// Refresh performs one incremental synchronization cycle. It is a no-op if
// another cycle is in flight.
func (m *Mirror) Refresh(ctx context.Context) error {
	return m.sync(ctx, false)
}

// Ready reports whether at least one full build has completed. A reader must
// not trust the mirror's contents until Ready returns true.
func (m *Mirror) Ready() bool {
	return m.ready.Load()
}

// Building reports whether a build or refresh cycle is currently running.
func (m *Mirror) Building() bool {
	return m.building.Load()
}

// Entry returns the cached entry for path, if present.
func (m *Mirror) Entry(path string) (Entry, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ent, ok := m.entries[path]
	return ent, ok
}

// Entries returns a copy of the full path-to-entry table. During an active
// cycle the copy may mix pre-cycle and post-cycle entries.
func (m *Mirror) Entries() map[string]Entry {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entries := make(map[string]Entry, len(m.entries))
	for path, ent := range m.entries {
		entries[path] = ent
	}
	return entries
}

// Len returns the number of cached documents.
func (m *Mirror) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.entries)
}

// LastSync returns statistics from the most recent completed cycle, and
// false if no cycle has completed yet.
func (m *Mirror) LastSync() (SyncStats, bool) {
	if stats := m.lastSync.Load(); stats != nil {
		return *stats, true
	}
	return SyncStats{}, false
}

// NotifyChanged resynchronizes a single path after an external write to the
// remote store. All failure is absorbed here; the caller has nothing useful
// to do with it.
//
// The fetch bypasses the mtime comparison, because the caller is known to
// have just changed this path. A not-found response is retried to ride out
// remote eventual consistency; not-found after all retries means the
// document was deleted and removes the entry. Any other failure keeps the
// previous entry, preferring staleness over loss.
func (m *Mirror) NotifyChanged(ctx context.Context, path string) {
	var doc vault.Document
	err := vault.Retry(ctx, m.retries, m.retryDelay, transient, func(ctx context.Context) error {
		var err error
		doc, err = m.src.Content(ctx, path)
		return err
	})
	switch {
	case err == nil:
		m.setEntry(path, Entry{Content: doc.Content, Mtime: doc.Mtime})
		log.Debugw("Updated changed document", "path", path, "mtime", doc.Mtime)
	case apierror.IsNotFound(err):
		m.deleteEntry(path)
		log.Infow("Changed document no longer exists, removed from mirror", "path", path)
	default:
		log.Errorw("Cannot fetch changed document, keeping previous entry", "err", err, "path", path)
	}
}

// transient reports whether a store error is worth another try.
func transient(err error) bool {
	return apierror.IsNotFound(err) || apierror.IsUnavailable(err)
}

// StartAutoRefresh begins periodic incremental refresh. If interval is not
// positive, the configured default is used. Starting an already-running
// refresher logs a warning and does nothing.
func (m *Mirror) StartAutoRefresh(interval time.Duration) {
	m.schedMutex.Lock()
	defer m.schedMutex.Unlock()

	if m.closing != nil {
		log.Warnw("Auto refresh already running", "source", m.src)
		return
	}
	if interval <= 0 {
		interval = m.refreshIn
	}
	m.closing = make(chan struct{})
	go m.refreshLoop(interval, m.closing)
	log.Infow("Auto refresh started", "interval", interval)
}

// StopAutoRefresh stops periodic refresh. It is safe to call repeatedly and
// when auto refresh is not running. It does not interrupt a cycle that is
// already in flight; it only prevents future ticks.
func (m *Mirror) StopAutoRefresh() {
	m.schedMutex.Lock()
	defer m.schedMutex.Unlock()

	if m.closing == nil {
		return
	}
	close(m.closing)
	m.closing = nil
	log.Infow("Auto refresh stopped")
}

// Close stops auto refresh. Safe to call multiple times.
func (m *Mirror) Close() error {
	m.StopAutoRefresh()
	return nil
}

func (m *Mirror) refreshLoop(interval time.Duration, closing <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// An overlapping cycle is rejected by the guard in sync, so a
			// tick that fires while the previous cycle is still running is a
			// no-op and the next tick tries again.
			if err := m.Refresh(context.Background()); err != nil {
				log.Errorw("Auto refresh failed", "err", err)
			}
		case <-closing:
			return
		}
	}
}

func (m *Mirror) setEntry(path string, ent Entry) {
	m.mutex.Lock()
	m.entries[path] = ent
	m.mutex.Unlock()
}

func (m *Mirror) deleteEntry(path string) {
	m.mutex.Lock()
	delete(m.entries, path)
	m.mutex.Unlock()
}
