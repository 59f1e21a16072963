package registry

import (
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/VictoriaMetrics/metrics"
)

var (
	metricSweeps      = metrics.NewCounter("smoldb_sweeps_total")
	metricFlushes     = metrics.NewCounter("smoldb_flushes_total")
	metricFlushErrors = metrics.NewCounter("smoldb_flush_errors_total")
	metricEvictions   = metrics.NewCounter("smoldb_evictions_total")
)

// --------------------------------------------------------------------------
// Invalidation Sweep
// --------------------------------------------------------------------------

// Sweep inspects every database once: an idle dirty database is flushed to
// storage and then evicted, an idle clean one is evicted directly. Idle
// means no access for the database's own invalidation time. In memory-only
// mode the sweep is a no-op, with NoEvict set dirty state is still flushed
// but databases stay resident.
func (r *Registry) Sweep() {
	if r.cfg.Storage == nil {
		return
	}
	metricSweeps.Inc()

	now := time.Now().UnixNano()
	r.entries.Range(func(name string, e *entry) bool {
		r.sweepOne(name, e, now)
		return true
	})
}

// sweepOne applies the invalidation rules to a single entry. Storage I/O
// happens on a snapshot outside the entry lock so a slow disk never stalls
// client operations on the same database.
func (r *Registry) sweepOne(name string, e *entry, now int64) {
	e.mu.Lock()
	if e.deleted || e.db == nil {
		e.mu.Unlock()
		return
	}

	d := e.db
	if !r.idle(d, now) {
		e.mu.Unlock()
		return
	}

	if !d.Dirty() {
		if !r.cfg.NoEvict {
			e.db = nil
			metricEvictions.Inc()
			r.logger.Debugw("evicted idle database", "db", name)
		}
		e.mu.Unlock()
		return
	}

	snap := d.Snapshot()
	version := d.Version()
	e.mu.Unlock()

	err := r.cfg.Storage.SaveDB(name, snap)

	e.mu.Lock()
	defer e.mu.Unlock()

	// the entry may have been deleted or replaced while we were writing
	if e.deleted || e.db != d {
		return
	}
	if err != nil {
		metricFlushErrors.Inc()
		r.logger.Errorw("failed to flush database, keeping it resident", "db", name, "error", err)
		return
	}
	metricFlushes.Inc()

	// ClearDirty fails if a write raced the flush, the next sweep retries.
	// Eviction also needs the database to still be idle.
	if d.ClearDirty(version) && !r.cfg.NoEvict && r.idle(d, time.Now().UnixNano()) {
		e.db = nil
		metricEvictions.Inc()
		r.logger.Debugw("flushed and evicted idle database", "db", name)
	}
}

// idle reports whether the database exceeded its own invalidation time.
func (r *Registry) idle(d *db.Database, now int64) bool {
	return now-d.LastAccess() >= int64(time.Duration(d.Settings.InvalidationTime))
}

// sweepLoop runs Sweep on the configured interval until Close.
func (r *Registry) sweepLoop() {
	defer close(r.sweepDone)

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.sweepStop:
			return
		}
	}
}

// --------------------------------------------------------------------------
// Flush / Shutdown
// --------------------------------------------------------------------------

// FlushAll writes every dirty database to storage without evicting
// anything. A no-op in memory-only mode.
func (r *Registry) FlushAll() error {
	if r.cfg.Storage == nil {
		return nil
	}

	var firstErr error
	r.entries.Range(func(name string, e *entry) bool {
		e.mu.Lock()
		if e.deleted || e.db == nil || !e.db.Dirty() {
			e.mu.Unlock()
			return true
		}
		d := e.db
		snap := d.Snapshot()
		version := d.Version()
		e.mu.Unlock()

		if err := r.cfg.Storage.SaveDB(name, snap); err != nil {
			metricFlushErrors.Inc()
			r.logger.Errorw("failed to flush database", "db", name, "error", err)
			if firstErr == nil {
				firstErr = NewError(CodeIoError, "failed to flush database %s", name)
			}
			return true
		}
		metricFlushes.Inc()

		e.mu.Lock()
		if !e.deleted && e.db == d {
			d.ClearDirty(version)
		}
		e.mu.Unlock()
		return true
	})
	return firstErr
}

// Close stops the background sweeper and flushes all dirty state.
func (r *Registry) Close() error {
	if r.sweepStop != nil {
		close(r.sweepStop)
		<-r.sweepDone
		r.sweepStop = nil
	}
	return r.FlushAll()
}
