package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the tracking package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry manages the set of tracked sources and routes events to their
// trackers.
//
// Each source gets its own Tracker with its own lock, so a burst of events
// on one source never delays another. The registry's lock only guards the
// tracker map itself.
//
// All public methods are thread-safe.
type Registry struct {
	store     Store
	clock     Clock
	publisher Publisher
	logger    Logger

	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// NewRegistry creates a new tracker registry.
//
// Parameters:
//   - store: Durable record store shared by all trackers
//   - clock: Time source, nil for the system clock
//   - publisher: Snapshot sink shared by all trackers, nil to disable
//
// Returns:
//   - *Registry: Registry ready for AddSource calls
func NewRegistry(store Store, clock Clock, publisher Publisher) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}

	return &Registry{
		store:     store,
		clock:     clock,
		publisher: publisher,
		logger:    noopLogger{},
		trackers:  make(map[string]*Tracker),
	}
}

// SetLogger sets the logger for the registry and all trackers created after
// the call.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddSource begins tracking a source, restoring any persisted record.
// Adding an already-tracked source is a no-op.
//
// Returns:
//   - error: ErrInvalidSourceID if sourceID is empty
func (r *Registry) AddSource(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return ErrInvalidSourceID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trackers[sourceID]; exists {
		return nil
	}

	tracker, err := NewTracker(ctx, sourceID, r.store, r.clock, r.publisher, r.logger)
	if err != nil {
		return fmt.Errorf("creating tracker for %s: %w", sourceID, err)
	}

	r.trackers[sourceID] = tracker
	r.logger.Info("source tracking started", "source_id", sourceID)

	return nil
}

// RemoveSource stops tracking a source and deletes its persisted record.
// In-flight events for the source complete first: removal takes the
// tracker's own lock via close before the record is deleted.
//
// Returns:
//   - error: ErrSourceNotTracked if the source is not tracked
func (r *Registry) RemoveSource(ctx context.Context, sourceID string) error {
	r.mu.Lock()
	tracker, exists := r.trackers[sourceID]
	if !exists {
		r.mu.Unlock()
		return ErrSourceNotTracked
	}
	delete(r.trackers, sourceID)
	r.mu.Unlock()

	tracker.close()

	if err := r.store.Delete(ctx, sourceID); err != nil {
		return fmt.Errorf("deleting record for %s: %w", sourceID, err)
	}

	r.logger.Info("source tracking stopped", "source_id", sourceID)

	return nil
}

// HandleEvent routes a state event to the source's tracker. Events for
// untracked sources are logged at debug level and dropped: other devices
// share the broker and their chatter is not an error.
func (r *Registry) HandleEvent(ctx context.Context, sourceID string, state SourceState, eventTime time.Time) error {
	r.mu.RLock()
	tracker, exists := r.trackers[sourceID]
	r.mu.RUnlock()

	if !exists {
		r.logger.Debug("event for untracked source ignored", "source_id", sourceID)
		return nil
	}

	return tracker.HandleEvent(ctx, state, eventTime)
}

// GetSnapshot returns the live snapshot for a single source.
//
// Returns:
//   - Snapshot: Current state and totals
//   - error: ErrSourceNotTracked if the source is not tracked
func (r *Registry) GetSnapshot(sourceID string) (Snapshot, error) {
	r.mu.RLock()
	tracker, exists := r.trackers[sourceID]
	r.mu.RUnlock()

	if !exists {
		return Snapshot{}, ErrSourceNotTracked
	}

	return tracker.Snapshot(r.clock.Now()), nil
}

// Snapshots returns live snapshots for every tracked source, sorted by
// source ID for stable output.
func (r *Registry) Snapshots() []Snapshot {
	now := r.clock.Now()

	r.mu.RLock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(trackers))
	for _, t := range trackers {
		snapshots = append(snapshots, t.Snapshot(now))
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].SourceID < snapshots[j].SourceID
	})

	return snapshots
}

// ResetSource zeroes the counters for a single source.
//
// Returns:
//   - error: ErrSourceNotTracked if the source is not tracked
func (r *Registry) ResetSource(ctx context.Context, sourceID string) error {
	r.mu.RLock()
	tracker, exists := r.trackers[sourceID]
	r.mu.RUnlock()

	if !exists {
		return ErrSourceNotTracked
	}

	return tracker.Reset(ctx)
}

// IsTracked reports whether a source is currently tracked.
func (r *Registry) IsTracked(sourceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.trackers[sourceID]
	return exists
}

// Count returns the number of tracked sources.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.trackers)
}

// TrackedIDs returns the sorted IDs of all tracked sources.
func (r *Registry) TrackedIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.trackers))
	for id := range r.trackers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)

	return ids
}

// RestorePersisted adds a tracker for every record already in the store.
// Called on startup so sources seen in previous runs resume tracking before
// their first event arrives.
//
// The store must also implement KeyLister; stores that cannot enumerate
// keys make this a no-op.
func (r *Registry) RestorePersisted(ctx context.Context) error {
	lister, ok := r.store.(KeyLister)
	if !ok {
		return nil
	}

	keys, err := lister.Keys(ctx)
	if err != nil {
		return fmt.Errorf("listing persisted sources: %w", err)
	}

	for _, key := range keys {
		if err := r.AddSource(ctx, key); err != nil {
			r.logger.Warn("failed to restore persisted source",
				"source_id", key, "error", err)
		}
	}

	return nil
}

// Reconcile converges the tracked set onto ids: sources in ids but not
// tracked are added, tracked sources missing from ids are left alone.
// Removal stays explicit via RemoveSource so a transient discovery gap
// never deletes accumulated history.
func (r *Registry) Reconcile(ctx context.Context, ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if r.IsTracked(id) {
			continue
		}
		if err := r.AddSource(ctx, id); err != nil && !errors.Is(err, ErrInvalidSourceID) {
			r.logger.Warn("failed to add discovered source",
				"source_id", id, "error", err)
		}
	}
}

// Close flushes every tracker's record. Called on shutdown after event
// intake has stopped; a dirty tracker gets one final persist attempt.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.RLock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, t := range trackers {
		if err := t.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
