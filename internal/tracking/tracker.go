package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Publisher receives snapshots after every state transition or reset.
//
// Implementations must not block for long: the tracker calls PublishSnapshot
// outside its lock, but a slow publisher still delays the event pipeline for
// that source.
type Publisher interface {
	PublishSnapshot(snapshot Snapshot)
}

// NopPublisher discards snapshots. Used when no sink is configured and in
// tests.
type NopPublisher struct{}

// PublishSnapshot discards the snapshot.
func (NopPublisher) PublishSnapshot(Snapshot) {}

// Tracker accumulates occupied time for a single source.
//
// All mutations happen under an exclusive lock so state, totals and the open
// interval always move together. Reads take a shared lock and compute the
// live total without mutating anything.
type Tracker struct {
	sourceID  string
	store     Store
	clock     Clock
	publisher Publisher
	logger    Logger

	mu            sync.RWMutex
	state         SourceState
	total         time.Duration
	activations   int64
	intervalStart time.Time // zero when state is off
	lastTriggered time.Time // zero until the first off->on transition
	dirty         bool      // last persist attempt failed
	closed        bool
}

// NewTracker creates a tracker for sourceID, restoring any persisted record.
//
// A missing record starts the tracker at zero. A corrupt record is logged and
// also starts at zero: losing one source's history must never take the
// service down. A restored record in the on state keeps its original
// interval_start, so downtime while the source was on is credited when the
// interval eventually closes.
//
// Parameters:
//   - ctx: Context for the restore read
//   - sourceID: Source identifier, must be non-empty
//   - store: Durable record store
//   - clock: Time source, SystemClock() in production
//   - publisher: Snapshot sink, NopPublisher{} to disable
//   - logger: Structured logger, nil for no logging
//
// Returns:
//   - *Tracker: Tracker ready to receive events
//   - error: ErrInvalidSourceID if sourceID is empty
func NewTracker(ctx context.Context, sourceID string, store Store, clock Clock, publisher Publisher, logger Logger) (*Tracker, error) {
	if sourceID == "" {
		return nil, ErrInvalidSourceID
	}
	if clock == nil {
		clock = SystemClock()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = noopLogger{}
	}

	t := &Tracker{
		sourceID:  sourceID,
		store:     store,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
		state:     StateOff,
	}

	t.restore(ctx)

	return t, nil
}

// restore loads the persisted record, tolerating absence and corruption.
func (t *Tracker) restore(ctx context.Context) {
	data, err := t.store.Get(ctx, t.sourceID)
	if errors.Is(err, ErrRecordNotFound) {
		return
	}
	if err != nil {
		t.logger.Warn("failed to load occupancy record, starting at zero",
			"source_id", t.sourceID, "error", err)
		return
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.logger.Warn("corrupt occupancy record, starting at zero",
			"source_id", t.sourceID, "error", err)
		return
	}

	// Totals and counts can never go negative; a record claiming otherwise
	// is damaged, so clamp rather than propagate.
	if rec.TotalSeconds < 0 {
		t.logger.Warn("negative total in occupancy record, clamping to zero",
			"source_id", t.sourceID, "total_seconds", rec.TotalSeconds)
		rec.TotalSeconds = 0
	}
	if rec.Activations < 0 {
		t.logger.Warn("negative activation count in occupancy record, clamping to zero",
			"source_id", t.sourceID, "activations", rec.Activations)
		rec.Activations = 0
	}

	t.total = time.Duration(rec.TotalSeconds * float64(time.Second))
	t.activations = rec.Activations
	t.state = rec.State
	if rec.LastTriggered != nil {
		t.lastTriggered = *rec.LastTriggered
	}
	if rec.State == StateOn {
		if rec.IntervalStart != nil {
			t.intervalStart = *rec.IntervalStart
		} else {
			// Record claims on but lost its interval start. Re-anchor
			// at now rather than inventing history.
			t.intervalStart = t.clock.Now()
			t.logger.Warn("occupancy record on without interval start, re-anchoring",
				"source_id", t.sourceID)
		}
	}

	t.logger.Info("restored occupancy record",
		"source_id", t.sourceID,
		"state", string(t.state),
		"total_seconds", roundSeconds(t.total),
		"activations", t.activations)
}

// SourceID returns the tracked source identifier.
func (t *Tracker) SourceID() string {
	return t.sourceID
}

// HandleEvent applies a state event observed at eventTime.
//
// Duplicate states are ignored. An off->on transition opens an interval and
// increments the activation count; on->off closes the interval and adds its
// elapsed time to the total, clamping negative elapsed (clock moved
// backwards) to zero.
//
// The updated record is persisted before the snapshot is published. A
// persist failure is logged and retried on the next event or on Flush; the
// in-memory state always advances.
//
// Returns:
//   - error: ErrTrackerClosed if the tracker has been removed,
//     ErrInvalidState if state is not a valid SourceState
func (t *Tracker) HandleEvent(ctx context.Context, state SourceState, eventTime time.Time) error {
	if state != StateOn && state != StateOff {
		return ErrInvalidState
	}
	if eventTime.IsZero() {
		eventTime = t.clock.Now()
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}

	if state == t.state {
		t.mu.Unlock()
		return nil
	}

	switch state {
	case StateOn:
		t.intervalStart = eventTime
		t.lastTriggered = eventTime
		t.activations++
	case StateOff:
		elapsed := eventTime.Sub(t.intervalStart)
		if elapsed < 0 {
			t.logger.Warn("event time before interval start, clamping to zero",
				"source_id", t.sourceID,
				"interval_start", t.intervalStart,
				"event_time", eventTime)
			elapsed = 0
		}
		t.total += elapsed
		t.intervalStart = time.Time{}
	}
	t.state = state

	t.persistLocked(ctx)
	snapshot := t.snapshotLocked(eventTime)
	t.mu.Unlock()

	t.publisher.PublishSnapshot(snapshot)

	return nil
}

// Snapshot returns the current state including live elapsed time for an open
// interval. It never mutates the tracker.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	if now.IsZero() {
		now = t.clock.Now()
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked(now)
}

// snapshotLocked computes a snapshot; callers must hold at least mu.RLock.
func (t *Tracker) snapshotLocked(now time.Time) Snapshot {
	total := t.total
	if t.state == StateOn {
		elapsed := now.Sub(t.intervalStart)
		if elapsed > 0 {
			total += elapsed
		}
	}

	s := Snapshot{
		SourceID:     t.sourceID,
		State:        t.state,
		TotalSeconds: roundSeconds(total),
		Activations:  t.activations,
		ObservedAt:   now,
	}
	if !t.lastTriggered.IsZero() {
		lt := t.lastTriggered
		s.LastTriggered = &lt
	}

	return s
}

// Reset zeroes the accumulated total, activation count and last trigger
// time. A source that is currently on stays on: its open interval restarts
// at the reset time, so time before the reset is discarded and time after it
// accumulates normally.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}

	now := t.clock.Now()
	t.total = 0
	t.activations = 0
	t.lastTriggered = time.Time{}
	if t.state == StateOn {
		t.intervalStart = now
	}

	t.persistLocked(ctx)
	snapshot := t.snapshotLocked(now)
	t.mu.Unlock()

	t.publisher.PublishSnapshot(snapshot)

	t.logger.Info("occupancy counters reset", "source_id", t.sourceID)

	return nil
}

// Flush persists the record if the last persist attempt failed. Called on
// shutdown so a transient store error earlier does not lose state.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dirty {
		return nil
	}

	return t.persistLocked(ctx)
}

// close marks the tracker removed. Subsequent events and resets return
// ErrTrackerClosed.
func (t *Tracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// persistLocked writes the current record; callers must hold mu.Lock. A
// failure sets the dirty flag so the write is retried on the next event or
// on Flush.
func (t *Tracker) persistLocked(ctx context.Context) error {
	rec := Record{
		SourceID:     t.sourceID,
		TotalSeconds: roundSeconds(t.total),
		Activations:  t.activations,
		State:        t.state,
	}
	if !t.intervalStart.IsZero() {
		is := t.intervalStart
		rec.IntervalStart = &is
	}
	if !t.lastTriggered.IsZero() {
		lt := t.lastTriggered
		rec.LastTriggered = &lt
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.dirty = true
		return fmt.Errorf("marshalling occupancy record: %w", err)
	}

	if err := t.store.Set(ctx, t.sourceID, data); err != nil {
		t.dirty = true
		t.logger.Warn("failed to persist occupancy record, will retry",
			"source_id", t.sourceID, "error", err)
		return fmt.Errorf("persisting occupancy record: %w", err)
	}

	t.dirty = false

	return nil
}
