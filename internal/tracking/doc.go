// Package tracking implements the occupancy accumulation engine for
// Dwell Core.
//
// The engine derives two metrics from a binary (on/off) source stream:
// cumulative occupied duration and activation count. Accumulated state is
// persisted on every mutation so totals survive process restarts without
// double-counting or losing in-progress intervals.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                         Tracking Engine                              │
//	│                                                                      │
//	│  ┌──────────────┐     ┌──────────────┐     ┌───────────────────┐     │
//	│  │   Watcher    │────▶│   Registry   │────▶│      Tracker      │     │
//	│  │ (watcher.go) │     │ (registry.go)│     │   (tracker.go)    │     │
//	│  │              │     │              │     │                   │     │
//	│  │ • MQTT sub   │     │ • id→tracker │     │ • state machine   │     │
//	│  │ • payload    │     │ • add/remove │     │ • accumulation    │     │
//	│  │   parsing    │     │ • reconcile  │     │ • persistence     │     │
//	│  └──────────────┘     └──────────────┘     └─────────┬─────────┘     │
//	│                                                      │               │
//	└──────────────────────────────────────────────────────│───────────────┘
//	                                │                      │
//	                                ▼                      ▼
//	                       ┌───────────────┐      ┌────────────────┐
//	                       │   Publisher   │      │     Store      │
//	                       │ MQTT/InfluxDB │      │    (SQLite)    │
//	                       └───────────────┘      └────────────────┘
//
// # Accumulation rules
//
// A Tracker is a state machine over {off, on}:
//
//   - off→on: opens an interval, increments the activation count, stamps
//     the last-trigger time.
//   - on→off: closes the interval and adds its length to the total.
//     If the close event carries a timestamp earlier than the interval
//     start (clock stepped backward, out-of-order delivery), the elapsed
//     time is clamped to zero rather than going negative.
//   - Duplicate states are suppressed by strict equality with the previous
//     observed state. Retained-message replays are therefore no-ops.
//
// The live total exposed by Snapshot folds in the currently open interval
// on demand; the persisted total only ever contains closed intervals, with
// the open interval stored separately as its start time.
//
// # Restart reconciliation
//
// A tracker restored with state on re-opens the interval using the stored
// interval start as-is. If the process was down while the source stayed
// active, the outage time is credited to the total when the interval
// eventually closes. This is a deliberate policy: the physical source may
// well have remained occupied throughout, and undercounting is considered
// worse than crediting the outage.
//
// # Concurrency
//
// Each Tracker serialises its own mutations with a mutex; Snapshot uses a
// read lock so it never observes a half-applied transition. Trackers for
// different sources are fully independent. Persist failures are logged,
// leave the tracker dirty, and are retried on the next mutation and at
// shutdown flush; they never propagate into the event-delivery path.
package tracking
