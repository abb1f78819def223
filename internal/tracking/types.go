package tracking

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SourceState is the binary state of a monitored source.
type SourceState string

// Source states.
const (
	StateOff SourceState = "off"
	StateOn  SourceState = "on"
)

// IsOn reports whether the state is on.
func (s SourceState) IsOn() bool {
	return s == StateOn
}

// ParseSourceState normalises an external state representation.
//
// Accepted spellings (case-insensitive, surrounding whitespace ignored):
// "on", "off", "true", "false", "1", "0".
//
// Returns:
//   - SourceState: The normalised state
//   - error: ErrInvalidState (wrapped with the raw value) if unrecognised
func ParseSourceState(raw string) (SourceState, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1":
		return StateOn, nil
	case "off", "false", "0":
		return StateOff, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
	}
}

// Record is the persisted accumulation state for one source.
//
// It is stored as JSON in the occupancy record store, keyed by source id.
// Unknown fields in stored JSON are ignored on load and missing fields take
// their zero values, keeping the layout forward-compatible.
type Record struct {
	// SourceID is the opaque stable identifier of the monitored source.
	SourceID string `json:"source_id"`

	// TotalSeconds is the accumulated on-time of closed intervals.
	// The currently open interval is never included.
	TotalSeconds float64 `json:"total_seconds"`

	// Activations counts observed off-to-on transitions.
	Activations int64 `json:"activations"`

	// State is the last known binary state of the source.
	State SourceState `json:"state"`

	// IntervalStart marks when the current on interval began.
	// Present if and only if State is on.
	IntervalStart *time.Time `json:"interval_start,omitempty"`

	// LastTriggered is the time of the most recent off-to-on transition.
	// Survives the source turning off; cleared only by reset.
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

// Snapshot is a consistent read of a tracker's metrics at a point in time.
//
// Snapshots are what the engine pushes to publishers and what the API
// serves; they are derived values and never persisted.
type Snapshot struct {
	// SourceID identifies the monitored source.
	SourceID string `json:"source_id"`

	// State is the source's binary state at ObservedAt.
	State SourceState `json:"state"`

	// TotalSeconds is the live total: closed intervals plus the elapsed
	// portion of the open interval (if the source is on) as of ObservedAt.
	TotalSeconds float64 `json:"total_seconds"`

	// Activations counts off-to-on transitions.
	Activations int64 `json:"activations"`

	// LastTriggered is the most recent off-to-on transition time, if any.
	LastTriggered *time.Time `json:"last_triggered,omitempty"`

	// ObservedAt is the instant the snapshot was computed at.
	ObservedAt time.Time `json:"observed_at"`
}

// secondsPrecision is the rounding factor for exposed seconds (2 decimals).
const secondsPrecision = 100

// roundSeconds converts a duration to seconds rounded to 2 decimal places.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*secondsPrecision) / secondsPrecision
}
