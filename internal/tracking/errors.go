package tracking

import "errors"

// Domain-specific errors for the tracking engine.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRecordNotFound is returned by Store.Get when no record exists
	// for the requested key.
	ErrRecordNotFound = errors.New("tracking: record not found")

	// ErrInvalidSourceID is returned when an empty source id is provided.
	ErrInvalidSourceID = errors.New("tracking: source id cannot be empty")

	// ErrSourceNotTracked is returned for operations on a source id the
	// registry does not currently track.
	ErrSourceNotTracked = errors.New("tracking: source not tracked")

	// ErrInvalidState is returned when a state payload cannot be
	// normalised to on or off.
	ErrInvalidState = errors.New("tracking: unrecognised source state")

	// ErrTrackerClosed is returned for operations on a tracker that has
	// been torn down by the registry.
	ErrTrackerClosed = errors.New("tracking: tracker closed")
)
