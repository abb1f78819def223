package tracking

import "context"

// Store is the durable key-value persistence layer consumed by trackers.
//
// Contract:
//   - Get returns the stored bytes for a key, or ErrRecordNotFound.
//   - Set durably stores bytes under a key; a Get immediately after a Set
//     for the same key must observe the new value (read-your-writes).
//   - Delete removes a key; deleting an absent key is not an error.
//
// All operations are synchronous from the tracker's point of view. A store
// that is unavailable at startup does not prevent tracker construction -
// the tracker starts from zero state instead (degraded but available).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyLister is an optional Store extension for enumerating stored keys.
//
// The registry uses it at startup to re-adopt every persisted source
// before discovery runs. Stores without listing support simply skip this.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
