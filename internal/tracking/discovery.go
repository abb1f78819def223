package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/dwell-core/internal/infrastructure/mqtt"
)

// Discovery yields the ids of sources that should be tracked.
type Discovery interface {
	// ListSources returns the currently eligible source ids.
	ListSources(ctx context.Context) ([]string, error)
}

// StaticDiscovery serves a fixed list of sources from configuration.
type StaticDiscovery struct {
	sources []string
}

// NewStaticDiscovery creates a discovery over a fixed source list.
func NewStaticDiscovery(sources []string) *StaticDiscovery {
	return &StaticDiscovery{sources: sources}
}

// ListSources returns the configured sources.
func (d *StaticDiscovery) ListSources(ctx context.Context) ([]string, error) {
	return d.sources, nil
}

// MQTTDiscovery tracks the retained source announcement topic.
//
// External integrations publish a retained JSON array of source ids to
// dwell/discovery/sources; the broker replays it on subscribe, so the
// current set is available shortly after Start even when the publisher is
// offline.
type MQTTDiscovery struct {
	bus    MessageBus
	logger Logger

	mu       sync.RWMutex
	sources  []string
	onChange func([]string)
}

// NewMQTTDiscovery creates a broker-announced source discovery.
func NewMQTTDiscovery(bus MessageBus, logger Logger) *MQTTDiscovery {
	if logger == nil {
		logger = noopLogger{}
	}

	return &MQTTDiscovery{
		bus:    bus,
		logger: logger,
	}
}

// SetOnChange registers a callback invoked with the new source list every
// time an announcement arrives. Must be called before Start.
func (d *MQTTDiscovery) SetOnChange(fn func([]string)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Start subscribes to the discovery topic.
func (d *MQTTDiscovery) Start(ctx context.Context) error {
	topic := mqtt.Topics{}.DiscoverySources()

	err := d.bus.Subscribe(topic, 1, func(topic string, payload []byte) error {
		d.handleAnnouncement(payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to source discovery: %w", err)
	}

	d.logger.Info("watching source discovery topic", "topic", topic)

	return nil
}

// handleAnnouncement replaces the known source set from a retained payload.
func (d *MQTTDiscovery) handleAnnouncement(payload []byte) {
	var sources []string
	if err := json.Unmarshal(payload, &sources); err != nil {
		d.logger.Warn("dropping malformed discovery announcement",
			"payload", string(payload),
			"error", err)
		return
	}

	d.mu.Lock()
	d.sources = sources
	fn := d.onChange
	d.mu.Unlock()

	d.logger.Debug("discovery announcement received", "count", len(sources))

	if fn != nil {
		fn(sources)
	}
}

// ListSources returns the most recently announced source ids.
func (d *MQTTDiscovery) ListSources(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, len(d.sources))
	copy(out, d.sources)

	return out, nil
}

// MultiDiscovery unions several discoveries. A failing member is logged and
// skipped so one broken feed never hides the others' sources.
type MultiDiscovery struct {
	discoveries []Discovery
	logger      Logger
}

// NewMultiDiscovery creates a union over the given discoveries.
func NewMultiDiscovery(logger Logger, discoveries ...Discovery) *MultiDiscovery {
	if logger == nil {
		logger = noopLogger{}
	}

	return &MultiDiscovery{
		discoveries: discoveries,
		logger:      logger,
	}
}

// ListSources returns the de-duplicated union of all member discoveries.
func (d *MultiDiscovery) ListSources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, member := range d.discoveries {
		ids, err := member.ListSources(ctx)
		if err != nil {
			d.logger.Warn("discovery member failed, skipping", "error", err)
			continue
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	return out, nil
}

// RunReconciler periodically converges the registry onto the discovery's
// source set. It blocks until ctx is cancelled; run it in its own goroutine.
//
// An immediate pass runs before the first tick so configured sources start
// tracking at boot rather than one interval later.
func (r *Registry) RunReconciler(ctx context.Context, discovery Discovery, interval time.Duration) {
	reconcile := func() {
		ids, err := discovery.ListSources(ctx)
		if err != nil {
			r.logger.Warn("source discovery failed", "error", err)
			return
		}
		r.Reconcile(ctx, ids)
	}

	reconcile()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconcile()
		}
	}
}
