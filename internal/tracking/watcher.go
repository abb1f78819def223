package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/dwell-core/internal/infrastructure/mqtt"
)

// MessageBus is the subset of the MQTT client the watcher needs.
type MessageBus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// stateEvent is the JSON payload published on dwell/source/{id}/state.
// Timestamp is optional; events without one are stamped on receipt.
type stateEvent struct {
	State     string     `json:"state"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Watcher subscribes to source state topics and feeds events into the
// registry.
//
// Payloads may be the JSON stateEvent form or a bare state string
// ("on", "off", "true", "1", ...). Unparseable payloads are logged and
// dropped; a single malformed publisher must not stop the pipeline.
type Watcher struct {
	bus      MessageBus
	registry *Registry
	clock    Clock
	logger   Logger
}

// NewWatcher creates a watcher wired to the given bus and registry.
func NewWatcher(bus MessageBus, registry *Registry, clock Clock, logger Logger) *Watcher {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = noopLogger{}
	}

	return &Watcher{
		bus:      bus,
		registry: registry,
		clock:    clock,
		logger:   logger,
	}
}

// Start subscribes to state updates for every source. The subscription
// survives broker reconnects; Start itself returns once the subscription is
// registered.
//
// The passed context bounds event handling, not the subscription lifetime.
func (w *Watcher) Start(ctx context.Context) error {
	topic := mqtt.Topics{}.AllSourceStates()

	err := w.bus.Subscribe(topic, 1, func(topic string, payload []byte) error {
		w.handleMessage(ctx, topic, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to source states: %w", err)
	}

	w.logger.Info("watching source state topics", "topic", topic)

	return nil
}

// handleMessage parses one state message and routes it to the registry.
func (w *Watcher) handleMessage(ctx context.Context, topic string, payload []byte) {
	sourceID, ok := mqtt.ParseSourceStateTopic(topic)
	if !ok {
		w.logger.Debug("ignoring message on unrecognised topic", "topic", topic)
		return
	}

	state, eventTime, err := w.parsePayload(payload)
	if err != nil {
		w.logger.Warn("dropping unparseable state payload",
			"source_id", sourceID,
			"payload", string(payload),
			"error", err)
		return
	}

	if err := w.registry.HandleEvent(ctx, sourceID, state, eventTime); err != nil {
		w.logger.Warn("failed to handle state event",
			"source_id", sourceID,
			"state", string(state),
			"error", err)
	}
}

// parsePayload accepts either the JSON event form or a bare state string.
func (w *Watcher) parsePayload(payload []byte) (SourceState, time.Time, error) {
	var event stateEvent
	if err := json.Unmarshal(payload, &event); err == nil && event.State != "" {
		state, err := ParseSourceState(event.State)
		if err != nil {
			return "", time.Time{}, err
		}
		eventTime := w.clock.Now()
		if event.Timestamp != nil {
			eventTime = *event.Timestamp
		}
		return state, eventTime, nil
	}

	state, err := ParseSourceState(string(payload))
	if err != nil {
		return "", time.Time{}, err
	}

	return state, w.clock.Now(), nil
}
