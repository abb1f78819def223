package tracking

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/dwell-core/internal/infrastructure/mqtt"
)

// MessagePublisher is the subset of the MQTT client publishers need.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTPublisher publishes snapshots as retained JSON on dwell/metrics/{id}.
//
// Retained delivery means a subscriber joining between transitions still
// sees each source's latest totals immediately.
type MQTTPublisher struct {
	bus    MessagePublisher
	logger Logger
}

// NewMQTTPublisher creates a snapshot publisher over the given bus.
func NewMQTTPublisher(bus MessagePublisher, logger Logger) *MQTTPublisher {
	if logger == nil {
		logger = noopLogger{}
	}

	return &MQTTPublisher{
		bus:    bus,
		logger: logger,
	}
}

// PublishSnapshot publishes one snapshot. Failures are logged, not
// propagated: the tracker's state has already advanced and the next
// transition publishes fresh totals anyway.
func (p *MQTTPublisher) PublishSnapshot(snapshot Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		p.logger.Error("failed to marshal snapshot",
			"source_id", snapshot.SourceID, "error", err)
		return
	}

	topic := mqtt.Topics{}.SourceMetrics(snapshot.SourceID)
	if err := p.bus.Publish(topic, payload, 1, true); err != nil {
		p.logger.Warn("failed to publish snapshot",
			"source_id", snapshot.SourceID,
			"topic", topic,
			"error", err)
	}
}

// InfluxWriter is the subset of the InfluxDB client the publisher needs.
// Writes are fire-and-forget; the client batches and reports errors through
// its own error channel.
type InfluxWriter interface {
	WriteOccupancySnapshot(sourceID string, totalSeconds float64, activations int64, occupied bool, timestamp time.Time)
}

// InfluxPublisher records snapshots as time-series points for dashboards
// and long-term analysis.
type InfluxPublisher struct {
	writer InfluxWriter
}

// NewInfluxPublisher creates a time-series snapshot publisher.
func NewInfluxPublisher(writer InfluxWriter) *InfluxPublisher {
	return &InfluxPublisher{writer: writer}
}

// PublishSnapshot writes one snapshot point.
func (p *InfluxPublisher) PublishSnapshot(snapshot Snapshot) {
	p.writer.WriteOccupancySnapshot(
		snapshot.SourceID,
		snapshot.TotalSeconds,
		snapshot.Activations,
		snapshot.State.IsOn(),
		snapshot.ObservedAt,
	)
}

// MultiPublisher fans a snapshot out to several sinks in order.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a fan-out over the given publishers.
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// PublishSnapshot delivers the snapshot to every sink.
func (p *MultiPublisher) PublishSnapshot(snapshot Snapshot) {
	for _, pub := range p.publishers {
		pub.PublishSnapshot(snapshot)
	}
}
