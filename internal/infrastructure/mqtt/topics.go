package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes per the Dwell Core MQTT scheme.
//
// All topics live under a single root: dwell/{category}/...
const (
	// TopicPrefixSource is the base for source state topics published by
	// external sensor integrations.
	// Scheme: dwell/source/{source_id}/state
	TopicPrefixSource = "dwell/source"

	// TopicPrefixMetrics is the base for occupancy metric snapshot topics
	// published by Dwell Core. Snapshots are retained so late subscribers
	// immediately see current totals.
	// Scheme: dwell/metrics/{source_id}
	TopicPrefixMetrics = "dwell/metrics"

	// TopicPrefixDiscovery is the base for discovery topics.
	TopicPrefixDiscovery = "dwell/discovery"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "dwell/system"
)

// Topics provides builders for Dwell Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.SourceState("motion-hall")
//	// Returns: "dwell/source/motion-hall/state"
type Topics struct{}

// SourceState returns the topic a source's binary state is published on.
//
// Example: dwell/source/motion-hall/state
func (Topics) SourceState(sourceID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixSource, sourceID)
}

// AllSourceStates returns a pattern matching state updates for every source.
//
// Pattern: dwell/source/+/state
func (Topics) AllSourceStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixSource)
}

// SourceMetrics returns the topic occupancy snapshots are published on.
//
// Example: dwell/metrics/motion-hall
func (Topics) SourceMetrics(sourceID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixMetrics, sourceID)
}

// AllSourceMetrics returns a pattern matching every snapshot topic.
//
// Pattern: dwell/metrics/+
func (Topics) AllSourceMetrics() string {
	return fmt.Sprintf("%s/+", TopicPrefixMetrics)
}

// DiscoverySources returns the topic carrying the retained JSON array of
// currently eligible source ids.
//
// Example: dwell/discovery/sources
func (Topics) DiscoverySources() string {
	return fmt.Sprintf("%s/sources", TopicPrefixDiscovery)
}

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: dwell/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// ParseSourceStateTopic extracts the source id from a source state topic.
//
// Returns the id and true for topics of the form dwell/source/{id}/state;
// false for anything else (including ids containing path separators).
func ParseSourceStateTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixSource+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/state")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ParseSourceMetricsTopic extracts the source id from a snapshot topic.
//
// Returns the id and true for topics of the form dwell/metrics/{id};
// false for anything else.
func ParseSourceMetricsTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefixMetrics+"/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
