package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// occupancyMeasurement is the measurement name for occupancy snapshots.
const occupancyMeasurement = "occupancy"

// WriteOccupancySnapshot writes one occupancy metric snapshot to InfluxDB.
//
// This is the primary sink for the tracking engine: one point per mutating
// event, tagged by source id. The write is non-blocking; points are batched
// and sent asynchronously.
//
// Parameters:
//   - sourceID: The monitored source identifier (e.g., "motion-hall")
//   - totalSeconds: Live accumulated on-time in seconds (closed intervals
//     plus the currently open interval, if any)
//   - activations: Count of observed off-to-on transitions
//   - occupied: Current binary state of the source
//   - timestamp: The event time the snapshot was computed at
//
// Example:
//
//	client.WriteOccupancySnapshot("motion-hall", 342.5, 12, true, evt.Time)
func (c *Client) WriteOccupancySnapshot(sourceID string, totalSeconds float64, activations int64, occupied bool, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	occupiedVal := 0
	if occupied {
		occupiedVal = 1
	}

	c.WritePointWithTime(
		occupancyMeasurement,
		map[string]string{
			"source_id": sourceID,
		},
		map[string]interface{}{
			"total_seconds": totalSeconds,
			"activations":   activations,
			"occupied":      occupiedVal,
		},
		timestamp,
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the occupancy helper.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "dwell-01"},
//	    map[string]interface{}{"goroutines": 42, "trackers": 7})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed or delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
