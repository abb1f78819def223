// Package influxdb provides the optional time-series metric sink for
// Dwell Core.
//
// When enabled, every occupancy snapshot emitted by the tracking engine is
// written as a point in the "occupancy" measurement, tagged by source id,
// with live total seconds, activation count, and binary occupied state as
// fields. Writes are batched and non-blocking so a slow or unavailable
// InfluxDB server never stalls event processing; asynchronous write errors
// surface through the SetOnError callback.
//
// InfluxDB is strictly supplementary: the durable accumulated totals live in
// SQLite (internal/tracking), and snapshots are also published retained on
// MQTT. Disabling InfluxDB loses only the historical time-series view.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Error("influxdb write error", "error", err)
//	})
//	client.WriteOccupancySnapshot("motion-hall", 342.5, 12, true, time.Now())
package influxdb
