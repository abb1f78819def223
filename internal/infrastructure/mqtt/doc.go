// Package mqtt provides the MQTT client for Dwell Core.
//
// MQTT is the event bus: external sensor integrations publish binary source
// states to dwell/source/{id}/state, Dwell Core publishes occupancy metric
// snapshots (retained) to dwell/metrics/{id}, and a retained discovery list
// on dwell/discovery/sources drives the tracked set.
//
// The Client wraps paho.mqtt.golang with:
//   - Connection management with auto-reconnect and exponential backoff
//   - Last Will and Testament on dwell/system/status for offline detection
//   - Subscription tracking with automatic re-subscribe on reconnect
//   - Panic recovery around message handlers
//
// Topic naming is centralised in topics.go; always build topics through the
// Topics helpers rather than string literals.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSourceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        // handle state event
//	        return nil
//	    })
package mqtt
