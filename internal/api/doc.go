// Package api implements the HTTP REST API and WebSocket server for Dwell Core.
//
// This package provides:
//   - REST endpoints for source management, occupancy snapshots and resets
//   - WebSocket hub for real-time snapshot broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between consumers (dashboards, automations, CLIs) and
// the tracker registry + MQTT bus. Source state events flow in over MQTT;
// snapshot updates are re-published to the bus and relayed to WebSocket
// clients subscribed to the source.snapshot channel.
//
// # Graceful Degradation
//
// The server operates without MQTT: REST reads and resets work against the
// in-process registry, only live WebSocket relay of bus snapshots is
// disabled.
package api
