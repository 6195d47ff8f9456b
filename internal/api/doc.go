// Package api implements the HTTP REST API and WebSocket server for Gray Logic Home.
//
// This package provides:
//   - REST endpoints for script sources, entities and their scripts
//   - Property reads and writes, method invocation and event bindings
//   - WebSocket hub that streams entity state and configuration
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The server fronts a home.Home and the script catalogue. Writes go through
// the same Script operations scripts use among themselves, so a PATCH of
// properties persists when a Store property changed and republishes state
// when an InitiateUpdate property changed.
//
// The Hub implements home.Publisher. Wire it next to the MQTT publisher to
// stream entity.state and entity.config events to subscribed clients.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB. Only the metrics report
// their absence.
package api
