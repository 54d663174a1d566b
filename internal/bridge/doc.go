// Package bridge talks to the Zigbee2MQTT gateway: it classifies the
// frames arriving under the gateway's topic prefix, tracks the retained
// bridge state and drives the northbound entity registry through the
// adapter lifecycle.
//
// The package splits into:
//   - Dispatcher: stateless topic classification into typed Sink calls
//   - Controller: the production Sink; sequences startup, registration
//     sweeps, live events, the get-refresh burst and the retained replay
//   - Diagnostics: best-effort snapshot and traffic capture to flat files
//
// # Startup ordering
//
// The gateway publishes bridge/state, bridge/info, bridge/devices and
// bridge/groups as retained messages. Start subscribes, waits for all
// four within the configured deadline, registers the snapshots, then
// refreshes readable state via <entity>/get and finally replays the
// retained per-entity payloads. Replay runs last so fresher refresh
// answers win; attribute writes are change-detecting so the replay is
// idempotent.
//
// No frame for an entity mutates northbound state before that entity is
// registered: payloads for unknown names are retained and surface during
// the replay once registration has caught up.
package bridge
