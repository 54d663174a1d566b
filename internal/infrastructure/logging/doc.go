// Package logging provides structured logging for the Zigbridge adapter.
//
// This package manages:
//   - slog-based structured logging (JSON or text)
//   - Level-based filtering (debug, info, warn, error)
//   - Default fields (service, version) on every record
//
// The retained-diagnostics writer keys off DebugEnabled(): raw bridge
// frames are only persisted to disk when debug logging is active.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("starting", "topic", cfg.MQTT.Topic)
//	mqttLog := log.With("component", "mqtt")
package logging
