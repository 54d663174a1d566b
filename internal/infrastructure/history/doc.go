// Package history is the optional attribute-history sink: endpoint
// attribute changes and operation events recorded as InfluxDB points.
//
// The sink observes endpoints through their attribute and event
// callbacks, so it sees exactly the change-detected writes the host
// fabric sees. Replayed payloads that change nothing write nothing.
//
// Writes are batched and non-blocking; a slow or absent InfluxDB never
// backpressures the update pipeline.
package history
