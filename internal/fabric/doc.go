// Package fabric defines the northbound host contract: the device types,
// clusters and attributes a bridged endpoint carries, and the Host
// interface the adapter registers endpoints against.
//
// This package manages:
//   - Device type codes emitted by expose resolution
//   - Cluster/attribute addressing with change-detecting writes
//   - Operation events (reachableChanged, lockOperation, switch presses)
//   - Host API version validation (fail fast on an incompatible major)
//
// The host fabric itself is an external collaborator. InMemoryHost is
// the reference implementation used by the test suites; embedding hosts
// implement Host against their own transport.
//
// # Idempotence
//
// Endpoint.SetAttribute compares against the stored value and no-ops on
// equality. Replaying the most recent gateway payload for an entity
// therefore produces no observable attribute change.
package fabric
