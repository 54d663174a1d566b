package fabric

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// RequiredHostMajor is the host fabric API major version this adapter
// is built against. A host reporting a different major is incompatible
// and construction fails fast.
const RequiredHostMajor = 2

// InMemoryHostVersion is the API version the built-in host reports.
const InMemoryHostVersion = "2.0.0"

// Host is the northbound fabric the adapter bridges entities onto.
//
// The host owns endpoint lifetimes on its side: RegisterEndpoint makes
// an endpoint addressable on the fabric, UnregisterEndpoint removes it.
// SelectDevice is a UI hint published before registration so commissioning
// tools can highlight the incoming device.
type Host interface {
	// RegisterEndpoint makes an endpoint addressable on the fabric.
	RegisterEndpoint(ctx context.Context, ep *Endpoint) error

	// UnregisterEndpoint removes an endpoint from the fabric.
	UnregisterEndpoint(ctx context.Context, ep *Endpoint) error

	// SelectDevice publishes a select-device hint for commissioning UIs.
	SelectDevice(name string)

	// Version reports the host API version as "major.minor.patch".
	Version() string
}

// ValidateHostVersion checks a host version string against the required
// major version. Called at construction; an error here is fatal.
func ValidateHostVersion(version string) error {
	parts := strings.SplitN(strings.TrimPrefix(version, "v"), ".", 3)
	if len(parts) < 2 {
		return fmt.Errorf("%w: malformed version %q", ErrIncompatibleHost, version)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("%w: malformed version %q", ErrIncompatibleHost, version)
	}
	if major != RequiredHostMajor {
		return fmt.Errorf("%w: host reports %s, adapter requires major %d",
			ErrIncompatibleHost, version, RequiredHostMajor)
	}
	return nil
}

// InMemoryHost is a Host implementation backed by a map. It serves the
// test suites and doubles as the embedding surface for hosts that manage
// their own fabric transport.
type InMemoryHost struct {
	version string

	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	selected  []string
}

// NewInMemoryHost creates a host reporting the given API version.
func NewInMemoryHost(version string) *InMemoryHost {
	return &InMemoryHost{
		version:   version,
		endpoints: make(map[string]*Endpoint),
	}
}

// RegisterEndpoint stores the endpoint by name.
func (h *InMemoryHost) RegisterEndpoint(_ context.Context, ep *Endpoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.endpoints[ep.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrEndpointExists, ep.Name())
	}
	h.endpoints[ep.Name()] = ep
	return nil
}

// UnregisterEndpoint removes the endpoint.
func (h *InMemoryHost) UnregisterEndpoint(_ context.Context, ep *Endpoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.endpoints[ep.Name()]; !exists {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, ep.Name())
	}
	delete(h.endpoints, ep.Name())
	return nil
}

// SelectDevice records the hint.
func (h *InMemoryHost) SelectDevice(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = append(h.selected, name)
}

// Version reports the host API version.
func (h *InMemoryHost) Version() string { return h.version }

// Endpoint returns a registered endpoint by name.
func (h *InMemoryHost) Endpoint(name string) (*Endpoint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ep, ok := h.endpoints[name]
	return ep, ok
}

// EndpointCount returns the number of registered endpoints.
func (h *InMemoryHost) EndpointCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.endpoints)
}

// SelectedDevices returns the select-device hints seen so far.
func (h *InMemoryHost) SelectedDevices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.selected))
	copy(out, h.selected)
	return out
}
