package fabric

import (
	"sync"
)

// Command is a northbound command dispatched to a bridged endpoint.
type Command struct {
	// Name is the command identifier (see Cmd* constants).
	Name string

	// Fields carries command-specific values, e.g. {"level": 123}.
	Fields map[string]any
}

// Command names the host fabric may dispatch.
const (
	CmdOn                       = "on"
	CmdOff                      = "off"
	CmdToggle                   = "toggle"
	CmdMoveToLevel              = "moveToLevel"
	CmdMoveToLevelWithOnOff     = "moveToLevelWithOnOff"
	CmdMoveToColorTemperature   = "moveToColorTemperature"
	CmdMoveToHue                = "moveToHue"
	CmdMoveToSaturation         = "moveToSaturation"
	CmdMoveToHueAndSaturation   = "moveToHueAndSaturation"
	CmdUpOrOpen                 = "upOrOpen"
	CmdDownOrClose              = "downOrClose"
	CmdStopMotion               = "stopMotion"
	CmdGoToLiftPercentage       = "goToLiftPercentage"
	CmdLockDoor                 = "lockDoor"
	CmdUnlockDoor               = "unlockDoor"
	CmdSetpointRaiseLower       = "setpointRaiseLower"
)

// CommandHandler executes a northbound command against the southbound gateway.
type CommandHandler func(cmd Command) error

// EventType identifies an operation event emitted by an endpoint.
type EventType string

// Operation events.
const (
	EventReachableChanged       EventType = "reachableChanged"
	EventLockOperation          EventType = "lockOperation"
	EventInitialPress           EventType = "initialPress"
	EventShortRelease           EventType = "shortRelease"
	EventLongPress              EventType = "longPress"
	EventLongRelease            EventType = "longRelease"
	EventMultiPressComplete     EventType = "multiPressComplete"
)

// Event is an operation event with optional payload fields.
type Event struct {
	Type   EventType
	Fields map[string]any
}

// Endpoint is one addressable object on the host fabric representing a
// bridged Zigbee entity (or one child of a composite entity).
//
// Attribute writes are change-detecting: setting an attribute to its
// current value is a no-op and produces no change notification. This is
// what makes payload replay idempotent.
//
// Thread Safety: all methods are safe for concurrent use.
type Endpoint struct {
	name        string
	deviceTypes []DeviceType

	mu        sync.RWMutex
	attrs     map[Attribute]any
	reachable bool
	children  []*Endpoint

	handler     CommandHandler
	onAttribute func(Attribute, any)
	onEvent     func(Event)
}

// NewEndpoint creates an endpoint with the given name and device types.
func NewEndpoint(name string, deviceTypes ...DeviceType) *Endpoint {
	return &Endpoint{
		name:        name,
		deviceTypes: deviceTypes,
		attrs:       make(map[Attribute]any),
	}
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string { return e.name }

// DeviceTypes returns the endpoint's device type list.
func (e *Endpoint) DeviceTypes() []DeviceType {
	out := make([]DeviceType, len(e.deviceTypes))
	copy(out, e.deviceTypes)
	return out
}

// HasDeviceType reports whether the endpoint carries the given device type.
func (e *Endpoint) HasDeviceType(dt DeviceType) bool {
	for _, d := range e.deviceTypes {
		if d == dt {
			return true
		}
	}
	return false
}

// AddChild attaches a child endpoint (multi-endpoint devices, composed
// entities). Children receive measurement broadcasts from the pipeline.
func (e *Endpoint) AddChild(child *Endpoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children = append(e.children, child)
}

// Children returns the attached child endpoints.
func (e *Endpoint) Children() []*Endpoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Endpoint, len(e.children))
	copy(out, e.children)
	return out
}

// SetAttribute writes an attribute value. Returns true when the stored
// value changed. Equal values are no-ops (replay idempotence).
func (e *Endpoint) SetAttribute(attr Attribute, value any) bool {
	e.mu.Lock()
	current, exists := e.attrs[attr]
	if exists && current == value {
		e.mu.Unlock()
		return false
	}
	e.attrs[attr] = value
	callback := e.onAttribute
	e.mu.Unlock()

	if callback != nil {
		callback(attr, value)
	}
	return true
}

// Attribute reads an attribute value.
func (e *Endpoint) Attribute(attr Attribute) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[attr]
	return v, ok
}

// SetReachable updates the reachable flag and triggers a reachableChanged
// event when the flag actually flips.
func (e *Endpoint) SetReachable(reachable bool) {
	e.mu.Lock()
	if e.reachable == reachable {
		e.mu.Unlock()
		return
	}
	e.reachable = reachable
	callback := e.onEvent
	e.mu.Unlock()

	if callback != nil {
		callback(Event{
			Type:   EventReachableChanged,
			Fields: map[string]any{"reachable": reachable},
		})
	}
}

// Reachable returns the current reachable flag.
func (e *Endpoint) Reachable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reachable
}

// SetCommandHandler installs the handler invoked by Dispatch.
func (e *Endpoint) SetCommandHandler(handler CommandHandler) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

// Dispatch delivers a northbound command to the installed handler.
func (e *Endpoint) Dispatch(cmd Command) error {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()

	if handler == nil {
		return ErrNoCommandHandler
	}
	return handler(cmd)
}

// SetOnAttribute installs an observer for attribute changes.
// Used by the host fabric and by the history sink.
func (e *Endpoint) SetOnAttribute(callback func(Attribute, any)) {
	e.mu.Lock()
	e.onAttribute = callback
	e.mu.Unlock()
}

// SetOnEvent installs an observer for operation events.
func (e *Endpoint) SetOnEvent(callback func(Event)) {
	e.mu.Lock()
	e.onEvent = callback
	e.mu.Unlock()
}

// TriggerEvent emits an operation event to the observer.
func (e *Endpoint) TriggerEvent(ev Event) {
	e.mu.RLock()
	callback := e.onEvent
	e.mu.RUnlock()

	if callback != nil {
		callback(ev)
	}
}
