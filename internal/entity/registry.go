package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zigbridge/zigbridge-core/internal/bridge"
	"github.com/zigbridge/zigbridge-core/internal/fabric"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
	"github.com/zigbridge/zigbridge-core/internal/pipeline"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Entity is one bridged gateway entity: a device or a group, its fabric
// endpoint and the resolved feature metadata the controller needs.
type Entity struct {
	name     string
	group    bool
	groupID  int
	ieee     string
	router   bool
	types    []fabric.DeviceType
	gettable []string
	endpoint *fabric.Endpoint

	// source snapshots kept for rename and reconfiguration.
	device bridge.BridgeDevice
	grp    bridge.BridgeGroup
}

// Name returns the gateway friendly name.
func (e *Entity) Name() string { return e.name }

// Endpoint returns the fabric endpoint.
func (e *Entity) Endpoint() *fabric.Endpoint { return e.endpoint }

// DeviceTypes returns the resolved device types.
func (e *Entity) DeviceTypes() []fabric.DeviceType {
	out := make([]fabric.DeviceType, len(e.types))
	copy(out, e.types)
	return out
}

// Observer is attached to every endpoint before it is handed to the
// host. The history sink implements it.
type Observer interface {
	Observe(ep *fabric.Endpoint)
}

// Options configures a Registry.
type Options struct {
	Config    *config.Config
	Host      fabric.Host
	Publisher pipeline.Publisher
	Observer  Observer
	Logger    Logger
}

// Registry owns the bridged entities: it filters gateway snapshots,
// resolves device types, builds fabric endpoints and registers them with
// the host. Entities keep their registration order.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	cfg       *config.Config
	host      fabric.Host
	publisher pipeline.Publisher
	filter    *filter
	observer  Observer
	logger    Logger

	mu       sync.Mutex
	entities []*Entity
	byName   map[string]*Entity
}

// NewRegistry creates a registry. The host API version is validated here
// and an incompatible major is fatal.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: Config is required", ErrInvalidOptions)
	}
	if opts.Host == nil {
		return nil, fmt.Errorf("%w: Host is required", ErrInvalidOptions)
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("%w: Publisher is required", ErrInvalidOptions)
	}
	if err := fabric.ValidateHostVersion(opts.Host.Version()); err != nil {
		return nil, err
	}

	return &Registry{
		cfg:       opts.Config,
		host:      opts.Host,
		publisher: opts.Publisher,
		filter:    newFilter(opts.Config.Filters),
		observer:  opts.Observer,
		logger:    opts.Logger,
		byName:    make(map[string]*Entity),
	}, nil
}

// endpointName applies the configured postfix to a friendly name.
func (r *Registry) endpointName(name string) string {
	if r.cfg.Endpoints.Postfix == "" {
		return name
	}
	return name + "-" + r.cfg.Endpoints.Postfix
}

// RegisterDevice builds and registers a device entity. Devices that are
// filtered, unsupported, disabled or not yet interviewed are skipped
// without error.
func (r *Registry) RegisterDevice(ctx context.Context, dev bridge.BridgeDevice) error {
	name := dev.FriendlyName

	if dev.Type == bridge.DeviceTypeCoordinator {
		return r.registerCoordinator(ctx, dev)
	}
	if !dev.Supported || dev.Disabled || !dev.InterviewCompleted || dev.Definition == nil {
		r.logDebug("skipping device",
			"device", name,
			"supported", dev.Supported,
			"disabled", dev.Disabled,
			"interviewed", dev.InterviewCompleted,
		)
		return nil
	}
	if !r.filter.allow(name, dev.IEEEAddress) {
		r.logDebug("device filtered out", "device", name)
		return nil
	}

	fs := flattenExposes(name, dev.Definition.Exposes, r.filter)
	types := resolveDeviceTypes(name, fs, r.filter)
	if dev.IsRouter() && !containsType(types, fabric.DeviceTypeDoorLock) {
		// Routing devices get a lock endpoint mirroring the
		// commissioning window.
		types = append(types, fabric.DeviceTypeDoorLock)
	}
	if len(types) == 0 {
		r.logDebug("device has no mappable features", "device", name)
		return nil
	}

	r.host.SelectDevice(name)

	ep := fabric.NewEndpoint(r.endpointName(name), types...)
	for _, dt := range types[1:] {
		if isSensorType(dt) {
			child := fabric.NewEndpoint(r.endpointName(name)+" "+dt.String(), dt)
			ep.AddChild(child)
		}
	}
	ep.SetCommandHandler(pipeline.CommandHandler(ep, pipeline.OutboundOptions{
		Prefix:    r.cfg.MQTT.Topic,
		Entity:    name,
		Router:    dev.IsRouter(),
		Publisher: r.publisher,
		Logger:    r.logger,
	}))

	e := &Entity{
		name:     name,
		ieee:     dev.IEEEAddress,
		router:   dev.IsRouter(),
		types:    types,
		gettable: gettableProperties(fs),
		endpoint: ep,
		device:   dev,
	}
	return r.add(ctx, e)
}

// registerCoordinator exposes the coordinator as a lock-only endpoint.
// It has no exposes of its own; the lock mirrors the commissioning
// window like every routing device.
func (r *Registry) registerCoordinator(ctx context.Context, dev bridge.BridgeDevice) error {
	name := dev.FriendlyName
	if dev.Disabled {
		return nil
	}
	if !r.filter.allow(name, dev.IEEEAddress) {
		r.logDebug("coordinator filtered out", "device", name)
		return nil
	}

	ep := fabric.NewEndpoint(r.endpointName(name), fabric.DeviceTypeDoorLock)
	ep.SetCommandHandler(pipeline.CommandHandler(ep, pipeline.OutboundOptions{
		Prefix:    r.cfg.MQTT.Topic,
		Entity:    name,
		Router:    true,
		Publisher: r.publisher,
		Logger:    r.logger,
	}))

	e := &Entity{
		name:     name,
		ieee:     dev.IEEEAddress,
		router:   true,
		types:    []fabric.DeviceType{fabric.DeviceTypeDoorLock},
		endpoint: ep,
		device:   dev,
	}
	return r.add(ctx, e)
}

// RegisterGroup builds and registers a group entity. Groups act as
// dimmable lights; their scenes become child endpoints recalled by an
// on command.
func (r *Registry) RegisterGroup(ctx context.Context, grp bridge.BridgeGroup) error {
	name := grp.FriendlyName
	if !r.filter.allow(name, "") {
		r.logDebug("group filtered out", "group", name)
		return nil
	}

	ep := fabric.NewEndpoint(r.endpointName(name), fabric.DeviceTypeDimmableLight)
	ep.SetCommandHandler(pipeline.CommandHandler(ep, pipeline.OutboundOptions{
		Prefix:    r.cfg.MQTT.Topic,
		Entity:    name,
		Publisher: r.publisher,
		Logger:    r.logger,
	}))

	for _, scene := range grp.Scenes {
		ep.AddChild(r.buildSceneEndpoint(name, scene))
	}

	e := &Entity{
		name:     name,
		group:    true,
		groupID:  grp.ID,
		endpoint: ep,
		grp:      grp,
	}
	return r.add(ctx, e)
}

// buildSceneEndpoint creates a scene child whose on command recalls the
// scene on the owning group.
func (r *Registry) buildSceneEndpoint(group string, scene bridge.GroupScene) *fabric.Endpoint {
	sceneName := scene.Name
	if r.cfg.Endpoints.ScenesPrefix {
		sceneName = group + " " + scene.Name
	}

	ep := fabric.NewEndpoint(r.endpointName(sceneName), scenesDeviceType(r.cfg.Endpoints.ScenesType))
	topic := r.cfg.MQTT.Topic + "/" + group + "/set"
	sceneID := scene.ID

	ep.SetCommandHandler(func(cmd fabric.Command) error {
		switch cmd.Name {
		case fabric.CmdOn, fabric.CmdToggle:
			payload, err := json.Marshal(map[string]int{"scene_recall": sceneID})
			if err != nil {
				return err
			}
			return r.publisher.Publish(topic, payload, 2, false)
		case fabric.CmdOff:
			// Scenes have no off action.
			return nil
		}
		return fmt.Errorf("%w: %s on scene", pipeline.ErrUnsupportedCommand, cmd.Name)
	})
	return ep
}

// add registers the endpoint with the host and stores the entity.
func (r *Registry) add(ctx context.Context, e *Entity) error {
	r.mu.Lock()
	if _, exists := r.byName[e.name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntityExists, e.name)
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.Observe(e.endpoint)
	}

	if err := r.host.RegisterEndpoint(ctx, e.endpoint); err != nil {
		return fmt.Errorf("registering %s: %w", e.name, err)
	}

	r.mu.Lock()
	r.entities = append(r.entities, e)
	r.byName[e.name] = e
	r.mu.Unlock()

	r.logInfo("entity registered",
		"entity", e.name,
		"group", e.group,
		"types", typeNames(e.types),
	)
	return nil
}

// UpdateDevice reconfigures a known device from a fresh snapshot element.
// When the resolved device types changed the entity is re-registered,
// otherwise the feature metadata is refreshed in place.
func (r *Registry) UpdateDevice(ctx context.Context, dev bridge.BridgeDevice) error {
	name := dev.FriendlyName

	r.mu.Lock()
	e, ok := r.byName[name]
	r.mu.Unlock()
	if !ok || e.group {
		return r.RegisterDevice(ctx, dev)
	}
	if dev.Definition == nil {
		return nil
	}

	fs := flattenExposes(name, dev.Definition.Exposes, r.filter)
	types := resolveDeviceTypes(name, fs, r.filter)
	if dev.IsRouter() && !containsType(types, fabric.DeviceTypeDoorLock) {
		types = append(types, fabric.DeviceTypeDoorLock)
	}

	if !sameTypes(e.types, types) {
		r.logInfo("device types changed, re-registering", "device", name)
		if err := r.Unregister(ctx, name); err != nil {
			return err
		}
		return r.RegisterDevice(ctx, dev)
	}

	r.mu.Lock()
	e.gettable = gettableProperties(fs)
	e.router = dev.IsRouter()
	e.device = dev
	r.mu.Unlock()
	return nil
}

// UpdateGroup reconfigures a known group. A changed scene set triggers
// re-registration so the scene children match.
func (r *Registry) UpdateGroup(ctx context.Context, grp bridge.BridgeGroup) error {
	r.mu.Lock()
	e, ok := r.byName[grp.FriendlyName]
	r.mu.Unlock()
	if !ok || !e.group {
		return r.RegisterGroup(ctx, grp)
	}

	if len(e.grp.Scenes) != len(grp.Scenes) {
		if err := r.Unregister(ctx, grp.FriendlyName); err != nil {
			return err
		}
		return r.RegisterGroup(ctx, grp)
	}

	r.mu.Lock()
	e.grp = grp
	e.groupID = grp.ID
	r.mu.Unlock()
	return nil
}

// Unregister removes an entity and its endpoint. Unknown names are no-ops.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	r.mu.Lock()
	e, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.byName, name)
	for i, candidate := range r.entities {
		if candidate == e {
			r.entities = append(r.entities[:i], r.entities[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if err := r.host.UnregisterEndpoint(ctx, e.endpoint); err != nil {
		r.logWarn("host unregister failed", "entity", name, "error", err)
	}
	r.logInfo("entity unregistered", "entity", name)
	return nil
}

// Rename re-registers an entity under a new friendly name, carrying the
// stored source snapshot over.
func (r *Registry) Rename(ctx context.Context, from, to string) error {
	r.mu.Lock()
	e, ok := r.byName[from]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, from)
	}

	if err := r.Unregister(ctx, from); err != nil {
		return err
	}

	if e.group {
		grp := e.grp
		grp.FriendlyName = to
		return r.RegisterGroup(ctx, grp)
	}
	dev := e.device
	dev.FriendlyName = to
	return r.RegisterDevice(ctx, dev)
}

// Has reports whether the name maps to a registered entity.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[name]
	return ok
}

// Get returns a registered entity.
func (r *Registry) Get(name string) (*Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	return e, ok
}

// Names lists all registered entities in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e.name)
	}
	return out
}

// DeviceNames lists registered devices in registration order.
func (r *Registry) DeviceNames() []string {
	return r.namesWhere(func(e *Entity) bool { return !e.group })
}

// GroupNames lists registered groups in registration order.
func (r *Registry) GroupNames() []string {
	return r.namesWhere(func(e *Entity) bool { return e.group })
}

func (r *Registry) namesWhere(keep func(*Entity) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entities {
		if keep(e) {
			out = append(out, e.name)
		}
	}
	return out
}

// IsGroup reports whether a registered name is a group.
func (r *Registry) IsGroup(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	return ok && e.group
}

// ApplyPayload feeds a state payload through the update pipeline.
func (r *Registry) ApplyPayload(name string, payload map[string]any) {
	r.mu.Lock()
	e, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return
	}
	pipeline.Apply(e.endpoint, payload, r.logger)
}

// SetAvailability marks an entity and its children reachable or not.
func (r *Registry) SetAvailability(name string, online bool) {
	r.mu.Lock()
	e, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.endpoint.SetReachable(online)
	for _, child := range e.endpoint.Children() {
		child.SetReachable(online)
	}
}

// SetPermitJoin mirrors a commissioning window change onto the lock
// endpoints of routing devices. An open window reads as unlocked.
func (r *Registry) SetPermitJoin(device string, permit bool) {
	state := fabric.LockStateLocked
	operation := "Lock"
	if permit {
		state = fabric.LockStateUnlocked
		operation = "Unlock"
	}

	r.mu.Lock()
	targets := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		if e.router && (device == "" || e.name == device) {
			targets = append(targets, e)
		}
	}
	r.mu.Unlock()

	for _, e := range targets {
		e.endpoint.SetAttribute(fabric.AttrLockState, state)
		e.endpoint.TriggerEvent(fabric.Event{
			Type:   fabric.EventLockOperation,
			Fields: map[string]any{"operation": operation},
		})
	}
}

// RefreshTargets lists the gettable property names of a device.
func (r *Registry) RefreshTargets(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	if !ok || e.group {
		return nil
	}
	out := make([]string, len(e.gettable))
	copy(out, e.gettable)
	return out
}

// gettableProperties collects the properties answering <entity>/get reads.
func gettableProperties(fs *featureSet) []string {
	var out []string
	seen := make(map[string]bool)
	for _, feature := range fs.features {
		if feature.IsGettable() && feature.Property != "" && !seen[feature.Property] {
			seen[feature.Property] = true
			out = append(out, feature.Property)
		}
	}
	return out
}

func containsType(types []fabric.DeviceType, dt fabric.DeviceType) bool {
	for _, t := range types {
		if t == dt {
			return true
		}
	}
	return false
}

func sameTypes(a, b []fabric.DeviceType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isSensorType(dt fabric.DeviceType) bool {
	switch dt {
	case fabric.DeviceTypeContactSensor, fabric.DeviceTypeLightSensor,
		fabric.DeviceTypeOccupancySensor, fabric.DeviceTypeTemperatureSensor,
		fabric.DeviceTypePressureSensor, fabric.DeviceTypeHumiditySensor,
		fabric.DeviceTypeAirQualitySensor, fabric.DeviceTypeSmokeCOAlarm,
		fabric.DeviceTypeWaterLeakDetector:
		return true
	}
	return false
}

func typeNames(types []fabric.DeviceType) []string {
	out := make([]string, len(types))
	for i, dt := range types {
		out[i] = dt.String()
	}
	return out
}

func (r *Registry) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Registry) logDebug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Registry) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
