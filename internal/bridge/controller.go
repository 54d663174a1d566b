package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/mqtt"
)

// replayDelay is how long after the get-refresh burst the retained state
// replay runs. By then the gateway has answered the refresh reads and the
// replay writes collapse into no-ops wherever fresher data arrived.
const replayDelay = 10 * time.Second

// MQTTClient is the transport surface the controller needs. *mqtt.Client
// satisfies it; tests install a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	EnqueuePublish(topic string, payload []byte)
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// EntityRegistry is the northbound registry the controller drives. The
// registry owns filtering, device-type resolution and endpoint lifetimes;
// the controller owns ordering and gateway state.
type EntityRegistry interface {
	// RegisterDevice and RegisterGroup create and register an entity.
	// Filtered entities are skipped silently (nil error).
	RegisterDevice(ctx context.Context, dev BridgeDevice) error
	RegisterGroup(ctx context.Context, grp BridgeGroup) error

	// UpdateDevice and UpdateGroup reconfigure an already-known entity
	// from a fresh snapshot element.
	UpdateDevice(ctx context.Context, dev BridgeDevice) error
	UpdateGroup(ctx context.Context, grp BridgeGroup) error

	// Unregister removes an entity by name. Unknown names are no-ops.
	Unregister(ctx context.Context, name string) error

	// Rename moves an entity to a new friendly name.
	Rename(ctx context.Context, from, to string) error

	// Has reports whether the name maps to a registered entity.
	Has(name string) bool

	// Names, DeviceNames and GroupNames list registered entities in
	// registration order.
	Names() []string
	DeviceNames() []string
	GroupNames() []string

	// IsGroup reports whether a registered name is a group.
	IsGroup(name string) bool

	// ApplyPayload feeds a state payload through the update pipeline.
	ApplyPayload(name string, payload map[string]any)

	// SetAvailability marks an entity reachable or not.
	SetAvailability(name string, online bool)

	// SetPermitJoin mirrors a commissioning window change onto the
	// routing devices. An empty device name targets the whole network.
	SetPermitJoin(device string, permit bool)

	// RefreshTargets lists the gettable property names of a device.
	RefreshTargets(name string) []string
}

// Options configures a Controller.
type Options struct {
	Config   *config.Config
	MQTT     MQTTClient
	Registry EntityRegistry
	Logger   Logger

	// Diagnostics is shared with the publish mirror when set. The
	// controller builds its own writer otherwise.
	Diagnostics *Diagnostics
}

// payloadRecord is the last state payload seen for an entity, kept for
// the post-configure replay.
type payloadRecord struct {
	payload map[string]any
	raw     []byte
}

// Controller sequences the adapter lifecycle against the gateway's
// retained topics: wait for the retained snapshots, register entities,
// track live events, refresh readable state and replay retained payloads.
//
// Thread Safety: the controller serializes all sink callbacks and state
// mutation behind one mutex. Frames for one topic arrive in publish order
// from the transport; the mutex extends that to a single serialized
// processing order across topics.
type Controller struct {
	cfg      *config.Config
	mqtt     MQTTClient
	registry EntityRegistry
	diag     *Diagnostics
	logger   Logger

	dispatcher *Dispatcher

	mu           sync.Mutex
	online       *bool
	info         *BridgeInfo
	devices      []BridgeDevice
	groups       []BridgeGroup
	devicesSeen  bool
	groupsSeen   bool
	availability map[string]bool
	lastPayload  map[string]payloadRecord

	// syncing becomes true once Start has run the initial registration
	// sweep; later snapshots then reconcile immediately on arrival.
	syncing bool
	started bool

	readyOnce sync.Once
	readyCh   chan struct{}

	replayMu    sync.Mutex
	replayTimer *time.Timer

	stopOnce sync.Once
}

// NewController creates a controller and its topic dispatcher.
func NewController(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: Config is required", ErrInvalidOptions)
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("%w: MQTT is required", ErrInvalidOptions)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: Registry is required", ErrInvalidOptions)
	}

	diag := opts.Diagnostics
	if diag == nil {
		diag = NewDiagnostics(opts.Config.DataDir, opts.Config.Debug, opts.Logger)
	}

	c := &Controller{
		cfg:          opts.Config,
		mqtt:         opts.MQTT,
		registry:     opts.Registry,
		logger:       opts.Logger,
		diag:         diag,
		availability: make(map[string]bool),
		lastPayload:  make(map[string]payloadRecord),
		readyCh:      make(chan struct{}),
	}
	c.dispatcher = NewDispatcher(opts.Config.MQTT.Topic, c, opts.Logger)
	return c, nil
}

// Start subscribes to the gateway tree, waits for the retained snapshots
// and runs the initial registration sweep and state refresh.
//
// The wait is bounded by mqtt.connect_timeout. On expiry the error names
// every retained topic that never arrived.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	topic := c.cfg.MQTT.Topic + "/#"
	if err := c.mqtt.Subscribe(topic, mqtt.DefaultQoS, c.dispatcher.Dispatch); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	c.loadInjections()

	select {
	case <-c.readyCh:
	case <-time.After(c.cfg.MQTT.GetConnectTimeout()):
		return fmt.Errorf("%w: missing %s", ErrBridgeNotReady, strings.Join(c.missingTopics(), ", "))
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	offline := c.online != nil && !*c.online
	if offline {
		c.logError("gateway is offline, entities will start unreachable")
	}

	c.logInfo("gateway ready",
		"version", c.info.Version,
		"devices", len(c.devices),
		"groups", len(c.groups),
	)

	c.syncDevicesLocked(ctx)
	c.syncGroupsLocked(ctx)
	c.syncing = true
	c.mu.Unlock()

	if offline {
		for _, name := range c.registry.Names() {
			c.registry.SetAvailability(name, false)
		}
	}

	c.configure()
	return nil
}

// Stop cancels the pending replay and winds down the registry. When
// unregister_on_shutdown is set every endpoint is removed from the host
// fabric; otherwise endpoints are left registered but unreachable.
func (c *Controller) Stop(ctx context.Context) {
	c.stopOnce.Do(func() {
		c.replayMu.Lock()
		if c.replayTimer != nil {
			c.replayTimer.Stop()
		}
		c.replayMu.Unlock()

		if err := c.mqtt.Unsubscribe(c.cfg.MQTT.Topic + "/#"); err != nil {
			c.logWarn("unsubscribe failed", "error", err)
		}

		for _, name := range c.registry.Names() {
			if c.cfg.Lifecycle.UnregisterOnShutdown {
				if err := c.registry.Unregister(ctx, name); err != nil {
					c.logWarn("unregister on shutdown failed", "entity", name, "error", err)
				}
			} else {
				c.registry.SetAvailability(name, false)
			}
		}
	})
}

// missingTopics lists the retained topics not yet seen, for the startup
// deadline error.
func (c *Controller) missingTopics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []string
	if c.online == nil {
		missing = append(missing, "bridge/state")
	}
	if c.info == nil {
		missing = append(missing, "bridge/info")
	}
	if !c.devicesSeen && !c.groupsSeen {
		missing = append(missing, "bridge/devices or bridge/groups")
	}
	return missing
}

// checkReadyLocked closes the ready channel once the retained state and
// info topics plus at least one entity snapshot have been seen. Caller
// holds c.mu.
func (c *Controller) checkReadyLocked() {
	if c.online != nil && c.info != nil && (c.devicesSeen || c.groupsSeen) {
		c.readyOnce.Do(func() { close(c.readyCh) })
	}
}

// --- Sink implementation -------------------------------------------------

// BridgeState records the gateway online flag. After startup an offline
// flip marks every entity unreachable and an online flip restores the
// recorded availability.
func (c *Controller) BridgeState(online bool) {
	c.mu.Lock()
	previous := c.online
	c.online = &online
	c.checkReadyLocked()
	active := c.syncing
	c.mu.Unlock()

	if previous != nil && *previous == online {
		return
	}
	if online {
		c.logInfo("gateway online")
	} else {
		c.logWarn("gateway offline")
	}

	if !active {
		return
	}
	for _, name := range c.registry.Names() {
		if online {
			c.registry.SetAvailability(name, c.entityOnline(name))
		} else {
			c.registry.SetAvailability(name, false)
		}
	}
}

// BridgeInfo records the gateway info snapshot.
func (c *Controller) BridgeInfo(info *BridgeInfo, raw []byte) {
	c.diag.WriteBridgeInfo(raw)

	c.mu.Lock()
	c.info = info
	c.checkReadyLocked()
	c.mu.Unlock()

	if info.Config.Advanced.Output == OutputAttribute {
		c.logError("gateway output mode unsupported", "output", info.Config.Advanced.Output)
	}
	if info.Config.Advanced.LegacyAPI {
		c.logWarn("gateway legacy_api is deprecated, disable it in the gateway configuration")
	}
	if info.Config.Advanced.LegacyAvailabilityPayload {
		c.logWarn("gateway legacy_availability_payload is deprecated, disable it in the gateway configuration")
	}
	c.logDebug("gateway info",
		"version", info.Version,
		"permit_join", info.PermitJoin,
		"availability", info.Config.AvailabilityEnabled(),
	)
}

// BridgeDevices reconciles the registry against a device snapshot. Before
// Start completes its initial sweep the snapshot is only recorded.
func (c *Controller) BridgeDevices(devices []BridgeDevice, raw []byte) {
	c.diag.WriteBridgeDevices(raw)

	c.mu.Lock()
	c.devices = devices
	c.devicesSeen = true
	c.checkReadyLocked()
	if c.syncing {
		c.syncDevicesLocked(context.Background())
	}
	c.mu.Unlock()
}

// BridgeGroups reconciles the registry against a group snapshot. An empty
// snapshot after groups have been registered is ignored: the gateway
// publishes one transiently while rebuilding its group database.
func (c *Controller) BridgeGroups(groups []BridgeGroup, raw []byte) {
	c.diag.WriteBridgeGroups(raw)

	c.mu.Lock()
	if len(groups) == 0 && len(c.registry.GroupNames()) > 0 {
		c.logDebug("empty group snapshot ignored")
		c.groupsSeen = true
		c.checkReadyLocked()
		c.mu.Unlock()
		return
	}
	c.groups = groups
	c.groupsSeen = true
	c.checkReadyLocked()
	if c.syncing {
		c.syncGroupsLocked(context.Background())
	}
	c.mu.Unlock()
}

// syncDevicesLocked registers new devices, reconfigures known ones and
// removes devices that left the snapshot. Caller holds c.mu.
func (c *Controller) syncDevicesLocked(ctx context.Context) {
	inSnapshot := make(map[string]bool, len(c.devices))
	for _, dev := range c.devices {
		inSnapshot[dev.FriendlyName] = true

		var err error
		if c.registry.Has(dev.FriendlyName) {
			err = c.registry.UpdateDevice(ctx, dev)
		} else {
			err = c.registry.RegisterDevice(ctx, dev)
		}
		if err != nil {
			c.logError("device registration failed", "device", dev.FriendlyName, "error", err)
		}
	}

	for _, name := range c.registry.DeviceNames() {
		if !inSnapshot[name] {
			c.logInfo("device left snapshot, unregistering", "device", name)
			if err := c.registry.Unregister(ctx, name); err != nil {
				c.logError("unregister failed", "device", name, "error", err)
			}
		}
	}
}

// syncGroupsLocked mirrors syncDevicesLocked for groups. Caller holds c.mu.
func (c *Controller) syncGroupsLocked(ctx context.Context) {
	inSnapshot := make(map[string]bool, len(c.groups))
	for _, grp := range c.groups {
		inSnapshot[grp.FriendlyName] = true

		var err error
		if c.registry.Has(grp.FriendlyName) {
			err = c.registry.UpdateGroup(ctx, grp)
		} else {
			err = c.registry.RegisterGroup(ctx, grp)
		}
		if err != nil {
			c.logError("group registration failed", "group", grp.FriendlyName, "error", err)
		}
	}

	for _, name := range c.registry.GroupNames() {
		if !inSnapshot[name] {
			c.logInfo("group left snapshot, unregistering", "group", name)
			if err := c.registry.Unregister(ctx, name); err != nil {
				c.logError("unregister failed", "group", name, "error", err)
			}
		}
	}
}

// deviceByIEEE finds a device in the last snapshot by address.
func (c *Controller) deviceByIEEE(ieee string) (BridgeDevice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dev := range c.devices {
		if dev.IEEEAddress == ieee {
			return dev, true
		}
	}
	return BridgeDevice{}, false
}

// BridgeEvent handles live gateway events.
func (c *Controller) BridgeEvent(ev DeviceEvent) {
	ctx := context.Background()

	switch ev.Type {
	case EventDeviceJoined:
		c.logInfo("device joined, interview pending", "device", ev.Data.FriendlyName)

	case EventDeviceInterview:
		switch ev.Data.Status {
		case InterviewStarted:
			c.logInfo("device interview started", "device", ev.Data.FriendlyName)
		case InterviewSuccessful:
			if !ev.Data.Supported {
				c.logWarn("interviewed device is unsupported", "device", ev.Data.FriendlyName)
				return
			}
			if c.registry.Has(ev.Data.FriendlyName) {
				return
			}
			// Prefer the snapshot element when the gateway already
			// republished bridge/devices; the event carries no device class.
			dev, found := c.deviceByIEEE(ev.Data.IEEEAddress)
			if !found {
				dev = BridgeDevice{
					IEEEAddress:        ev.Data.IEEEAddress,
					FriendlyName:       ev.Data.FriendlyName,
					Type:               DeviceTypeEndDevice,
					Supported:          true,
					InterviewCompleted: true,
					Definition:         ev.Data.Definition,
				}
			}
			if err := c.registry.RegisterDevice(ctx, dev); err != nil {
				c.logError("interviewed device registration failed", "device", dev.FriendlyName, "error", err)
			}
		case InterviewFailed:
			c.logWarn("device interview failed", "device", ev.Data.FriendlyName)
		}

	case EventDeviceLeave:
		name := ev.Data.FriendlyName
		if name == "" {
			name = ev.Data.IEEEAddress
		}
		c.logInfo("device left the network", "device", name)
		if err := c.registry.Unregister(ctx, name); err != nil {
			c.logWarn("unregister after leave failed", "device", name, "error", err)
		}
		c.forgetEntity(name)

	case EventDeviceRename:
		c.handleRename(RenameResponse{
			Status: StatusOK,
			Data:   RenameResponseData{From: ev.Data.From, To: ev.Data.To},
		}, "device")

	case EventPermitJoin:
		c.PermitJoin(PermitJoinResponse{
			Status: StatusOK,
			Data: PermitJoinResponseData{
				Value:  ev.Data.Value,
				Device: ev.Data.Device,
				Time:   ev.Data.Time,
			},
		})

	case EventDeviceAnnounce, EventDeviceNetworkAddress:
		c.logDebug("gateway event", "type", ev.Type, "device", ev.Data.FriendlyName)

	default:
		c.logDebug("unhandled gateway event", "type", ev.Type)
	}
}

// PermitJoin mirrors a commissioning window change onto the routing
// devices' lock endpoints.
func (c *Controller) PermitJoin(resp PermitJoinResponse) {
	if resp.Status != StatusOK {
		c.logWarn("permit join request failed", "error", resp.Error)
		return
	}

	c.mu.Lock()
	if c.info != nil {
		c.info.PermitJoin = resp.Data.Value
	}
	c.mu.Unlock()

	c.logInfo("commissioning window changed",
		"open", resp.Data.Value,
		"device", resp.Data.Device,
		"time", resp.Data.Time,
	)
	c.registry.SetPermitJoin(resp.Data.Device, resp.Data.Value)
}

// DeviceRename re-registers a device under its new friendly name.
func (c *Controller) DeviceRename(resp RenameResponse) {
	c.handleRename(resp, "device")
}

// GroupRename re-registers a group under its new friendly name.
func (c *Controller) GroupRename(resp RenameResponse) {
	c.handleRename(resp, "group")
}

func (c *Controller) handleRename(resp RenameResponse, kind string) {
	if resp.Status != StatusOK {
		c.logWarn(kind+" rename failed", "error", resp.Error)
		return
	}

	c.logInfo(kind+" renamed", "from", resp.Data.From, "to", resp.Data.To)
	if err := c.registry.Rename(context.Background(), resp.Data.From, resp.Data.To); err != nil {
		c.logError(kind+" rename registration failed", "from", resp.Data.From, "error", err)
		return
	}

	c.mu.Lock()
	if rec, ok := c.lastPayload[resp.Data.From]; ok {
		c.lastPayload[resp.Data.To] = rec
		delete(c.lastPayload, resp.Data.From)
	}
	if online, ok := c.availability[resp.Data.From]; ok {
		c.availability[resp.Data.To] = online
		delete(c.availability, resp.Data.From)
	}
	c.mu.Unlock()
}

// DeviceRemove unregisters a removed device.
func (c *Controller) DeviceRemove(resp RemoveResponse) {
	c.handleRemove(resp, "device")
}

// GroupRemove unregisters a removed group.
func (c *Controller) GroupRemove(resp RemoveResponse) {
	c.handleRemove(resp, "group")
}

func (c *Controller) handleRemove(resp RemoveResponse, kind string) {
	if resp.Status != StatusOK {
		c.logWarn(kind+" removal failed", "error", resp.Error)
		return
	}

	c.logInfo(kind+" removed", "entity", resp.Data.ID)
	if err := c.registry.Unregister(context.Background(), resp.Data.ID); err != nil {
		c.logWarn("unregister after removal failed", "entity", resp.Data.ID, "error", err)
	}
	c.forgetEntity(resp.Data.ID)
}

// GroupAdd registers a newly created group. Membership arrives with the
// next groups snapshot.
func (c *Controller) GroupAdd(resp GroupResponse) {
	if resp.Status != StatusOK {
		c.logWarn("group creation failed", "error", resp.Error)
		return
	}

	c.logInfo("group created", "group", resp.Data.FriendlyName, "id", resp.Data.ID)
	grp := BridgeGroup{ID: resp.Data.ID, FriendlyName: resp.Data.FriendlyName}
	if err := c.registry.RegisterGroup(context.Background(), grp); err != nil {
		c.logError("group registration failed", "group", grp.FriendlyName, "error", err)
	}
}

// GroupMembers rebuilds the affected group entity: membership changes
// rewire the group's endpoints. The rebuild uses the last groups
// snapshot; the gateway republishes bridge/groups with the updated
// membership right after.
func (c *Controller) GroupMembers(resp GroupMembersResponse, added bool) {
	if resp.Status != StatusOK {
		c.logWarn("group membership change failed", "error", resp.Error)
		return
	}
	name := resp.Data.Group
	c.logInfo("group membership changed",
		"group", name,
		"device", resp.Data.Device,
		"added", added,
	)

	c.mu.Lock()
	var grp *BridgeGroup
	for i := range c.groups {
		if c.groups[i].FriendlyName == name {
			grp = &c.groups[i]
			break
		}
	}
	c.mu.Unlock()

	if grp == nil {
		c.logDebug("membership change for unknown group", "group", name)
		return
	}

	ctx := context.Background()
	if err := c.registry.Unregister(ctx, name); err != nil {
		c.logWarn("group rebuild unregister failed", "group", name, "error", err)
	}
	if err := c.registry.RegisterGroup(ctx, *grp); err != nil {
		c.logError("group rebuild failed", "group", name, "error", err)
	}
}

// NetworkMap persists a requested network map to the data directory.
func (c *Controller) NetworkMap(resp NetworkMapResponse) {
	if resp.Status != StatusOK {
		c.logWarn("network map request failed", "error", resp.Error)
		return
	}
	c.logInfo("network map received", "type", resp.Data.Type)
	c.diag.WriteNetworkMap(resp.Data.Type, resp.Data.Value)
}

// EntityMessage records and applies a state payload. Payloads for unknown
// entities are retained so a later registration replays them.
func (c *Controller) EntityMessage(name string, payload map[string]any, raw []byte) {
	c.diag.AppendPayload(name, raw)

	c.mu.Lock()
	c.lastPayload[name] = payloadRecord{payload: payload, raw: raw}
	c.mu.Unlock()

	if !c.registry.Has(name) {
		c.logDebug("payload for unknown entity retained", "entity", name)
		return
	}
	c.registry.ApplyPayload(name, payload)
}

// EntityAvailability records and applies an availability flag. Ignored
// when the gateway has availability reporting disabled, since the flags
// are then stale retained leftovers.
func (c *Controller) EntityAvailability(name string, online bool) {
	c.mu.Lock()
	enabled := c.info != nil && c.info.Config.AvailabilityEnabled()
	if enabled {
		c.availability[name] = online
	}
	c.mu.Unlock()

	if !enabled {
		c.logDebug("availability ignored, reporting disabled", "entity", name)
		return
	}
	if c.registry.Has(name) {
		c.registry.SetAvailability(name, online)
	}
}

// --- Configure phase -----------------------------------------------------

// configure publishes the get-refresh burst and schedules the retained
// state replay. Refresh publishes go through the deferred queue so the
// gateway is not flooded.
func (c *Controller) configure() {
	prefix := c.cfg.MQTT.Topic

	for _, name := range c.registry.Names() {
		topic := prefix + "/" + name + "/get"
		if c.registry.IsGroup(name) {
			payload := []byte(`{"state":""}`)
			c.diag.AppendPublish(topic, payload)
			c.mqtt.EnqueuePublish(topic, payload)
			continue
		}
		for _, prop := range c.registry.RefreshTargets(name) {
			payload, err := json.Marshal(map[string]string{prop: ""})
			if err != nil {
				continue
			}
			c.diag.AppendPublish(topic, payload)
			c.mqtt.EnqueuePublish(topic, payload)
		}
	}

	c.replayMu.Lock()
	c.replayTimer = time.AfterFunc(replayDelay, c.replay)
	c.replayMu.Unlock()

	c.logInfo("state refresh scheduled", "entities", len(c.registry.Names()))
}

// replay pushes the recorded availability and the last retained payload
// of every known entity through the registry. Attribute writes are
// change-detecting, so entities refreshed in the meantime see no churn.
func (c *Controller) replay() {
	c.mu.Lock()
	enabled := c.info != nil && c.info.Config.AvailabilityEnabled()
	availability := make(map[string]bool, len(c.availability))
	for k, v := range c.availability {
		availability[k] = v
	}
	payloads := make(map[string]payloadRecord, len(c.lastPayload))
	for k, v := range c.lastPayload {
		payloads[k] = v
	}
	c.mu.Unlock()

	replayed := 0
	for _, name := range c.registry.Names() {
		online := true
		if enabled {
			if v, ok := availability[name]; ok {
				online = v
			}
		}
		c.registry.SetAvailability(name, online)

		if rec, ok := payloads[name]; ok {
			c.registry.ApplyPayload(name, rec.payload)
			replayed++
		}
	}
	c.logInfo("retained state replayed", "payloads", replayed)
}

// entityOnline returns the recorded availability of an entity, defaulting
// to online. Caller must not hold c.mu.
func (c *Controller) entityOnline(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info != nil && c.info.Config.AvailabilityEnabled() {
		if v, ok := c.availability[name]; ok {
			return v
		}
	}
	return true
}

// forgetEntity drops the retained payload and availability records of a
// removed entity.
func (c *Controller) forgetEntity(name string) {
	c.mu.Lock()
	delete(c.lastPayload, name)
	delete(c.availability, name)
	c.mu.Unlock()
}

// --- Injection harness ---------------------------------------------------

// loadInjections feeds JSON fixtures through the normal frame path so a
// broker-less instance can exercise registration and the pipeline.
func (c *Controller) loadInjections() {
	if path := c.cfg.Inject.Devices; path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			c.logWarn("inject devices unreadable", "path", path, "error", err)
		} else {
			var devices []BridgeDevice
			if err := json.Unmarshal(raw, &devices); err != nil {
				c.logWarn("inject devices unparseable", "path", path, "error", err)
			} else {
				c.logInfo("injecting device snapshot", "devices", len(devices))
				c.BridgeState(true)
				c.BridgeInfo(&BridgeInfo{Version: "injected"}, []byte(`{"version":"injected"}`))
				c.BridgeDevices(devices, raw)
				c.BridgeGroups(nil, []byte("[]"))
			}
		}
	}

	if path := c.cfg.Inject.Payloads; path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			c.logWarn("inject payloads unreadable", "path", path, "error", err)
			return
		}
		var payloads map[string]json.RawMessage
		if err := json.Unmarshal(raw, &payloads); err != nil {
			c.logWarn("inject payloads unparseable", "path", path, "error", err)
			return
		}
		c.logInfo("injecting payloads", "entities", len(payloads))
		for name, entry := range payloads {
			m, err := ParsePayload(entry)
			if err != nil {
				c.logWarn("injected payload unparseable", "entity", name, "error", err)
				continue
			}
			c.EntityMessage(name, m, entry)
		}
	}
}

// --- Logging helpers -----------------------------------------------------

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Controller) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
