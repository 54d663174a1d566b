package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/mqtt"
)

// mockMQTT records publishes and subscriptions.
type mockMQTT struct {
	mu         sync.Mutex
	published  []publishCall
	queued     []publishCall
	subscribed []string
}

type publishCall struct {
	topic   string
	payload string
}

func (m *mockMQTT) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishCall{topic, string(payload)})
	return nil
}

func (m *mockMQTT) EnqueuePublish(topic string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, publishCall{topic, string(payload)})
}

func (m *mockMQTT) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, topic)
	return nil
}

func (m *mockMQTT) Unsubscribe(string) error { return nil }

// mockRegistry tracks registration traffic.
type mockRegistry struct {
	mu           sync.Mutex
	order        []string
	groups       map[string]bool
	registers    map[string]int
	updates      map[string]int
	unregistered []string
	applied      map[string]int
	availability map[string][]bool
	permitJoins  []permitJoinCall
	refresh      map[string][]string
}

type permitJoinCall struct {
	device string
	permit bool
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		groups:       make(map[string]bool),
		registers:    make(map[string]int),
		updates:      make(map[string]int),
		applied:      make(map[string]int),
		availability: make(map[string][]bool),
		refresh:      make(map[string][]string),
	}
}

func (r *mockRegistry) RegisterDevice(_ context.Context, dev BridgeDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registers[dev.FriendlyName]++
	r.order = append(r.order, dev.FriendlyName)
	return nil
}

func (r *mockRegistry) RegisterGroup(_ context.Context, grp BridgeGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registers[grp.FriendlyName]++
	r.groups[grp.FriendlyName] = true
	r.order = append(r.order, grp.FriendlyName)
	return nil
}

func (r *mockRegistry) UpdateDevice(_ context.Context, dev BridgeDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[dev.FriendlyName]++
	return nil
}

func (r *mockRegistry) UpdateGroup(_ context.Context, grp BridgeGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[grp.FriendlyName]++
	return nil
}

func (r *mockRegistry) Unregister(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregistered = append(r.unregistered, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.groups, name)
	return nil
}

func (r *mockRegistry) Rename(ctx context.Context, from, to string) error {
	r.mu.Lock()
	for i, n := range r.order {
		if n == from {
			r.order[i] = to
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *mockRegistry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.order {
		if n == name {
			return true
		}
	}
	return false
}

func (r *mockRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *mockRegistry) DeviceNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.order {
		if !r.groups[n] {
			out = append(out, n)
		}
	}
	return out
}

func (r *mockRegistry) GroupNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.order {
		if r.groups[n] {
			out = append(out, n)
		}
	}
	return out
}

func (r *mockRegistry) IsGroup(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[name]
}

func (r *mockRegistry) ApplyPayload(name string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied[name]++
}

func (r *mockRegistry) SetAvailability(name string, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability[name] = append(r.availability[name], online)
}

func (r *mockRegistry) SetPermitJoin(device string, permit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permitJoins = append(r.permitJoins, permitJoinCall{device, permit})
}

func (r *mockRegistry) RefreshTargets(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refresh[name]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		MQTT: config.MQTTConfig{
			Host:            "mqtt://localhost",
			Port:            1883,
			ProtocolVersion: 4,
			Topic:           "zigbee2mqtt",
			ConnectTimeout:  1,
		},
		DataDir: t.TempDir(),
	}
}

func newTestController(t *testing.T) (*Controller, *mockMQTT, *mockRegistry) {
	t.Helper()
	client := &mockMQTT{}
	registry := newMockRegistry()
	c, err := NewController(Options{
		Config:   testConfig(t),
		MQTT:     client,
		Registry: registry,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c, client, registry
}

func feedRetained(c *Controller, devices []BridgeDevice, groups []BridgeGroup) {
	c.BridgeState(true)
	c.BridgeInfo(&BridgeInfo{
		Version: "1.33.0",
		Config: BridgeConfigInfo{
			Advanced:     AdvancedConfigInfo{Output: OutputJSON},
			Availability: []byte("true"),
		},
	}, []byte("{}"))
	c.BridgeDevices(devices, []byte("[]"))
	c.BridgeGroups(groups, []byte("[]"))
}

func lampDevice(name string) BridgeDevice {
	return BridgeDevice{
		IEEEAddress:        "0x" + name,
		FriendlyName:       name,
		Type:               DeviceTypeRouter,
		Supported:          true,
		InterviewCompleted: true,
		Definition:         &Definition{Model: "LED1545G12", Vendor: "IKEA"},
	}
}

func TestController_StartRegistersSnapshots(t *testing.T) {
	c, client, registry := newTestController(t)
	registry.refresh["Lamp1"] = []string{"state", "brightness"}

	feedRetained(c,
		[]BridgeDevice{lampDevice("Lamp1")},
		[]BridgeGroup{{ID: 1, FriendlyName: "Living room"}},
	)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	if len(client.subscribed) != 1 || client.subscribed[0] != "zigbee2mqtt/#" {
		t.Errorf("subscribed = %v, want [zigbee2mqtt/#]", client.subscribed)
	}
	if registry.registers["Lamp1"] != 1 || registry.registers["Living room"] != 1 {
		t.Errorf("registers = %v, want each once", registry.registers)
	}

	// Refresh burst: one get per gettable device property, one state get
	// for the group.
	want := []publishCall{
		{"zigbee2mqtt/Lamp1/get", `{"state":""}`},
		{"zigbee2mqtt/Lamp1/get", `{"brightness":""}`},
		{"zigbee2mqtt/Living room/get", `{"state":""}`},
	}
	if len(client.queued) != len(want) {
		t.Fatalf("queued = %v, want %v", client.queued, want)
	}
	for i, q := range client.queued {
		if q != want[i] {
			t.Errorf("queued[%d] = %v, want %v", i, q, want[i])
		}
	}
}

func TestController_StartDeadline(t *testing.T) {
	c, _, _ := newTestController(t)

	// Only two of the retained topics arrive.
	c.BridgeState(true)
	c.BridgeDevices(nil, []byte("[]"))

	err := c.Start(context.Background())
	if !errors.Is(err, ErrBridgeNotReady) {
		t.Fatalf("Start() error = %v, want ErrBridgeNotReady", err)
	}
	if !strings.Contains(err.Error(), "bridge/info") {
		t.Errorf("error %q does not name bridge/info", err)
	}
	if strings.Contains(err.Error(), "bridge/groups") {
		t.Errorf("error %q names bridge/groups, but one snapshot suffices", err)
	}
}

func TestController_StartWithSingleSnapshot(t *testing.T) {
	// state + info + one of the two entity snapshots is enough.
	for _, tt := range []struct {
		name    string
		devices bool
	}{
		{"devices only", true},
		{"groups only", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, _, registry := newTestController(t)

			c.BridgeState(true)
			c.BridgeInfo(&BridgeInfo{
				Config: BridgeConfigInfo{
					Advanced:     AdvancedConfigInfo{Output: OutputJSON},
					Availability: []byte("true"),
				},
			}, []byte("{}"))
			if tt.devices {
				c.BridgeDevices([]BridgeDevice{lampDevice("Lamp1")}, []byte("[]"))
			} else {
				c.BridgeGroups([]BridgeGroup{{ID: 1, FriendlyName: "Living room"}}, []byte("[]"))
			}

			if err := c.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer c.Stop(context.Background())

			if len(registry.order) != 1 {
				t.Errorf("registered = %v, want one entity", registry.order)
			}
		})
	}
}

func TestController_StartOfflineBridge(t *testing.T) {
	c, _, registry := newTestController(t)

	c.BridgeState(false)
	c.BridgeInfo(&BridgeInfo{}, []byte("{}"))
	c.BridgeDevices([]BridgeDevice{lampDevice("Lamp1")}, []byte("[]"))
	c.BridgeGroups(nil, []byte("[]"))

	// An offline gateway is not fatal; entities start unreachable.
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	if registry.registers["Lamp1"] != 1 {
		t.Errorf("Lamp1 registered %d times, want 1", registry.registers["Lamp1"])
	}
	avail := registry.availability["Lamp1"]
	if len(avail) == 0 || avail[len(avail)-1] {
		t.Errorf("availability history = %v, want trailing false", avail)
	}
}

func TestController_StartUnsupportedOutput(t *testing.T) {
	c, _, registry := newTestController(t)

	c.BridgeState(true)
	c.BridgeInfo(&BridgeInfo{
		Config: BridgeConfigInfo{Advanced: AdvancedConfigInfo{Output: OutputAttribute}},
	}, []byte("{}"))
	c.BridgeDevices([]BridgeDevice{lampDevice("Lamp1")}, []byte("[]"))
	c.BridgeGroups(nil, []byte("[]"))

	// The unsupported output mode is an error log, not a startup failure.
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	if registry.registers["Lamp1"] != 1 {
		t.Errorf("Lamp1 registered %d times, want 1", registry.registers["Lamp1"])
	}
}

func TestController_SnapshotReconciliation(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1"), lampDevice("Lamp2")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	// Second snapshot: Lamp2 gone, Lamp3 new, Lamp1 unchanged.
	c.BridgeDevices([]BridgeDevice{lampDevice("Lamp1"), lampDevice("Lamp3")}, []byte("[]"))

	if registry.registers["Lamp1"] != 1 {
		t.Errorf("Lamp1 registered %d times, want 1", registry.registers["Lamp1"])
	}
	if registry.updates["Lamp1"] != 1 {
		t.Errorf("Lamp1 updated %d times, want 1", registry.updates["Lamp1"])
	}
	if registry.registers["Lamp3"] != 1 {
		t.Errorf("Lamp3 registered %d times, want 1", registry.registers["Lamp3"])
	}
	if len(registry.unregistered) != 1 || registry.unregistered[0] != "Lamp2" {
		t.Errorf("unregistered = %v, want [Lamp2]", registry.unregistered)
	}
}

func TestController_EmptyGroupSnapshotIgnored(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, nil, []BridgeGroup{{ID: 1, FriendlyName: "Living room"}})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.BridgeGroups(nil, []byte("[]"))

	if len(registry.unregistered) != 0 {
		t.Errorf("empty snapshot unregistered %v, want none", registry.unregistered)
	}
	if !registry.Has("Living room") {
		t.Error("group must survive an empty snapshot")
	}
}

func TestController_UnknownPayloadRetainedUntilReplay(t *testing.T) {
	c, _, registry := newTestController(t)

	// Payload arrives before any registration.
	c.EntityMessage("Lamp1", map[string]any{"state": "ON"}, []byte(`{"state":"ON"}`))
	if registry.applied["Lamp1"] != 0 {
		t.Fatal("payload for unknown entity must not be applied")
	}

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.replay()

	if registry.applied["Lamp1"] != 1 {
		t.Errorf("Lamp1 applied %d times after replay, want 1", registry.applied["Lamp1"])
	}
	avail := registry.availability["Lamp1"]
	if len(avail) == 0 || !avail[len(avail)-1] {
		t.Errorf("replay availability = %v, want trailing online", avail)
	}
}

func TestController_AvailabilityGating(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.EntityAvailability("Lamp1", false)
	if got := registry.availability["Lamp1"]; len(got) != 1 || got[0] {
		t.Errorf("availability = %v, want [false]", got)
	}

	// With reporting disabled the flags are stale retained leftovers.
	c.mu.Lock()
	c.info.Config.Availability = []byte("false")
	c.mu.Unlock()

	c.EntityAvailability("Lamp1", true)
	if got := registry.availability["Lamp1"]; len(got) != 1 {
		t.Errorf("gated availability applied anyway: %v", got)
	}
}

func TestController_BridgeOfflineMarksEntitiesUnreachable(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.BridgeState(false)
	got := registry.availability["Lamp1"]
	if len(got) == 0 || got[len(got)-1] {
		t.Errorf("availability = %v, want trailing offline", got)
	}

	c.BridgeState(true)
	got = registry.availability["Lamp1"]
	if len(got) < 2 || !got[len(got)-1] {
		t.Errorf("availability = %v, want trailing online after recovery", got)
	}
}

func TestController_PermitJoinMirrored(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.PermitJoin(PermitJoinResponse{
		Status: StatusOK,
		Data:   PermitJoinResponseData{Value: true, Time: 254},
	})
	c.PermitJoin(PermitJoinResponse{
		Status: StatusError,
		Error:  "denied",
	})

	if len(registry.permitJoins) != 1 {
		t.Fatalf("permit joins = %v, want one", registry.permitJoins)
	}
	if !registry.permitJoins[0].permit || registry.permitJoins[0].device != "" {
		t.Errorf("unexpected permit join call: %+v", registry.permitJoins[0])
	}
}

func TestController_DeviceEvents(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.BridgeEvent(DeviceEvent{
		Type: EventDeviceInterview,
		Data: DeviceEventData{
			FriendlyName: "NewSensor",
			IEEEAddress:  "0xabc",
			Status:       InterviewSuccessful,
			Supported:    true,
		},
	})
	if registry.registers["NewSensor"] != 1 {
		t.Errorf("NewSensor registered %d times, want 1", registry.registers["NewSensor"])
	}

	c.BridgeEvent(DeviceEvent{
		Type: EventDeviceLeave,
		Data: DeviceEventData{FriendlyName: "Lamp1"},
	})
	if len(registry.unregistered) != 1 || registry.unregistered[0] != "Lamp1" {
		t.Errorf("unregistered = %v, want [Lamp1]", registry.unregistered)
	}
}

func TestController_Rename(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, []BridgeDevice{lampDevice("Lamp1")}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.EntityMessage("Lamp1", map[string]any{"state": "ON"}, []byte(`{"state":"ON"}`))
	c.DeviceRename(RenameResponse{
		Status: StatusOK,
		Data:   RenameResponseData{From: "Lamp1", To: "Desk lamp"},
	})

	if !registry.Has("Desk lamp") || registry.Has("Lamp1") {
		t.Error("rename did not move the registration")
	}

	c.mu.Lock()
	_, oldKept := c.lastPayload["Lamp1"]
	_, newKept := c.lastPayload["Desk lamp"]
	c.mu.Unlock()
	if oldKept || !newKept {
		t.Error("retained payload did not follow the rename")
	}
}

func TestController_GroupMembershipRebuild(t *testing.T) {
	c, _, registry := newTestController(t)

	feedRetained(c, nil, []BridgeGroup{{ID: 1, FriendlyName: "Living room"}})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop(context.Background())

	c.GroupMembers(GroupMembersResponse{
		Status: StatusOK,
		Data:   GroupMembersResponseData{Group: "Living room", Device: "Lamp1"},
	}, true)

	if len(registry.unregistered) != 1 || registry.unregistered[0] != "Living room" {
		t.Errorf("unregistered = %v, want [Living room]", registry.unregistered)
	}
	if registry.registers["Living room"] != 2 {
		t.Errorf("group registered %d times, want 2", registry.registers["Living room"])
	}

	// Unknown groups are left alone.
	c.GroupMembers(GroupMembersResponse{
		Status: StatusOK,
		Data:   GroupMembersResponseData{Group: "Hallway", Device: "Lamp1"},
	}, false)
	if len(registry.unregistered) != 1 {
		t.Errorf("unregistered = %v after unknown group", registry.unregistered)
	}
}
