package entity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/zigbridge/zigbridge-core/internal/bridge"
	"github.com/zigbridge/zigbridge-core/internal/fabric"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
)

// mockPublisher records publishes.
type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

type publishCall struct {
	topic   string
	payload string
}

func (m *mockPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, publishCall{topic, string(payload)})
	return nil
}

func newTestRegistry(t *testing.T, filters config.FilterConfig) (*Registry, *fabric.InMemoryHost, *mockPublisher) {
	t.Helper()
	host := fabric.NewInMemoryHost("2.0.0")
	pub := &mockPublisher{}
	r, err := NewRegistry(Options{
		Config: &config.Config{
			MQTT:    config.MQTTConfig{Topic: "zigbee2mqtt"},
			Filters: filters,
		},
		Host:      host,
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r, host, pub
}

func dimmableLamp(name string) bridge.BridgeDevice {
	return bridge.BridgeDevice{
		IEEEAddress:        "0x" + name,
		FriendlyName:       name,
		Type:               bridge.DeviceTypeEndDevice,
		Supported:          true,
		InterviewCompleted: true,
		Definition: &bridge.Definition{
			Model:  "LED1545G12",
			Vendor: "IKEA",
			Exposes: []bridge.Expose{{
				Type: "light",
				Features: []bridge.Expose{
					{Type: "binary", Name: "state", Property: "state", Access: 7},
					{Type: "numeric", Name: "brightness", Property: "brightness", Access: 7},
				},
			}},
		},
	}
}

func routerPlug(name string) bridge.BridgeDevice {
	dev := dimmableLamp(name)
	dev.Type = bridge.DeviceTypeRouter
	return dev
}

func TestRegistry_IncompatibleHost(t *testing.T) {
	_, err := NewRegistry(Options{
		Config:    &config.Config{},
		Host:      fabric.NewInMemoryHost("3.0.0"),
		Publisher: &mockPublisher{},
	})
	if !errors.Is(err, fabric.ErrIncompatibleHost) {
		t.Errorf("NewRegistry() error = %v, want ErrIncompatibleHost", err)
	}
}

func TestRegistry_RegisterDevice(t *testing.T) {
	r, host, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	if !r.Has("Lamp1") {
		t.Fatal("Lamp1 not registered")
	}
	e, _ := r.Get("Lamp1")
	if len(e.DeviceTypes()) != 1 || e.DeviceTypes()[0] != fabric.DeviceTypeDimmableLight {
		t.Errorf("types = %v, want [DimmableLight]", e.DeviceTypes())
	}
	if host.EndpointCount() != 1 {
		t.Errorf("host endpoints = %d, want 1", host.EndpointCount())
	}
	if selected := host.SelectedDevices(); len(selected) != 1 || selected[0] != "Lamp1" {
		t.Errorf("select hints = %v, want [Lamp1]", selected)
	}
	if got := r.RefreshTargets("Lamp1"); len(got) != 2 || got[0] != "state" || got[1] != "brightness" {
		t.Errorf("RefreshTargets = %v, want [state brightness]", got)
	}
}

func TestRegistry_SkipsUnusableDevices(t *testing.T) {
	r, host, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	unsupported := dimmableLamp("Mystery")
	unsupported.Supported = false

	uninterviewed := dimmableLamp("Fresh")
	uninterviewed.InterviewCompleted = false

	disabled := dimmableLamp("Parked")
	disabled.Disabled = true

	for _, dev := range []bridge.BridgeDevice{unsupported, uninterviewed, disabled} {
		if err := r.RegisterDevice(ctx, dev); err != nil {
			t.Errorf("RegisterDevice(%s) error = %v", dev.FriendlyName, err)
		}
	}

	if len(r.Names()) != 0 || host.EndpointCount() != 0 {
		t.Errorf("registered %v, want none", r.Names())
	}
}

func TestRegistry_FilteredDevice(t *testing.T) {
	r, _, _ := newTestRegistry(t, config.FilterConfig{BlackList: []string{"Lamp1"}})

	if err := r.RegisterDevice(context.Background(), dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if r.Has("Lamp1") {
		t.Error("black-listed device registered anyway")
	}
}

func TestRegistry_RouterGetsLockMirror(t *testing.T) {
	r, _, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, routerPlug("Plug1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	e, _ := r.Get("Plug1")
	if !containsType(e.DeviceTypes(), fabric.DeviceTypeDoorLock) {
		t.Fatalf("router types = %v, want DoorLock mirror", e.DeviceTypes())
	}

	var events []fabric.Event
	e.Endpoint().SetOnEvent(func(ev fabric.Event) { events = append(events, ev) })

	r.SetPermitJoin("", true)
	if v, _ := e.Endpoint().Attribute(fabric.AttrLockState); v != fabric.LockStateUnlocked {
		t.Errorf("lockState = %v, want unlocked while window open", v)
	}
	r.SetPermitJoin("", false)
	if v, _ := e.Endpoint().Attribute(fabric.AttrLockState); v != fabric.LockStateLocked {
		t.Errorf("lockState = %v, want locked after window close", v)
	}

	if len(events) != 2 || events[0].Type != fabric.EventLockOperation {
		t.Errorf("events = %v, want two lock operations", events)
	}
	if events[0].Fields["operation"] != "Unlock" || events[1].Fields["operation"] != "Lock" {
		t.Errorf("operations = %v, want Unlock then Lock", events)
	}
}

func TestRegistry_CoordinatorLockMirror(t *testing.T) {
	r, host, pub := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	// Coordinator snapshots carry no definition and are not marked
	// supported; it still gets a lock endpoint for the window.
	coordinator := bridge.BridgeDevice{
		IEEEAddress:  "0x00124b0021cf1234",
		FriendlyName: "Coordinator",
		Type:         bridge.DeviceTypeCoordinator,
	}
	if err := r.RegisterDevice(ctx, coordinator); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	e, ok := r.Get("Coordinator")
	if !ok {
		t.Fatal("coordinator not registered")
	}
	if len(e.DeviceTypes()) != 1 || e.DeviceTypes()[0] != fabric.DeviceTypeDoorLock {
		t.Fatalf("coordinator types = %v, want [DoorLock]", e.DeviceTypes())
	}
	if host.EndpointCount() != 1 {
		t.Errorf("host endpoints = %d, want 1", host.EndpointCount())
	}

	var events []fabric.Event
	e.Endpoint().SetOnEvent(func(ev fabric.Event) { events = append(events, ev) })

	r.SetPermitJoin("Coordinator", true)
	if v, _ := e.Endpoint().Attribute(fabric.AttrLockState); v != fabric.LockStateUnlocked {
		t.Errorf("lockState = %v, want unlocked while window open", v)
	}
	r.SetPermitJoin("Coordinator", false)
	if v, _ := e.Endpoint().Attribute(fabric.AttrLockState); v != fabric.LockStateLocked {
		t.Errorf("lockState = %v, want locked after window close", v)
	}
	if len(events) != 2 || events[0].Fields["operation"] != "Unlock" || events[1].Fields["operation"] != "Lock" {
		t.Errorf("events = %v, want Unlock then Lock", events)
	}

	// The lock drives the window rather than a real lock.
	if err := e.Endpoint().Dispatch(fabric.Command{Name: fabric.CmdUnlockDoor}); err != nil {
		t.Fatalf("Dispatch(unlock) error = %v", err)
	}
	last := pub.calls[len(pub.calls)-1]
	if last.topic != "zigbee2mqtt/bridge/request/permit_join" || last.payload != `{"value":true}` {
		t.Errorf("unlock published %s %s", last.topic, last.payload)
	}

	// A refreshed snapshot keeps the endpoint in place.
	if err := r.UpdateDevice(ctx, coordinator); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	e2, _ := r.Get("Coordinator")
	if e.Endpoint() != e2.Endpoint() {
		t.Error("coordinator update should keep its endpoint")
	}
}

func TestRegistry_PermitJoinTargetsNamedDevice(t *testing.T) {
	r, _, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, routerPlug("Plug1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if err := r.RegisterDevice(ctx, routerPlug("Plug2")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	r.SetPermitJoin("Plug2", true)

	e1, _ := r.Get("Plug1")
	e2, _ := r.Get("Plug2")
	if _, ok := e1.Endpoint().Attribute(fabric.AttrLockState); ok {
		t.Error("Plug1 touched by a window scoped to Plug2")
	}
	if v, _ := e2.Endpoint().Attribute(fabric.AttrLockState); v != fabric.LockStateUnlocked {
		t.Errorf("Plug2 lockState = %v, want unlocked", v)
	}
}

func TestRegistry_GroupsAndScenes(t *testing.T) {
	r, _, pub := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	grp := bridge.BridgeGroup{
		ID:           3,
		FriendlyName: "Living room",
		Scenes:       []bridge.GroupScene{{ID: 1, Name: "Movie night"}},
	}
	if err := r.RegisterGroup(ctx, grp); err != nil {
		t.Fatalf("RegisterGroup() error = %v", err)
	}

	if !r.IsGroup("Living room") {
		t.Fatal("group not registered as group")
	}
	e, _ := r.Get("Living room")
	children := e.Endpoint().Children()
	if len(children) != 1 || children[0].Name() != "Movie night" {
		t.Fatalf("scene children = %v, want [Movie night]", children)
	}

	if err := children[0].Dispatch(fabric.Command{Name: fabric.CmdOn}); err != nil {
		t.Fatalf("scene dispatch error = %v", err)
	}
	last := pub.calls[len(pub.calls)-1]
	if last.topic != "zigbee2mqtt/Living room/set" || last.payload != `{"scene_recall":1}` {
		t.Errorf("scene recall published %s %s", last.topic, last.payload)
	}
}

func TestRegistry_Rename(t *testing.T) {
	r, host, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if err := r.Rename(ctx, "Lamp1", "Desk lamp"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	if r.Has("Lamp1") || !r.Has("Desk lamp") {
		t.Error("rename did not move the entity")
	}
	if host.EndpointCount() != 1 {
		t.Errorf("host endpoints = %d, want 1", host.EndpointCount())
	}

	if err := r.Rename(ctx, "Ghost", "Anything"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("renaming unknown entity = %v, want ErrEntityNotFound", err)
	}
}

func TestRegistry_UpdateDevice(t *testing.T) {
	r, _, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	e1, _ := r.Get("Lamp1")

	// Same shape: reconfigured in place, endpoint kept.
	if err := r.UpdateDevice(ctx, dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	e2, _ := r.Get("Lamp1")
	if e1.Endpoint() != e2.Endpoint() {
		t.Error("unchanged device should keep its endpoint")
	}

	// Changed shape: re-registered with new types.
	colorLamp := dimmableLamp("Lamp1")
	colorLamp.Definition.Exposes[0].Features = append(colorLamp.Definition.Exposes[0].Features,
		bridge.Expose{Type: "numeric", Name: "color_temp", Property: "color_temp", Access: 7},
	)
	if err := r.UpdateDevice(ctx, colorLamp); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	e3, _ := r.Get("Lamp1")
	if e3.DeviceTypes()[0] != fabric.DeviceTypeColorTemperatureLight {
		t.Errorf("types after update = %v, want ColorTemperatureLight", e3.DeviceTypes())
	}
}

func TestRegistry_ApplyPayloadAndAvailability(t *testing.T) {
	r, _, _ := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	e, _ := r.Get("Lamp1")

	r.ApplyPayload("Lamp1", map[string]any{"state": "ON", "brightness": float64(200)})
	if v, _ := e.Endpoint().Attribute(fabric.AttrOnOff); v != true {
		t.Errorf("onOff = %v, want true", v)
	}
	if v, _ := e.Endpoint().Attribute(fabric.AttrCurrentLevel); v != int64(200) {
		t.Errorf("currentLevel = %v, want 200", v)
	}

	r.SetAvailability("Lamp1", true)
	if !e.Endpoint().Reachable() {
		t.Error("endpoint should be reachable")
	}
	r.SetAvailability("Lamp1", false)
	if e.Endpoint().Reachable() {
		t.Error("endpoint should be unreachable")
	}
}

func TestRegistry_CommandPublishes(t *testing.T) {
	r, _, pub := newTestRegistry(t, config.FilterConfig{})
	ctx := context.Background()

	if err := r.RegisterDevice(ctx, dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	e, _ := r.Get("Lamp1")

	if err := e.Endpoint().Dispatch(fabric.Command{
		Name:   fabric.CmdMoveToLevel,
		Fields: map[string]any{"level": 123},
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	last := pub.calls[len(pub.calls)-1]
	if last.topic != "zigbee2mqtt/Lamp1/set" || last.payload != `{"brightness":123}` {
		t.Errorf("published %s %s, want brightness set", last.topic, last.payload)
	}
}

func TestRegistry_EndpointPostfix(t *testing.T) {
	host := fabric.NewInMemoryHost("2.0.0")
	r, err := NewRegistry(Options{
		Config: &config.Config{
			MQTT:      config.MQTTConfig{Topic: "zigbee2mqtt"},
			Endpoints: config.EndpointConfig{Postfix: "V2"},
		},
		Host:      host,
		Publisher: &mockPublisher{},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := r.RegisterDevice(context.Background(), dimmableLamp("Lamp1")); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	e, _ := r.Get("Lamp1")
	if !strings.HasSuffix(e.Endpoint().Name(), "-V2") {
		t.Errorf("endpoint name = %q, want -V2 postfix", e.Endpoint().Name())
	}
}
