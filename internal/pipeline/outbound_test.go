package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/zigbridge/zigbridge-core/internal/fabric"
)

// mockPublisher records publishes.
type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

type publishCall struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, publishCall{topic, string(payload), qos, retained})
	return nil
}

func newTestHandler(t *testing.T, router bool) (*fabric.Endpoint, *mockPublisher) {
	t.Helper()
	pub := &mockPublisher{}
	ep := fabric.NewEndpoint("Lamp1", fabric.DeviceTypeExtendedColorLight)
	ep.SetCommandHandler(CommandHandler(ep, OutboundOptions{
		Prefix:    "zigbee2mqtt",
		Entity:    "Lamp1",
		Router:    router,
		Publisher: pub,
	}))
	return ep, pub
}

func (m *mockPublisher) last(t *testing.T) publishCall {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		t.Fatal("no publish recorded")
	}
	return m.calls[len(m.calls)-1]
}

func TestCommandHandler_SetPayloads(t *testing.T) {
	tests := []struct {
		name        string
		cmd         fabric.Command
		wantTopic   string
		wantPayload string
	}{
		{
			name:        "on",
			cmd:         fabric.Command{Name: fabric.CmdOn},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"state":"ON"}`,
		},
		{
			name:        "off",
			cmd:         fabric.Command{Name: fabric.CmdOff},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"state":"OFF"}`,
		},
		{
			name:        "level",
			cmd:         fabric.Command{Name: fabric.CmdMoveToLevel, Fields: map[string]any{"level": 123}},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"brightness":123}`,
		},
		{
			name:        "level with on",
			cmd:         fabric.Command{Name: fabric.CmdMoveToLevelWithOnOff, Fields: map[string]any{"level": 123}},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"brightness":123,"state":"ON"}`,
		},
		{
			name:        "level with off at zero",
			cmd:         fabric.Command{Name: fabric.CmdMoveToLevelWithOnOff, Fields: map[string]any{"level": 0}},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"brightness":0,"state":"OFF"}`,
		},
		{
			name:        "color temperature",
			cmd:         fabric.Command{Name: fabric.CmdMoveToColorTemperature, Fields: map[string]any{"colorTemperatureMireds": 370}},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"color_temp":370}`,
		},
		{
			name:        "open",
			cmd:         fabric.Command{Name: fabric.CmdUpOrOpen},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"state":"OPEN"}`,
		},
		{
			name:        "lift percentage",
			cmd:         fabric.Command{Name: fabric.CmdGoToLiftPercentage, Fields: map[string]any{"liftPercent100thsValue": 7500}},
			wantTopic:   "zigbee2mqtt/Lamp1/set",
			wantPayload: `{"position":75}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, pub := newTestHandler(t, false)
			if err := ep.Dispatch(tt.cmd); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			got := pub.last(t)
			if got.topic != tt.wantTopic || got.payload != tt.wantPayload {
				t.Errorf("published %s %s, want %s %s", got.topic, got.payload, tt.wantTopic, tt.wantPayload)
			}
			if got.qos != 2 || got.retained {
				t.Errorf("qos/retained = %d/%v, want 2/false", got.qos, got.retained)
			}
		})
	}
}

func TestCommandHandler_ColorUsesCurrentComponents(t *testing.T) {
	ep, pub := newTestHandler(t, false)
	ep.SetAttribute(fabric.AttrCurrentSaturation, int64(254))

	// Hue-only move reuses the stored saturation, producing a saturated
	// colour instead of grey.
	if err := ep.Dispatch(fabric.Command{
		Name:   fabric.CmdMoveToHue,
		Fields: map[string]any{"hue": 0},
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	got := pub.last(t)
	if got.payload != `{"color":{"b":0,"g":0,"r":255}}` {
		t.Errorf("payload = %s, want saturated red", got.payload)
	}
}

func TestCommandHandler_RouterLockDrivesPermitJoin(t *testing.T) {
	ep, pub := newTestHandler(t, true)

	if err := ep.Dispatch(fabric.Command{Name: fabric.CmdUnlockDoor}); err != nil {
		t.Fatalf("Dispatch(unlock) error = %v", err)
	}
	got := pub.last(t)
	if got.topic != "zigbee2mqtt/bridge/request/permit_join" || got.payload != `{"value":true}` {
		t.Errorf("unlock published %s %s", got.topic, got.payload)
	}

	if err := ep.Dispatch(fabric.Command{Name: fabric.CmdLockDoor}); err != nil {
		t.Fatalf("Dispatch(lock) error = %v", err)
	}
	got = pub.last(t)
	if got.topic != "zigbee2mqtt/bridge/request/permit_join" || got.payload != `{"value":false}` {
		t.Errorf("lock published %s %s", got.topic, got.payload)
	}
}

func TestCommandHandler_RealLock(t *testing.T) {
	ep, pub := newTestHandler(t, false)

	if err := ep.Dispatch(fabric.Command{Name: fabric.CmdLockDoor}); err != nil {
		t.Fatalf("Dispatch(lock) error = %v", err)
	}
	got := pub.last(t)
	if got.topic != "zigbee2mqtt/Lamp1/set" || got.payload != `{"state":"LOCK"}` {
		t.Errorf("lock published %s %s", got.topic, got.payload)
	}
}

func TestCommandHandler_SetpointDelta(t *testing.T) {
	ep, pub := newTestHandler(t, false)
	ep.SetAttribute(fabric.AttrOccupiedHeatingSetpoint, int64(2000))

	// +15 tenths of a degree on a 20.00 degree setpoint.
	if err := ep.Dispatch(fabric.Command{
		Name:   fabric.CmdSetpointRaiseLower,
		Fields: map[string]any{"amount": 15},
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	got := pub.last(t)
	if got.payload != `{"current_heating_setpoint":21.5}` {
		t.Errorf("payload = %s, want 21.5 degrees", got.payload)
	}
}

func TestCommandHandler_Errors(t *testing.T) {
	ep, _ := newTestHandler(t, false)

	err := ep.Dispatch(fabric.Command{Name: fabric.CmdMoveToLevel})
	if !errors.Is(err, ErrMissingCommandField) {
		t.Errorf("missing field error = %v, want ErrMissingCommandField", err)
	}

	err = ep.Dispatch(fabric.Command{Name: "warpDrive"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Errorf("unknown command error = %v, want ErrUnsupportedCommand", err)
	}
}
