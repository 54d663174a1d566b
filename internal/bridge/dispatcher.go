package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Sink receives typed frames classified by the Dispatcher. The Controller
// is the production Sink; tests install their own.
type Sink interface {
	// BridgeState reports the gateway online/offline flag.
	BridgeState(online bool)

	// BridgeInfo delivers a parsed bridge/info snapshot with its raw payload.
	BridgeInfo(info *BridgeInfo, raw []byte)

	// BridgeDevices delivers a parsed bridge/devices snapshot with its raw payload.
	BridgeDevices(devices []BridgeDevice, raw []byte)

	// BridgeGroups delivers a parsed bridge/groups snapshot with its raw payload.
	BridgeGroups(groups []BridgeGroup, raw []byte)

	// BridgeEvent delivers a live gateway event.
	BridgeEvent(ev DeviceEvent)

	// PermitJoin delivers a commissioning window change.
	PermitJoin(resp PermitJoinResponse)

	// DeviceRename and GroupRename deliver rename confirmations.
	DeviceRename(resp RenameResponse)
	GroupRename(resp RenameResponse)

	// DeviceRemove and GroupRemove deliver removal confirmations.
	DeviceRemove(resp RemoveResponse)
	GroupRemove(resp RemoveResponse)

	// GroupAdd delivers a group creation confirmation.
	GroupAdd(resp GroupResponse)

	// GroupMembers delivers a membership change; added is false for removals.
	GroupMembers(resp GroupMembersResponse, added bool)

	// NetworkMap delivers a requested network map.
	NetworkMap(resp NetworkMapResponse)

	// EntityMessage delivers a state payload for a named entity.
	EntityMessage(name string, payload map[string]any, raw []byte)

	// EntityAvailability delivers a per-entity availability flag.
	EntityAvailability(name string, online bool)
}

// Dispatcher classifies frames arriving under the gateway's topic prefix
// and hands typed results to the Sink. It holds no state of its own; all
// sequencing lives in the Controller.
type Dispatcher struct {
	prefix string
	sink   Sink
	logger Logger
}

// NewDispatcher creates a dispatcher for the given topic prefix.
func NewDispatcher(prefix string, sink Sink, logger Logger) *Dispatcher {
	return &Dispatcher{prefix: prefix, sink: sink, logger: logger}
}

// Dispatch classifies one frame. Unparseable payloads are logged and
// skipped; classification itself never fails the transport handler.
func (d *Dispatcher) Dispatch(topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, d.prefix+"/")
	if !ok {
		// Another tree on the broker (e.g. clients/#). Not ours.
		return nil
	}

	if bridgeTopic, ok := strings.CutPrefix(rest, "bridge/"); ok {
		return d.dispatchBridge(bridgeTopic, payload)
	}
	return d.dispatchEntity(rest, payload)
}

// dispatchBridge routes bridge/# frames.
func (d *Dispatcher) dispatchBridge(topic string, payload []byte) error {
	switch topic {
	case "state":
		d.sink.BridgeState(parseOnline(payload))
		return nil

	case "info":
		var info BridgeInfo
		if err := json.Unmarshal(payload, &info); err != nil {
			d.logWarn("bridge info payload unparseable", "error", err)
			return nil
		}
		d.sink.BridgeInfo(&info, payload)
		return nil

	case "devices":
		var devices []BridgeDevice
		if err := json.Unmarshal(payload, &devices); err != nil {
			d.logWarn("bridge devices payload unparseable", "error", err)
			return nil
		}
		d.sink.BridgeDevices(devices, payload)
		return nil

	case "groups":
		var groups []BridgeGroup
		if err := json.Unmarshal(payload, &groups); err != nil {
			d.logWarn("bridge groups payload unparseable", "error", err)
			return nil
		}
		d.sink.BridgeGroups(groups, payload)
		return nil

	case "event":
		var ev DeviceEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			d.logWarn("bridge event payload unparseable", "error", err)
			return nil
		}
		d.sink.BridgeEvent(ev)
		return nil

	case "extensions", "logging", "config", "definitions":
		d.logDebug("bridge frame ignored", "topic", "bridge/"+topic)
		return nil
	}

	if requestTopic, ok := strings.CutPrefix(topic, "request/"); ok {
		// Requests are echoes of our own or another client's commands.
		d.logDebug("bridge request observed", "request", requestTopic)
		return nil
	}

	if responseTopic, ok := strings.CutPrefix(topic, "response/"); ok {
		return d.dispatchResponse(responseTopic, payload)
	}

	d.logDebug("unhandled bridge frame", "topic", "bridge/"+topic)
	return nil
}

// dispatchResponse routes bridge/response/# frames.
func (d *Dispatcher) dispatchResponse(topic string, payload []byte) error {
	switch topic {
	case "networkmap":
		var resp NetworkMapResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("networkmap response: %w", err)
		}
		d.sink.NetworkMap(resp)
		return nil

	case "permit_join":
		var resp PermitJoinResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("permit_join response: %w", err)
		}
		d.sink.PermitJoin(resp)
		return nil

	case "device/rename", "group/rename":
		var resp RenameResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("rename response: %w", err)
		}
		if strings.HasPrefix(topic, "device/") {
			d.sink.DeviceRename(resp)
		} else {
			d.sink.GroupRename(resp)
		}
		return nil

	case "device/remove", "group/remove":
		var resp RemoveResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("remove response: %w", err)
		}
		if strings.HasPrefix(topic, "device/") {
			d.sink.DeviceRemove(resp)
		} else {
			d.sink.GroupRemove(resp)
		}
		return nil

	case "group/add":
		var resp GroupResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("group add response: %w", err)
		}
		d.sink.GroupAdd(resp)
		return nil

	case "device/options":
		// Option changes surface through the next devices snapshot.
		d.logDebug("device options changed")
		return nil

	case "group/members/add", "group/members/remove":
		var resp GroupMembersResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("group members response: %w", err)
		}
		d.sink.GroupMembers(resp, strings.HasSuffix(topic, "/add"))
		return nil
	}

	d.logDebug("unhandled bridge response", "topic", "bridge/response/"+topic)
	return nil
}

// dispatchEntity routes per-entity frames: <name> state payloads and
// <name>/availability flags. Command echoes (<name>/set, <name>/get) and
// deeper subtopics are ignored.
func (d *Dispatcher) dispatchEntity(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	switch len(parts) {
	case 1:
		payloadMap, err := ParsePayload(payload)
		if err != nil {
			d.logWarn("entity payload unparseable", "entity", parts[0], "error", err)
			return nil
		}
		d.sink.EntityMessage(parts[0], payloadMap, payload)
		return nil

	case 2:
		switch parts[1] {
		case "availability":
			d.sink.EntityAvailability(parts[0], parseOnline(payload))
		case "set", "get":
			// Our own command echoes.
		default:
			d.logDebug("unhandled entity subtopic", "topic", topic)
		}
		return nil
	}

	d.logDebug("unhandled entity frame", "topic", topic)
	return nil
}

// ParsePayload turns a gateway payload into a key/value map. JSON object
// payloads are decoded directly; bare-string payloads (legacy attribute
// output) are wrapped as {"state": <string>}.
func ParsePayload(payload []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 1 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return map[string]any{"state": string(trimmed)}, nil
}

// parseOnline decodes an availability or bridge state payload. Accepts the
// bare strings "online"/"offline" and the JSON form {"state": "..."}.
func parseOnline(payload []byte) bool {
	m, err := ParsePayload(payload)
	if err != nil {
		return false
	}
	state, _ := m["state"].(string)
	return state == "online"
}

func (d *Dispatcher) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Dispatcher) logDebug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
