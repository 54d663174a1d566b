package bridge

import (
	"bytes"
	"encoding/json"
)

// Wire types for the gateway's retained bridge topics. Field names follow
// the gateway's JSON payloads exactly.

// BridgeInfo mirrors the retained bridge/info payload.
type BridgeInfo struct {
	Version           string             `json:"version"`
	Commit            string             `json:"commit"`
	ZigbeeHerdsman    VersionInfo        `json:"zigbee_herdsman"`
	Coordinator       CoordinatorInfo    `json:"coordinator"`
	PermitJoin        bool               `json:"permit_join"`
	PermitJoinTimeout int                `json:"permit_join_timeout"`
	Config            BridgeConfigInfo   `json:"config"`
}

// VersionInfo is a nested {version} object.
type VersionInfo struct {
	Version string `json:"version"`
}

// CoordinatorInfo describes the gateway's radio coordinator.
type CoordinatorInfo struct {
	Type string          `json:"type"`
	Meta json.RawMessage `json:"meta"`
}

// BridgeConfigInfo is the gateway configuration echoed inside bridge/info.
type BridgeConfigInfo struct {
	Advanced AdvancedConfigInfo `json:"advanced"`

	// Availability is either a bool (legacy) or an object with an
	// "enabled" field. Use AvailabilityEnabled().
	Availability json.RawMessage `json:"availability"`
}

// AdvancedConfigInfo carries the gateway output mode and legacy flags.
type AdvancedConfigInfo struct {
	// Output must be "json" or "attribute_and_json"; "attribute" carries
	// no parseable entity payloads and is reported as a config error.
	Output string `json:"output"`

	LegacyAPI                 bool `json:"legacy_api"`
	LegacyAvailabilityPayload bool `json:"legacy_availability_payload"`
}

// Gateway output modes.
const (
	OutputJSON             = "json"
	OutputAttributeAndJSON = "attribute_and_json"
	OutputAttribute        = "attribute"
)

// AvailabilityEnabled reports whether the gateway publishes authoritative
// per-entity availability. Handles both the legacy bool form and the
// {enabled: bool} object form.
func (c *BridgeConfigInfo) AvailabilityEnabled() bool {
	raw := bytes.TrimSpace(c.Availability)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return false
	}
	if bytes.Equal(raw, []byte("true")) {
		return true
	}

	var obj struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	if obj.Enabled != nil {
		return *obj.Enabled
	}
	// An availability object without an explicit enabled flag means on.
	return true
}

// Zigbee device classes reported in bridge/devices.
const (
	DeviceTypeCoordinator = "Coordinator"
	DeviceTypeRouter      = "Router"
	DeviceTypeEndDevice   = "EndDevice"
	DeviceTypeGreenPower  = "GreenPower"
	DeviceTypeUnknown     = "Unknown"
)

// BridgeDevice mirrors one element of the retained bridge/devices snapshot.
type BridgeDevice struct {
	IEEEAddress        string                    `json:"ieee_address"`
	FriendlyName       string                    `json:"friendly_name"`
	Type               string                    `json:"type"`
	NetworkAddress     int                       `json:"network_address"`
	Supported          bool                      `json:"supported"`
	Disabled           bool                      `json:"disabled"`
	InterviewCompleted bool                      `json:"interview_completed"`
	PowerSource        string                    `json:"power_source"`
	Definition         *Definition               `json:"definition"`
	Endpoints          map[string]DeviceEndpoint `json:"endpoints"`
}

// IsRouter reports whether the device routes (Coordinator or Router class).
func (d *BridgeDevice) IsRouter() bool {
	return d.Type == DeviceTypeCoordinator || d.Type == DeviceTypeRouter
}

// Definition is the gateway's model description of a supported device.
type Definition struct {
	Model       string   `json:"model"`
	Vendor      string   `json:"vendor"`
	Description string   `json:"description"`
	Exposes     []Expose `json:"exposes"`
	Options     []Expose `json:"options"`
}

// DeviceEndpoint describes one Zigbee endpoint of a device.
type DeviceEndpoint struct {
	Bindings             []json.RawMessage `json:"bindings"`
	ConfiguredReportings []json.RawMessage `json:"configured_reportings"`
	Clusters             EndpointClusters  `json:"clusters"`
}

// EndpointClusters lists input/output clusters by name.
type EndpointClusters struct {
	Input  []string `json:"input"`
	Output []string `json:"output"`
}

// Expose access bits.
const (
	// AccessPublished: the property appears in state payloads.
	AccessPublished = 1 << 0

	// AccessSet: the property can be written via <entity>/set.
	AccessSet = 1 << 1

	// AccessGet: the property can be read via <entity>/get.
	AccessGet = 1 << 2
)

// Expose is the gateway's declarative feature descriptor. Specific types
// (light, switch, cover, lock, climate, fan) nest their real properties
// under Features.
//
// TODO: gate the access-bit semantics per gateway version once upstream
// documents them as stable across releases.
type Expose struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Property    string    `json:"property"`
	Endpoint    string    `json:"endpoint"`
	Access      int       `json:"access"`
	Unit        string    `json:"unit"`
	ValueOn     any       `json:"value_on"`
	ValueOff    any       `json:"value_off"`
	ValueToggle any       `json:"value_toggle"`
	ValueMin    *float64  `json:"value_min"`
	ValueMax    *float64  `json:"value_max"`
	ValueStep   *float64  `json:"value_step"`
	Values      []string  `json:"values"`
	Presets     []Preset  `json:"presets"`
	Features    []Expose  `json:"features"`
}

// Preset is a named value preset on a numeric expose.
type Preset struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// IsPublished reports whether the feature appears in state payloads.
func (e *Expose) IsPublished() bool { return e.Access&AccessPublished != 0 }

// IsSettable reports whether the feature accepts <entity>/set writes.
func (e *Expose) IsSettable() bool { return e.Access&AccessSet != 0 }

// IsGettable reports whether the feature answers <entity>/get reads.
func (e *Expose) IsGettable() bool { return e.Access&AccessGet != 0 }

// BridgeGroup mirrors one element of the retained bridge/groups snapshot.
type BridgeGroup struct {
	ID           int           `json:"id"`
	FriendlyName string        `json:"friendly_name"`
	Members      []GroupMember `json:"members"`
	Scenes       []GroupScene  `json:"scenes"`
}

// GroupMember is one device endpoint belonging to a group.
type GroupMember struct {
	IEEEAddress string `json:"ieee_address"`
	Endpoint    int    `json:"endpoint"`
}

// GroupScene is a stored scene on a group.
type GroupScene struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
