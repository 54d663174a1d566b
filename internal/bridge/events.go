package bridge

// Live event and request/response payloads published by the gateway under
// bridge/event and bridge/response/#.

// Gateway event types seen on bridge/event.
const (
	EventDeviceJoined         = "device_joined"
	EventDeviceInterview      = "device_interview"
	EventDeviceLeave          = "device_leave"
	EventDeviceRename         = "device_rename"
	EventDeviceAnnounce       = "device_announce"
	EventDeviceNetworkAddress = "device_network_address_changed"
	EventPermitJoin           = "permit_join"
)

// Interview status values carried by device_interview events.
const (
	InterviewStarted    = "started"
	InterviewSuccessful = "successful"
	InterviewFailed     = "failed"
)

// DeviceEvent is a bridge/event payload.
type DeviceEvent struct {
	Type string          `json:"type"`
	Data DeviceEventData `json:"data"`
}

// DeviceEventData is the data object of a bridge/event payload. Which
// fields are populated depends on the event type.
type DeviceEventData struct {
	FriendlyName string      `json:"friendly_name"`
	IEEEAddress  string      `json:"ieee_address"`
	Status       string      `json:"status"`
	Supported    bool        `json:"supported"`
	Definition   *Definition `json:"definition"`
	From         string      `json:"from"`
	To           string      `json:"to"`
	Device       string      `json:"device"`
	Time         int         `json:"time"`
	Value        bool        `json:"value"`
}

// Response status values on bridge/response/# payloads.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// PermitJoinResponse is a bridge/response/permit_join payload.
type PermitJoinResponse struct {
	Status string                 `json:"status"`
	Error  string                 `json:"error"`
	Data   PermitJoinResponseData `json:"data"`
}

// PermitJoinResponseData carries the commissioning window change. Device
// is empty when the window applies to the whole network.
type PermitJoinResponseData struct {
	Value  bool   `json:"value"`
	Device string `json:"device"`
	Time   int    `json:"time"`
}

// RenameResponse is a bridge/response/device/rename or
// bridge/response/group/rename payload.
type RenameResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error"`
	Data   RenameResponseData `json:"data"`
}

// RenameResponseData carries the old and new friendly names.
type RenameResponseData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RemoveResponse is a bridge/response/device/remove or
// bridge/response/group/remove payload.
type RemoveResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error"`
	Data   RemoveResponseData `json:"data"`
}

// RemoveResponseData identifies the removed entity.
type RemoveResponseData struct {
	ID    string `json:"id"`
	Block bool   `json:"block"`
	Force bool   `json:"force"`
}

// GroupResponse is a bridge/response/group/add payload.
type GroupResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Data   GroupResponseData `json:"data"`
}

// GroupResponseData identifies the created group.
type GroupResponseData struct {
	ID           int    `json:"id"`
	FriendlyName string `json:"friendly_name"`
}

// GroupMembersResponse is a bridge/response/group/members/add or
// bridge/response/group/members/remove payload.
type GroupMembersResponse struct {
	Status string                   `json:"status"`
	Error  string                   `json:"error"`
	Data   GroupMembersResponseData `json:"data"`
}

// GroupMembersResponseData identifies the group and the moved device.
type GroupMembersResponseData struct {
	Group  string `json:"group"`
	Device string `json:"device"`
}

// Network map formats answered on bridge/response/networkmap.
const (
	NetworkMapRaw      = "raw"
	NetworkMapGraphviz = "graphviz"
	NetworkMapPlantUML = "plantuml"
)

// NetworkMapResponse is a bridge/response/networkmap payload. Value is a
// string for graphviz/plantuml and an object for raw.
type NetworkMapResponse struct {
	Status string                 `json:"status"`
	Error  string                 `json:"error"`
	Data   NetworkMapResponseData `json:"data"`
}

// NetworkMapResponseData carries the requested map.
type NetworkMapResponseData struct {
	Type   string `json:"type"`
	Routes bool   `json:"routes"`
	Value  any    `json:"value"`
}
