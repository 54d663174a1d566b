package pipeline

import (
	"math"
	"strings"

	"github.com/zigbridge/zigbridge-core/internal/fabric"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// payloadRule maps one gateway payload key onto an attribute write or an
// event. Rules run in table order so dependent keys (color_mode before
// color) resolve deterministically regardless of JSON key order.
type payloadRule struct {
	key   string
	apply func(ep *fabric.Endpoint, payload map[string]any, value any, logger Logger)
}

// payloadRules is the inbound mapping table.
var payloadRules = []payloadRule{
	{"state", applyState},
	{"brightness", applyBrightness},
	{"color_temp", applyColorTemp},
	{"color", applyColor},
	{"position", applyPosition},
	{"lock_state", applyLockState},
	{"local_temperature", numericRule(fabric.AttrLocalTemperature, TemperatureToMeasured)},
	{"occupied_heating_setpoint", numericRule(fabric.AttrOccupiedHeatingSetpoint, TemperatureToMeasured)},
	{"current_heating_setpoint", numericRule(fabric.AttrOccupiedHeatingSetpoint, TemperatureToMeasured)},
	{"temperature", numericRule(fabric.AttrTemperatureMeasuredValue, TemperatureToMeasured)},
	{"humidity", numericRule(fabric.AttrHumidityMeasuredValue, HumidityToMeasured)},
	{"pressure", numericRule(fabric.AttrPressureMeasuredValue, PressureToMeasured)},
	{"illuminance_lux", numericRule(fabric.AttrIlluminanceMeasuredValue, LuxToMeasured)},
	{"illuminance", numericRule(fabric.AttrIlluminanceMeasuredValue, LuxToMeasured)},
	{"battery", numericRule(fabric.AttrBatteryPercentRemaining, BatteryToPercentRemaining)},
	{"contact", booleanRule(fabric.AttrStateValue)},
	{"water_leak", booleanRule(fabric.AttrStateValue)},
	{"smoke", booleanRule(fabric.AttrStateValue)},
	{"carbon_monoxide", booleanRule(fabric.AttrStateValue)},
	{"occupancy", booleanRule(fabric.AttrOccupancy)},
	{"presence", booleanRule(fabric.AttrOccupancy)},
	{"air_quality", applyAirQuality},
	{"action", applyAction},
}

// Apply runs a gateway state payload through the mapping table against an
// endpoint. Keys without a rule are ignored; the registry has already
// filtered the exposed feature set.
func Apply(ep *fabric.Endpoint, payload map[string]any, logger Logger) {
	for _, rule := range payloadRules {
		value, ok := payload[rule.key]
		if !ok || value == nil {
			continue
		}
		rule.apply(ep, payload, value, logger)
	}
}

// clusterTargets maps measurement clusters to the device types whose
// child endpoints receive the broadcast.
var clusterTargets = map[fabric.ClusterID][]fabric.DeviceType{
	fabric.ClusterTemperatureMeasurement: {fabric.DeviceTypeTemperatureSensor},
	fabric.ClusterRelativeHumidity:       {fabric.DeviceTypeHumiditySensor},
	fabric.ClusterPressureMeasurement:    {fabric.DeviceTypePressureSensor},
	fabric.ClusterIlluminanceMeasurement: {fabric.DeviceTypeLightSensor},
	fabric.ClusterBooleanState: {
		fabric.DeviceTypeContactSensor,
		fabric.DeviceTypeWaterLeakDetector,
		fabric.DeviceTypeSmokeCOAlarm,
	},
	fabric.ClusterOccupancySensing: {fabric.DeviceTypeOccupancySensor},
	fabric.ClusterAirQuality:       {fabric.DeviceTypeAirQualitySensor},
}

// setAttribute writes an attribute on the endpoint and broadcasts it to
// child endpoints carrying the matching device type.
func setAttribute(ep *fabric.Endpoint, attr fabric.Attribute, value any) {
	ep.SetAttribute(attr, value)

	targets := clusterTargets[attr.Cluster]
	if len(targets) == 0 {
		return
	}
	for _, child := range ep.Children() {
		for _, dt := range targets {
			if child.HasDeviceType(dt) {
				child.SetAttribute(attr, value)
				break
			}
		}
	}
}

func applyState(ep *fabric.Endpoint, _ map[string]any, value any, logger Logger) {
	s, ok := value.(string)
	if !ok {
		return
	}
	switch strings.ToUpper(s) {
	case "ON":
		setAttribute(ep, fabric.AttrOnOff, true)
	case "OFF":
		setAttribute(ep, fabric.AttrOnOff, false)
	case "TOGGLE":
		current, _ := ep.Attribute(fabric.AttrOnOff)
		on, _ := current.(bool)
		setAttribute(ep, fabric.AttrOnOff, !on)
	case "LOCK":
		setAttribute(ep, fabric.AttrLockState, fabric.LockStateLocked)
	case "UNLOCK":
		setAttribute(ep, fabric.AttrLockState, fabric.LockStateUnlocked)
	case "OPEN", "CLOSE", "STOP":
		// Covers report their position numerically; the state string is
		// only the motion direction.
	default:
		if logger != nil {
			logger.Debug("unrecognised state value", "entity", ep.Name(), "state", s)
		}
	}
}

func applyBrightness(ep *fabric.Endpoint, _ map[string]any, value any, _ Logger) {
	v, ok := toFloat(value)
	if !ok {
		return
	}
	setAttribute(ep, fabric.AttrCurrentLevel, int64(math.Round(v)))
}

// applyColorTemp only runs while the gateway reports color_temp mode;
// outside it the mireds value is a stale remnant of the previous mode.
func applyColorTemp(ep *fabric.Endpoint, payload map[string]any, value any, _ Logger) {
	if mode, ok := payload["color_mode"].(string); ok && mode != "color_temp" {
		return
	}
	v, ok := toFloat(value)
	if !ok {
		return
	}
	setAttribute(ep, fabric.AttrColorTemperatureMireds, int64(math.Round(v)))
	setAttribute(ep, fabric.AttrColorMode, fabric.ColorModeMireds)
}

func applyColor(ep *fabric.Endpoint, payload map[string]any, value any, _ Logger) {
	if mode, ok := payload["color_mode"].(string); ok && mode != "xy" {
		return
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return
	}
	x, okX := toFloat(obj["x"])
	y, okY := toFloat(obj["y"])
	if !okX || !okY {
		return
	}
	hue, sat := XYToHueSat(x, y)
	setAttribute(ep, fabric.AttrCurrentHue, int64(hue))
	setAttribute(ep, fabric.AttrCurrentSaturation, int64(sat))
	setAttribute(ep, fabric.AttrColorMode, fabric.ColorModeHueSaturation)
}

func applyPosition(ep *fabric.Endpoint, _ map[string]any, value any, _ Logger) {
	v, ok := toFloat(value)
	if !ok {
		return
	}
	setAttribute(ep, fabric.AttrLiftPercent100ths, int64(math.Round(v*100)))
}

func applyLockState(ep *fabric.Endpoint, _ map[string]any, value any, _ Logger) {
	s, ok := value.(string)
	if !ok {
		return
	}
	switch s {
	case "locked":
		setAttribute(ep, fabric.AttrLockState, fabric.LockStateLocked)
	case "unlocked":
		setAttribute(ep, fabric.AttrLockState, fabric.LockStateUnlocked)
	}
}

// airQualityLevels maps the gateway's quality labels onto the cluster enum.
var airQualityLevels = map[string]int64{
	"excellent":    fabric.AirQualityGood,
	"good":         fabric.AirQualityFair,
	"moderate":     fabric.AirQualityModerate,
	"poor":         fabric.AirQualityPoor,
	"unhealthy":    fabric.AirQualityVeryPoor,
	"out_of_range": fabric.AirQualityExtremelyBad,
}

func applyAirQuality(ep *fabric.Endpoint, _ map[string]any, value any, _ Logger) {
	s, ok := value.(string)
	if !ok {
		return
	}
	level, ok := airQualityLevels[strings.ToLower(s)]
	if !ok {
		level = fabric.AirQualityUnknown
	}
	setAttribute(ep, fabric.AttrAirQuality, level)
}

// applyAction translates gateway button actions into switch events.
func applyAction(ep *fabric.Endpoint, _ map[string]any, value any, logger Logger) {
	s, ok := value.(string)
	if !ok || s == "" {
		return
	}

	action := strings.ToLower(s)
	switch {
	case strings.Contains(action, "quadruple"):
		triggerPressCount(ep, 4)
	case strings.Contains(action, "triple"):
		triggerPressCount(ep, 3)
	case strings.Contains(action, "double"):
		triggerPressCount(ep, 2)
	case strings.Contains(action, "hold") || strings.Contains(action, "long"):
		if strings.Contains(action, "release") {
			ep.TriggerEvent(fabric.Event{Type: fabric.EventLongRelease})
		} else {
			ep.TriggerEvent(fabric.Event{Type: fabric.EventLongPress})
		}
	case strings.Contains(action, "release"):
		ep.TriggerEvent(fabric.Event{Type: fabric.EventShortRelease})
	default:
		// Single presses arrive as one action; emit the full press cycle.
		ep.TriggerEvent(fabric.Event{Type: fabric.EventInitialPress})
		ep.TriggerEvent(fabric.Event{Type: fabric.EventShortRelease})
	}

	if logger != nil {
		logger.Debug("switch action", "entity", ep.Name(), "action", s)
	}
}

func triggerPressCount(ep *fabric.Endpoint, count int) {
	ep.TriggerEvent(fabric.Event{
		Type:   fabric.EventMultiPressComplete,
		Fields: map[string]any{"totalNumberOfPressesCounted": count},
	})
}

// numericRule builds a rule writing a converted numeric value.
func numericRule(attr fabric.Attribute, convert func(float64) int64) func(*fabric.Endpoint, map[string]any, any, Logger) {
	return func(ep *fabric.Endpoint, _ map[string]any, value any, _ Logger) {
		v, ok := toFloat(value)
		if !ok {
			return
		}
		setAttribute(ep, attr, convert(v))
	}
}

// booleanRule builds a rule writing a boolean value as-is.
func booleanRule(attr fabric.Attribute) func(*fabric.Endpoint, map[string]any, any, Logger) {
	return func(ep *fabric.Endpoint, _ map[string]any, value any, _ Logger) {
		b, ok := value.(bool)
		if !ok {
			return
		}
		setAttribute(ep, attr, b)
	}
}

// toFloat accepts the numeric forms encoding/json produces.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
