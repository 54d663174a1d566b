package entity

import (
	"github.com/zigbridge/zigbridge-core/internal/bridge"
	"github.com/zigbridge/zigbridge-core/internal/fabric"
)

// featureSet is the filtered, flattened view of a device definition used
// by the resolution table. Specific expose types (light, switch, cover,
// lock, climate, fan) contribute their class plus their nested features;
// generic exposes contribute their property directly.
type featureSet struct {
	classes  map[string]bool
	props    map[string]bool
	features []bridge.Expose
}

func (fs *featureSet) hasClass(class string) bool { return fs.classes[class] }
func (fs *featureSet) hasProp(prop string) bool   { return fs.props[prop] }

// specificTypes are expose types that nest their properties under features.
var specificTypes = map[string]bool{
	"light":   true,
	"switch":  true,
	"cover":   true,
	"lock":    true,
	"climate": true,
	"fan":     true,
}

// flattenExposes builds the feature set, dropping black-listed features.
func flattenExposes(entity string, exposes []bridge.Expose, f *filter) *featureSet {
	fs := &featureSet{
		classes: make(map[string]bool),
		props:   make(map[string]bool),
	}
	for _, expose := range exposes {
		if specificTypes[expose.Type] {
			fs.classes[expose.Type] = true
			for _, feature := range expose.Features {
				if f != nil && !f.allowFeature(entity, feature) {
					continue
				}
				fs.props[feature.Property] = true
				fs.features = append(fs.features, feature)
			}
			continue
		}
		if f != nil && !f.allowFeature(entity, expose) {
			continue
		}
		if expose.Property != "" {
			fs.props[expose.Property] = true
			fs.features = append(fs.features, expose)
		}
	}
	return fs
}

// typeRule maps a feature pattern to a device type. Rules are evaluated
// in order; the first match within an exclusivity class wins, so the
// specific light types shadow the plain one.
type typeRule struct {
	name       string
	class      string
	match      func(fs *featureSet) bool
	deviceType fabric.DeviceType
}

// typeRules is the resolution table.
var typeRules = []typeRule{
	{
		name:  "extended color light",
		class: "actuator",
		match: func(fs *featureSet) bool {
			return fs.hasClass("light") && fs.hasProp("brightness") && fs.hasProp("color")
		},
		deviceType: fabric.DeviceTypeExtendedColorLight,
	},
	{
		name:  "color temperature light",
		class: "actuator",
		match: func(fs *featureSet) bool {
			return fs.hasClass("light") && fs.hasProp("brightness") && fs.hasProp("color_temp")
		},
		deviceType: fabric.DeviceTypeColorTemperatureLight,
	},
	{
		name:  "dimmable light",
		class: "actuator",
		match: func(fs *featureSet) bool {
			return fs.hasClass("light") && fs.hasProp("brightness")
		},
		deviceType: fabric.DeviceTypeDimmableLight,
	},
	{
		name:       "on/off light",
		class:      "actuator",
		match:      func(fs *featureSet) bool { return fs.hasClass("light") },
		deviceType: fabric.DeviceTypeOnOffLight,
	},
	{
		name:       "outlet",
		class:      "actuator",
		match:      func(fs *featureSet) bool { return fs.hasClass("switch") },
		deviceType: fabric.DeviceTypeOnOffOutlet,
	},
	{
		name:       "window covering",
		class:      "cover",
		match:      func(fs *featureSet) bool { return fs.hasClass("cover") },
		deviceType: fabric.DeviceTypeWindowCovering,
	},
	{
		name:       "door lock",
		class:      "lock",
		match:      func(fs *featureSet) bool { return fs.hasClass("lock") },
		deviceType: fabric.DeviceTypeDoorLock,
	},
	{
		name:       "thermostat",
		class:      "climate",
		match:      func(fs *featureSet) bool { return fs.hasClass("climate") },
		deviceType: fabric.DeviceTypeThermostat,
	},
	{
		name:       "contact sensor",
		class:      "contact",
		match:      func(fs *featureSet) bool { return fs.hasProp("contact") },
		deviceType: fabric.DeviceTypeContactSensor,
	},
	{
		name:       "water leak detector",
		class:      "leak",
		match:      func(fs *featureSet) bool { return fs.hasProp("water_leak") },
		deviceType: fabric.DeviceTypeWaterLeakDetector,
	},
	{
		name:  "smoke/CO alarm",
		class: "alarm",
		match: func(fs *featureSet) bool {
			return fs.hasProp("smoke") || fs.hasProp("carbon_monoxide")
		},
		deviceType: fabric.DeviceTypeSmokeCOAlarm,
	},
	{
		name:  "occupancy sensor",
		class: "occupancy",
		match: func(fs *featureSet) bool {
			return fs.hasProp("occupancy") || fs.hasProp("presence")
		},
		deviceType: fabric.DeviceTypeOccupancySensor,
	},
	{
		name:       "temperature sensor",
		class:      "temperature",
		match:      func(fs *featureSet) bool { return fs.hasProp("temperature") },
		deviceType: fabric.DeviceTypeTemperatureSensor,
	},
	{
		name:       "humidity sensor",
		class:      "humidity",
		match:      func(fs *featureSet) bool { return fs.hasProp("humidity") },
		deviceType: fabric.DeviceTypeHumiditySensor,
	},
	{
		name:       "pressure sensor",
		class:      "pressure",
		match:      func(fs *featureSet) bool { return fs.hasProp("pressure") },
		deviceType: fabric.DeviceTypePressureSensor,
	},
	{
		name:  "light sensor",
		class: "illuminance",
		match: func(fs *featureSet) bool {
			return fs.hasProp("illuminance") || fs.hasProp("illuminance_lux")
		},
		deviceType: fabric.DeviceTypeLightSensor,
	},
	{
		name:  "air quality sensor",
		class: "airquality",
		match: func(fs *featureSet) bool {
			return fs.hasProp("air_quality") || fs.hasProp("voc")
		},
		deviceType: fabric.DeviceTypeAirQualitySensor,
	},
	{
		name:       "generic switch",
		class:      "button",
		match:      func(fs *featureSet) bool { return fs.hasProp("action") },
		deviceType: fabric.DeviceTypeGenericSwitch,
	},
}

// resolveDeviceTypes evaluates the resolution table against a feature
// set and applies the per-entity overrides from the filter lists.
func resolveDeviceTypes(name string, fs *featureSet, f *filter) []fabric.DeviceType {
	var types []fabric.DeviceType
	matched := make(map[string]bool)

	for _, rule := range typeRules {
		if matched[rule.class] {
			continue
		}
		if rule.match(fs) {
			matched[rule.class] = true
			types = append(types, rule.deviceType)
		}
	}

	if f != nil {
		types = applyOverrides(name, types, fs, f)
	}
	return types
}

// applyOverrides forces the actuator device type for entities named in
// the switch, light or outlet lists.
func applyOverrides(name string, types []fabric.DeviceType, fs *featureSet, f *filter) []fabric.DeviceType {
	dimmable := fs.hasProp("brightness")

	var forced fabric.DeviceType
	switch {
	case f.lightList[name]:
		forced = fabric.DeviceTypeOnOffLight
		if dimmable {
			forced = fabric.DeviceTypeDimmableLight
		}
	case f.outletList[name]:
		forced = fabric.DeviceTypeOnOffOutlet
		if dimmable {
			forced = fabric.DeviceTypeDimmableOutlet
		}
	case f.switchList[name]:
		forced = fabric.DeviceTypeOnOffSwitch
		if dimmable {
			forced = fabric.DeviceTypeDimmerSwitch
		}
	default:
		return types
	}

	for i, dt := range types {
		if isActuator(dt) {
			types[i] = forced
			return types
		}
	}
	return append(types, forced)
}

func isActuator(dt fabric.DeviceType) bool {
	switch dt {
	case fabric.DeviceTypeOnOffLight, fabric.DeviceTypeDimmableLight,
		fabric.DeviceTypeColorTemperatureLight, fabric.DeviceTypeExtendedColorLight,
		fabric.DeviceTypeOnOffOutlet, fabric.DeviceTypeDimmableOutlet,
		fabric.DeviceTypeOnOffSwitch, fabric.DeviceTypeDimmerSwitch:
		return true
	}
	return false
}

// scenesDeviceType maps the scenes_type configuration value onto the
// device type scene endpoints carry.
func scenesDeviceType(scenesType string) fabric.DeviceType {
	switch scenesType {
	case "outlet":
		return fabric.DeviceTypeOnOffOutlet
	case "switch", "mounted_switch":
		return fabric.DeviceTypeOnOffSwitch
	default:
		return fabric.DeviceTypeOnOffLight
	}
}
