package fabric

// DeviceType identifies the northbound device type of a bridged endpoint.
// The codes follow the host fabric's device library numbering.
type DeviceType uint32

// Device types emitted by the expose resolution table.
const (
	DeviceTypeOnOffLight            DeviceType = 0x0100
	DeviceTypeDimmableLight         DeviceType = 0x0101
	DeviceTypeColorTemperatureLight DeviceType = 0x010C
	DeviceTypeExtendedColorLight    DeviceType = 0x010D
	DeviceTypeOnOffOutlet           DeviceType = 0x010A
	DeviceTypeDimmableOutlet        DeviceType = 0x010B
	DeviceTypeOnOffSwitch           DeviceType = 0x0103
	DeviceTypeDimmerSwitch          DeviceType = 0x0104
	DeviceTypeGenericSwitch         DeviceType = 0x000F
	DeviceTypeContactSensor         DeviceType = 0x0015
	DeviceTypeLightSensor           DeviceType = 0x0106
	DeviceTypeOccupancySensor       DeviceType = 0x0107
	DeviceTypeTemperatureSensor     DeviceType = 0x0302
	DeviceTypePressureSensor        DeviceType = 0x0305
	DeviceTypeFlowSensor            DeviceType = 0x0306
	DeviceTypeHumiditySensor        DeviceType = 0x0307
	DeviceTypeAirQualitySensor      DeviceType = 0x002C
	DeviceTypeSmokeCOAlarm          DeviceType = 0x0076
	DeviceTypeWaterLeakDetector     DeviceType = 0x0043
	DeviceTypeDoorLock              DeviceType = 0x000A
	DeviceTypeWindowCovering        DeviceType = 0x0202
	DeviceTypeThermostat            DeviceType = 0x0301
)

// String returns a readable name for logging.
func (d DeviceType) String() string {
	switch d {
	case DeviceTypeOnOffLight:
		return "OnOffLight"
	case DeviceTypeDimmableLight:
		return "DimmableLight"
	case DeviceTypeColorTemperatureLight:
		return "ColorTemperatureLight"
	case DeviceTypeExtendedColorLight:
		return "ExtendedColorLight"
	case DeviceTypeOnOffOutlet:
		return "OnOffOutlet"
	case DeviceTypeDimmableOutlet:
		return "DimmableOutlet"
	case DeviceTypeOnOffSwitch:
		return "OnOffSwitch"
	case DeviceTypeDimmerSwitch:
		return "DimmerSwitch"
	case DeviceTypeGenericSwitch:
		return "GenericSwitch"
	case DeviceTypeContactSensor:
		return "ContactSensor"
	case DeviceTypeLightSensor:
		return "LightSensor"
	case DeviceTypeOccupancySensor:
		return "OccupancySensor"
	case DeviceTypeTemperatureSensor:
		return "TemperatureSensor"
	case DeviceTypePressureSensor:
		return "PressureSensor"
	case DeviceTypeFlowSensor:
		return "FlowSensor"
	case DeviceTypeHumiditySensor:
		return "HumiditySensor"
	case DeviceTypeAirQualitySensor:
		return "AirQualitySensor"
	case DeviceTypeSmokeCOAlarm:
		return "SmokeCOAlarm"
	case DeviceTypeWaterLeakDetector:
		return "WaterLeakDetector"
	case DeviceTypeDoorLock:
		return "DoorLock"
	case DeviceTypeWindowCovering:
		return "WindowCovering"
	case DeviceTypeThermostat:
		return "Thermostat"
	default:
		return "Unknown"
	}
}
