package fabric

// ClusterID names a cluster on a bridged endpoint.
type ClusterID string

// Clusters carried by bridged endpoints.
const (
	ClusterOnOff                  ClusterID = "OnOff"
	ClusterLevelControl           ClusterID = "LevelControl"
	ClusterColorControl           ClusterID = "ColorControl"
	ClusterTemperatureMeasurement ClusterID = "TemperatureMeasurement"
	ClusterRelativeHumidity       ClusterID = "RelativeHumidityMeasurement"
	ClusterPressureMeasurement    ClusterID = "PressureMeasurement"
	ClusterIlluminanceMeasurement ClusterID = "IlluminanceMeasurement"
	ClusterBooleanState           ClusterID = "BooleanState"
	ClusterOccupancySensing       ClusterID = "OccupancySensing"
	ClusterAirQuality             ClusterID = "AirQuality"
	ClusterSwitch                 ClusterID = "Switch"
	ClusterDoorLock               ClusterID = "DoorLock"
	ClusterWindowCovering         ClusterID = "WindowCovering"
	ClusterThermostat             ClusterID = "Thermostat"
	ClusterPowerSource            ClusterID = "PowerSource"
	ClusterBridgedBasic           ClusterID = "BridgedDeviceBasicInformation"
)

// Attribute addresses a single attribute within a cluster.
type Attribute struct {
	Cluster ClusterID
	Name    string
}

// Attributes written by the update pipeline.
var (
	AttrOnOff = Attribute{ClusterOnOff, "onOff"}

	AttrCurrentLevel = Attribute{ClusterLevelControl, "currentLevel"}

	AttrColorTemperatureMireds = Attribute{ClusterColorControl, "colorTemperatureMireds"}
	AttrCurrentHue             = Attribute{ClusterColorControl, "currentHue"}
	AttrCurrentSaturation      = Attribute{ClusterColorControl, "currentSaturation"}
	AttrColorMode              = Attribute{ClusterColorControl, "colorMode"}

	AttrTemperatureMeasuredValue = Attribute{ClusterTemperatureMeasurement, "measuredValue"}
	AttrHumidityMeasuredValue    = Attribute{ClusterRelativeHumidity, "measuredValue"}
	AttrPressureMeasuredValue    = Attribute{ClusterPressureMeasurement, "measuredValue"}
	AttrIlluminanceMeasuredValue = Attribute{ClusterIlluminanceMeasurement, "measuredValue"}

	AttrStateValue = Attribute{ClusterBooleanState, "stateValue"}

	AttrOccupancy = Attribute{ClusterOccupancySensing, "occupancy"}

	AttrAirQuality = Attribute{ClusterAirQuality, "airQuality"}

	AttrCurrentPosition = Attribute{ClusterSwitch, "currentPosition"}

	AttrLockState = Attribute{ClusterDoorLock, "lockState"}

	AttrLiftPercent100ths = Attribute{ClusterWindowCovering, "currentPositionLiftPercent100ths"}
	AttrOperationalStatus = Attribute{ClusterWindowCovering, "operationalStatus"}

	AttrLocalTemperature        = Attribute{ClusterThermostat, "localTemperature"}
	AttrOccupiedHeatingSetpoint = Attribute{ClusterThermostat, "occupiedHeatingSetpoint"}
	AttrSystemMode              = Attribute{ClusterThermostat, "systemMode"}

	AttrBatteryPercentRemaining = Attribute{ClusterPowerSource, "batPercentRemaining"}
)

// ColorControl colorMode values.
const (
	ColorModeHueSaturation int64 = 0
	ColorModeXY            int64 = 1
	ColorModeMireds        int64 = 2
)

// DoorLock lockState values.
const (
	LockStateLocked   int64 = 1
	LockStateUnlocked int64 = 2
)

// AirQuality enum values.
const (
	AirQualityUnknown      int64 = 0
	AirQualityGood         int64 = 1
	AirQualityFair         int64 = 2
	AirQualityModerate     int64 = 3
	AirQualityPoor         int64 = 4
	AirQualityVeryPoor     int64 = 5
	AirQualityExtremelyBad int64 = 6
)
