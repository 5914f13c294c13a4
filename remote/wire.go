package remote

// Module names as registered with the control server.
const (
	SensorModule     = "sensor"
	FanModule        = "fan"
	HumidifierModule = "humidifier"
)

// Sensor actions.
const (
	ActionSet         = "set"
	ActionTemperature = "tf"
	ActionHumidity    = "rh"
)

const (
	sensorSource = "htg3535ch"
	relaySource  = "relay"
)

// InitializeRequest is the body of POST /initialize.
type InitializeRequest struct {
	Modules map[string]ModuleConfig `json:"modules"`
}

// ModuleConfig binds a module name to a hardware source.
type ModuleConfig struct {
	Source string `json:"source"`
	Config any    `json:"config"`
}

type SensorConfig struct {
	TemperatureADCChannel int     `json:"temperature_adc_channel"`
	HumidityADCChannel    int     `json:"humidity_adc_channel"`
	CalibrationADCChannel int     `json:"calibration_adc_channel"`
	RHAdjustment          float64 `json:"rh_adjustment"`
}

type RelayConfig struct {
	Pin string `json:"pin"`
}

// ActRequest is the body of POST /act.
type ActRequest struct {
	Module string     `json:"module"`
	Action string     `json:"action"`
	Config *SetConfig `json:"config,omitempty"`
}

type SetConfig struct {
	High bool `json:"high"`
}

// ActResponse is the body returned for sensor reads.
type ActResponse struct {
	Result *float64 `json:"result"`
}

func initializeRequest(cfg Config) InitializeRequest {
	return InitializeRequest{
		Modules: map[string]ModuleConfig{
			SensorModule: {
				Source: sensorSource,
				Config: SensorConfig{
					TemperatureADCChannel: cfg.TemperatureADCChannel,
					HumidityADCChannel:    cfg.HumidityADCChannel,
					CalibrationADCChannel: cfg.CalibrationADCChannel,
					RHAdjustment:          cfg.RHAdjustment,
				},
			},
			FanModule: {
				Source: relaySource,
				Config: RelayConfig{Pin: cfg.FanPin},
			},
			HumidifierModule: {
				Source: relaySource,
				Config: RelayConfig{Pin: cfg.HumidifierPin},
			},
		},
	}
}

func setRequest(module string, on bool) ActRequest {
	return ActRequest{
		Module: module,
		Action: ActionSet,
		Config: &SetConfig{High: on},
	}
}

func readRequest(action string) ActRequest {
	return ActRequest{
		Module: SensorModule,
		Action: action,
	}
}
