package chamber

// State names one of the chamber's control states.
type State string

const (
	// Configuring pushes the module configuration to the control server.
	Configuring State = "configuring"
	// Clearing runs with both actuators off until humidity drops below the band.
	Clearing State = "clearing"
	// Humidifying runs fan and humidifier until humidity rises above the band.
	Humidifying State = "humidifying"
	// Circulating runs the fan alone for a fixed hold, then clears.
	Circulating State = "circulating"
)

// States lists every control state.
var States = []State{Configuring, Clearing, Humidifying, Circulating} //nolint:gochecknoglobals

func (s State) String() string {
	return string(s)
}

// Reading is one sensor sample.
type Reading struct {
	TemperatureF     float64
	RelativeHumidity float64
}
