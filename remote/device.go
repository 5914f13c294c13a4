// Package remote talks to the chamber's actuator/sensor server. The server
// exposes named modules (a sensor and two relays) behind two endpoints:
// POST /initialize with the module configuration, and POST /act to drive a
// module or take a reading.
//
// The client never retries. Every failure is tagged with a Kind so callers
// can decide what is worth retrying.
package remote

import "context"

// DefaultPort is the port the control server listens on.
const DefaultPort uint16 = 3141

// Device is the chamber hardware as seen through the control server.
type Device interface {
	// Configure sends the full module configuration. It must succeed before
	// any actuation or reading.
	Configure(ctx context.Context) error

	SetFan(ctx context.Context, on bool) error
	SetHumidifier(ctx context.Context, on bool) error

	ReadTemperatureF(ctx context.Context) (float64, error)
	ReadRelativeHumidity(ctx context.Context) (float64, error)
}

// Config locates the control server and describes how the hardware is wired.
type Config struct {
	Address string
	Port    uint16

	FanPin        string
	HumidifierPin string

	TemperatureADCChannel int
	HumidityADCChannel    int
	CalibrationADCChannel int

	// RHAdjustment is the calibration offset applied by the sensor module.
	RHAdjustment float64
}

// DefaultConfig returns the wiring of the reference chamber. Address is left
// empty and must be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		Port:                  DefaultPort,
		FanPin:                "20",
		HumidifierPin:         "26",
		TemperatureADCChannel: 4,
		HumidityADCChannel:    5,
		CalibrationADCChannel: 7,
		RHAdjustment:          6.93131703213524,
	}
}
