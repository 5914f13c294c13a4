package chamber

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/amp-labs/chamber/envutil"
	chamberr "github.com/amp-labs/chamber/errors"
	"github.com/amp-labs/chamber/remote"
)

var ErrInvalidConfig = errors.New("invalid chamber configuration")

const (
	defaultRHLowPercent  = 80.0
	defaultRHHighPercent = 90.0
	defaultPollInterval  = time.Minute
	defaultRetryInterval = 10 * time.Second

	// circulation holds for this many poll intervals.
	circulatePolls = 3
)

// Config is everything the chamber needs, fixed at startup.
type Config struct {
	Server remote.Config

	// The humidity band, in %RH. Humidifying starts below RHLowPercent and
	// stops above RHHighPercent.
	RHLowPercent  float64
	RHHighPercent float64

	PollInterval  time.Duration
	CirculateHold time.Duration
	RetryInterval time.Duration
	// AttemptTimeout bounds each remote call. Zero means no bound beyond the
	// HTTP transport's own timeouts.
	AttemptTimeout time.Duration
	// RecoveryDelay is the pause before re-entering the recovery state after
	// a state failed. Zero re-enters immediately.
	RecoveryDelay time.Duration
}

// DefaultConfig returns the reference chamber settings with an empty server
// address.
func DefaultConfig() Config {
	return Config{
		Server:        remote.DefaultConfig(),
		RHLowPercent:  defaultRHLowPercent,
		RHHighPercent: defaultRHHighPercent,
		PollInterval:  defaultPollInterval,
		CirculateHold: circulatePolls * defaultPollInterval,
		RetryInterval: defaultRetryInterval,
	}
}

// Validate checks the band and the timings.
func (c Config) Validate() error {
	var errs chamberr.Collection

	errs.Check(c.Server.Address != "", "server address is required")
	errs.Check(finite(c.Server.RHAdjustment), "rh adjustment must be a finite number, got %v", c.Server.RHAdjustment)
	errs.Check(finite(c.RHLowPercent) && finite(c.RHHighPercent),
		"humidity band [%v, %v] must be finite", c.RHLowPercent, c.RHHighPercent)
	errs.Check(c.RHLowPercent >= 0 && c.RHHighPercent <= 100 && c.RHLowPercent < c.RHHighPercent,
		"humidity band [%v, %v] must satisfy 0 <= low < high <= 100", c.RHLowPercent, c.RHHighPercent)
	errs.Check(c.PollInterval > 0, "poll interval must be positive, got %v", c.PollInterval)
	errs.Check(c.CirculateHold > 0, "circulate hold must be positive, got %v", c.CirculateHold)
	errs.Check(c.RetryInterval > 0, "retry interval must be positive, got %v", c.RetryInterval)
	errs.Check(c.AttemptTimeout >= 0, "attempt timeout must not be negative, got %v", c.AttemptTimeout)
	errs.Check(c.RecoveryDelay >= 0, "recovery delay must not be negative, got %v", c.RecoveryDelay)

	return errs.Wrap(ErrInvalidConfig)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// LoadConfig reads the configuration from the environment:
//
//   - SERVER_IP (required), SERVER_PORT (3141)
//   - FAN_PIN (20), HUM_PIN (26)
//   - TEMPERATURE_ADC_CHANNEL (4), HUMIDITY_ADC_CHANNEL (5), CALIBRATION_ADC_CHANNEL (7)
//   - RH_ADJUSTMENT (6.93131703213524)
//   - RH_LOW_PERCENT (80), RH_HIGH_PERCENT (90)
//   - POLL_INTERVAL (1m), CIRCULATE_HOLD (3 x POLL_INTERVAL), RETRY_INTERVAL (10s)
//   - ATTEMPT_TIMEOUT (0), RECOVERY_DELAY (0)
func LoadConfig(ctx context.Context) (Config, error) {
	var (
		dfl  = DefaultConfig()
		cfg  Config
		errs chamberr.Collection
		err  error
	)

	cfg.Server.Address, err = envutil.String(ctx, "SERVER_IP", envutil.NonEmpty()).Value()
	errs.Add(err)

	cfg.Server.Port, err = envutil.Port(ctx, "SERVER_PORT", envutil.Default(dfl.Server.Port)).Value()
	errs.Add(err)

	cfg.Server.FanPin, err = envutil.String(ctx, "FAN_PIN",
		envutil.Default(dfl.Server.FanPin), envutil.NonEmpty()).Value()
	errs.Add(err)

	cfg.Server.HumidifierPin, err = envutil.String(ctx, "HUM_PIN",
		envutil.Default(dfl.Server.HumidifierPin), envutil.NonEmpty()).Value()
	errs.Add(err)

	cfg.Server.TemperatureADCChannel, err = envutil.Int(ctx, "TEMPERATURE_ADC_CHANNEL",
		envutil.Default(dfl.Server.TemperatureADCChannel), envutil.Between(0, 7)).Value()
	errs.Add(err)

	cfg.Server.HumidityADCChannel, err = envutil.Int(ctx, "HUMIDITY_ADC_CHANNEL",
		envutil.Default(dfl.Server.HumidityADCChannel), envutil.Between(0, 7)).Value()
	errs.Add(err)

	cfg.Server.CalibrationADCChannel, err = envutil.Int(ctx, "CALIBRATION_ADC_CHANNEL",
		envutil.Default(dfl.Server.CalibrationADCChannel), envutil.Between(0, 7)).Value()
	errs.Add(err)

	cfg.Server.RHAdjustment, err = envutil.Float64(ctx, "RH_ADJUSTMENT",
		envutil.Default(dfl.Server.RHAdjustment)).Value()
	errs.Add(err)

	cfg.RHLowPercent, err = envutil.Float64(ctx, "RH_LOW_PERCENT",
		envutil.Default(dfl.RHLowPercent), envutil.Between(0.0, 100.0)).Value()
	errs.Add(err)

	cfg.RHHighPercent, err = envutil.Float64(ctx, "RH_HIGH_PERCENT",
		envutil.Default(dfl.RHHighPercent), envutil.Between(0.0, 100.0)).Value()
	errs.Add(err)

	cfg.PollInterval, err = envutil.Duration(ctx, "POLL_INTERVAL",
		envutil.Default(dfl.PollInterval), envutil.Positive[time.Duration]()).Value()
	errs.Add(err)

	cfg.CirculateHold, err = envutil.Duration(ctx, "CIRCULATE_HOLD",
		envutil.Default(circulatePolls*cfg.PollInterval), envutil.Positive[time.Duration]()).Value()
	errs.Add(err)

	cfg.RetryInterval, err = envutil.Duration(ctx, "RETRY_INTERVAL",
		envutil.Default(dfl.RetryInterval), envutil.Positive[time.Duration]()).Value()
	errs.Add(err)

	cfg.AttemptTimeout, err = envutil.Duration(ctx, "ATTEMPT_TIMEOUT",
		envutil.Default(time.Duration(0))).Value()
	errs.Add(err)

	cfg.RecoveryDelay, err = envutil.Duration(ctx, "RECOVERY_DELAY",
		envutil.Default(dfl.RecoveryDelay)).Value()
	errs.Add(err)

	if err := errs.Wrap(ErrInvalidConfig); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
