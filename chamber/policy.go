// Package chamber holds a chamber's relative humidity inside a band by
// cycling a fan and a humidifier through four states:
//
//	configuring -> clearing -> humidifying -> circulating -> clearing ...
//
// Every remote call is retried at a fixed interval until it succeeds, unless
// the server rejects it outright (remote.ErrMisconfigured). A rejected call
// fails the state and the machine starts over from configuring.
package chamber

import (
	"context"
	"fmt"
	"time"

	"github.com/amp-labs/chamber/events"
	"github.com/amp-labs/chamber/remote"
	"github.com/amp-labs/chamber/retry"
	"github.com/amp-labs/chamber/statemachine"
)

const machineName = "chamber"

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy is the chamber control logic bound to a device.
type Policy struct {
	cfg    Config
	device remote.Device
	sink   events.Sink
	sleep  Sleeper
}

type Option func(*Policy)

// WithSink sends chamber and runner events to sink. Defaults to the log.
func WithSink(sink events.Sink) Option {
	return func(p *Policy) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithSleeper replaces the poll and hold waits. Defaults to statemachine.Sleep.
func WithSleeper(s Sleeper) Option {
	return func(p *Policy) {
		if s != nil {
			p.sleep = s
		}
	}
}

// NewPolicy binds cfg to device. cfg is expected to be valid.
func NewPolicy(cfg Config, device remote.Device, opts ...Option) *Policy {
	p := &Policy{
		cfg:    cfg,
		device: device,
		sink:   events.LogSink{},
		sleep:  statemachine.Sleep,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Retryable reports whether a remote failure is worth another attempt.
// Everything except a rejected request is.
func Retryable(err error) bool {
	return remote.KindOf(err) != remote.KindMisconfigured
}

// Step runs one state to completion and returns its successor.
func (p *Policy) Step(ctx context.Context, state State) (State, error) {
	switch state {
	case Configuring:
		return p.configuring(ctx)
	case Clearing:
		return p.clearing(ctx)
	case Humidifying:
		return p.humidifying(ctx)
	case Circulating:
		return p.circulating(ctx)
	default:
		return "", fmt.Errorf("%w: %q", statemachine.ErrUnknownState, state)
	}
}

// Machine returns a runner over the four states.
func (p *Policy) Machine(opts ...statemachine.Option) *statemachine.Machine[State] {
	states := make(map[State]statemachine.Func[State], len(States))

	for _, state := range States {
		states[state] = func(ctx context.Context) (State, error) {
			return p.Step(ctx, state)
		}
	}

	base := []statemachine.Option{
		statemachine.WithName(machineName),
		statemachine.WithSink(p.sink),
		statemachine.WithRecoveryDelay(p.cfg.RecoveryDelay),
	}

	return statemachine.New(states, append(base, opts...)...)
}

// Run drives the chamber from Configuring until ctx is done. Configuring is
// also the recovery state.
func Run(ctx context.Context, cfg Config, device remote.Device, opts ...Option) error {
	return NewPolicy(cfg, device, opts...).Machine().Run(ctx, Configuring, Configuring)
}

func (p *Policy) configuring(ctx context.Context) (State, error) {
	if err := p.do(ctx, Configuring, "configure", p.device.Configure); err != nil {
		return "", err
	}

	return Clearing, nil
}

func (p *Policy) clearing(ctx context.Context) (State, error) {
	if err := p.setActuators(ctx, Clearing, false, false); err != nil {
		return "", err
	}

	return p.pollUntil(ctx, Clearing, Humidifying, func(r Reading) bool {
		return r.RelativeHumidity < p.cfg.RHLowPercent
	})
}

func (p *Policy) humidifying(ctx context.Context) (State, error) {
	if err := p.setActuators(ctx, Humidifying, true, true); err != nil {
		return "", err
	}

	return p.pollUntil(ctx, Humidifying, Circulating, func(r Reading) bool {
		return r.RelativeHumidity > p.cfg.RHHighPercent
	})
}

func (p *Policy) circulating(ctx context.Context) (State, error) {
	if err := p.setActuators(ctx, Circulating, true, false); err != nil {
		return "", err
	}

	if err := p.sleep(ctx, p.cfg.CirculateHold); err != nil {
		return "", err
	}

	return Clearing, nil
}

// setActuators commands the fan, then the humidifier.
func (p *Policy) setActuators(ctx context.Context, state State, fan, humidifier bool) error {
	if err := p.setActuator(ctx, state, remote.FanModule, fan, p.device.SetFan); err != nil {
		return err
	}

	return p.setActuator(ctx, state, remote.HumidifierModule, humidifier, p.device.SetHumidifier)
}

func (p *Policy) setActuator(
	ctx context.Context,
	state State,
	actuator string,
	on bool,
	set func(ctx context.Context, on bool) error,
) error {
	err := p.do(ctx, state, "set_"+actuator, func(ctx context.Context) error {
		return set(ctx, on)
	})
	if err != nil {
		return err
	}

	actuatorOn.WithLabelValues(actuator).Set(boolGauge(on))
	events.Emit(ctx, p.sink, events.Event{
		Kind:      events.KindActuatorSet,
		State:     state.String(),
		Operation: actuator,
		On:        on,
	})

	return nil
}

// pollUntil reads the sensor every poll interval until done accepts a
// reading, then returns next.
func (p *Policy) pollUntil(ctx context.Context, state, next State, done func(Reading) bool) (State, error) {
	for {
		reading, err := p.read(ctx, state)
		if err != nil {
			return "", err
		}

		if done(reading) {
			return next, nil
		}

		if err := p.sleep(ctx, p.cfg.PollInterval); err != nil {
			return "", err
		}
	}
}

// read takes a fresh sample, temperature first.
func (p *Policy) read(ctx context.Context, state State) (Reading, error) {
	tf, err := doValue(ctx, p, state, "read_temperature", p.device.ReadTemperatureF)
	if err != nil {
		return Reading{}, err
	}

	rh, err := doValue(ctx, p, state, "read_humidity", p.device.ReadRelativeHumidity)
	if err != nil {
		return Reading{}, err
	}

	temperatureF.Set(tf)
	relativeHumidity.Set(rh)

	events.Emit(ctx, p.sink, events.Event{
		Kind:             events.KindPollReading,
		State:            state.String(),
		TemperatureF:     tf,
		RelativeHumidity: rh,
	})

	return Reading{TemperatureF: tf, RelativeHumidity: rh}, nil
}

func (p *Policy) do(ctx context.Context, state State, op string, f func(ctx context.Context) error) error {
	return retry.Do(ctx, f, p.retryOptions(state, op)...)
}

func doValue[T any](
	ctx context.Context,
	p *Policy,
	state State,
	op string,
	f func(ctx context.Context) (T, error),
) (T, error) {
	return retry.DoValue(ctx, f, p.retryOptions(state, op)...)
}

// retryOptions is the chamber's retry policy: a fixed interval, no attempt
// limit, and no retry of rejected requests.
func (p *Policy) retryOptions(state State, op string) []retry.Option {
	return []retry.Option{
		retry.WithAttempts(retry.Unlimited),
		retry.WithBackoff(retry.ConstBackoff(p.cfg.RetryInterval)),
		retry.WithJitter(retry.WithoutJitter),
		retry.WithTimeout(retry.Timeout(p.cfg.AttemptTimeout)),
		retry.WithRetryable(Retryable),
		retry.WithNotify(func(ctx context.Context, attempt uint, err error, delay time.Duration) {
			retriesTotal.WithLabelValues(state.String(), op).Inc()
			events.Emit(ctx, p.sink, events.Event{
				Kind:      events.KindRetryAttempt,
				State:     state.String(),
				Operation: op,
				Attempt:   attempt,
				Delay:     delay,
				Err:       err,
			})
		}),
	}
}
