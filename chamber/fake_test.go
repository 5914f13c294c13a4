package chamber

import (
	"context"
	"sync"
	"time"

	"github.com/amp-labs/chamber/remote"
)

// fakeDevice is a scripted remote.Device. Queued errors are returned (and
// consumed) before the call succeeds; humidity readings are consumed one per
// read and the last one repeats.
type fakeDevice struct {
	mu sync.Mutex

	calls []string

	configureErrs []error
	setErrs       []error
	readErrs      []error

	temperature float64
	humidity    []float64

	fan, humidifier bool
}

var _ remote.Device = (*fakeDevice)(nil)

func newFakeDevice(humidity ...float64) *fakeDevice {
	return &fakeDevice{temperature: 70, humidity: humidity}
}

func (f *fakeDevice) record(call string) {
	f.calls = append(f.calls, call)
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}

	err := (*errs)[0]
	*errs = (*errs)[1:]

	return err
}

func (f *fakeDevice) Configure(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("configure")

	return pop(&f.configureErrs)
}

func (f *fakeDevice) SetFan(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record(map[bool]string{true: "fan:on", false: "fan:off"}[on])

	if err := pop(&f.setErrs); err != nil {
		return err
	}

	f.fan = on

	return nil
}

func (f *fakeDevice) SetHumidifier(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record(map[bool]string{true: "hum:on", false: "hum:off"}[on])

	if err := pop(&f.setErrs); err != nil {
		return err
	}

	f.humidifier = on

	return nil
}

func (f *fakeDevice) ReadTemperatureF(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("read:tf")

	if err := pop(&f.readErrs); err != nil {
		return 0, err
	}

	return f.temperature, nil
}

func (f *fakeDevice) ReadRelativeHumidity(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("read:rh")

	if err := pop(&f.readErrs); err != nil {
		return 0, err
	}

	rh := f.humidity[0]
	if len(f.humidity) > 1 {
		f.humidity = f.humidity[1:]
	}

	return rh, nil
}

func (f *fakeDevice) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	copy(out, f.calls)

	return out
}

// sleepRecorder is a Sleeper that returns immediately and remembers what it
// was asked to wait for.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()

	return ctx.Err()
}

func (s *sleepRecorder) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)

	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Server.Address = "chamber.test"
	cfg.RetryInterval = time.Millisecond
	cfg.RecoveryDelay = time.Millisecond

	return cfg
}
