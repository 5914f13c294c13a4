// Package events is the structured side channel of the control loop. The
// runner, the retry policy and the chamber states emit discrete events into
// an injected Sink instead of writing log lines directly, so tests can
// assert on what happened and production can render the same events
// through slog.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind identifies an event type.
type Kind string

const (
	// KindStateEntered is emitted before a state behavior runs.
	KindStateEntered Kind = "state-entered"
	// KindStateTransition is emitted when a state returns its successor.
	KindStateTransition Kind = "state-transition"
	// KindRecoveryEntered is emitted when the runner falls back to the recovery state.
	KindRecoveryEntered Kind = "recovery-entered"
	// KindRetryAttempt is emitted when a remote call failed and will be retried.
	KindRetryAttempt Kind = "retry-attempt"
	// KindPollReading is emitted for every temperature/humidity poll.
	KindPollReading Kind = "poll-reading"
	// KindActuatorSet is emitted after an actuator command was confirmed.
	KindActuatorSet Kind = "actuator-set"
)

// Event is a single observation. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	Time time.Time

	// State is the state the event happened in.
	State string
	// From and To describe transitions and recoveries.
	From string
	To   string

	// Err is the failure behind a retry or a recovery.
	Err error
	// Reason explains a recovery ("unknown state", "state failed").
	Reason string

	// Attempt is the zero-based index of the failed attempt; Delay is the
	// wait before the next one.
	Attempt uint
	Delay   time.Duration

	// Operation names the remote call being retried or the actuator being set.
	Operation string
	On        bool

	TemperatureF     float64
	RelativeHumidity float64
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {}) //nolint:gochecknoglobals

type multiSink []Sink

func (m multiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Multi fans every event out to all non-nil sinks, in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return out
}

// Emit stamps ev with the current time if needed and sends it to sink.
// A nil sink is allowed.
func Emit(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}

	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	sink.Emit(ctx, ev)
}

// Recorder keeps every event in memory. It is meant for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)

	return out
}

// OfKind returns the recorded events of the given kind.
func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event

	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}

	return out
}

// WaitFor blocks until match returns true for some recorded event or ctx is
// done. It returns the matching event.
func (r *Recorder) WaitFor(ctx context.Context, match func(Event) bool) (Event, bool) {
	for {
		for _, ev := range r.Events() {
			if match(ev) {
				return ev, true
			}
		}

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-r.notify:
		}
	}
}
