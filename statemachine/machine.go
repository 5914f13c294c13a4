// Package statemachine runs a set of named states forever. Each state does
// its work and names its successor; a state that fails, or a successor that
// does not exist, sends the machine to a designated recovery state. The
// runner itself never fails: Run returns only when its context is done.
//
// Usage:
//
//	m := statemachine.New(map[string]statemachine.Func[string]{
//	    "start": func(ctx context.Context) (string, error) { return "poll", nil },
//	    "poll":  pollOnce,
//	})
//
//	err := m.Run(ctx, "start", "start")
package statemachine

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/amp-labs/chamber/events"
	"github.com/amp-labs/chamber/logger"
)

// Func is the behavior of a single state. It returns the name of the next
// state, or an error which sends the machine to the recovery state.
type Func[S comparable] func(ctx context.Context) (S, error)

// Machine is an immutable mapping from state names to behaviors.
type Machine[S comparable] struct {
	states map[S]Func[S]
	opts   options
}

// New builds a machine from states. The map is copied.
func New[S comparable](states map[S]Func[S], opts ...Option) *Machine[S] {
	o := options{
		name: defaultName,
		sink: events.LogSink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return &Machine[S]{
		states: maps.Clone(states),
		opts:   o,
	}
}

// Has reports whether state is registered.
func (m *Machine[S]) Has(state S) bool {
	_, ok := m.states[state]

	return ok
}

// Run executes states starting at initial until ctx is done. Exactly one
// state runs at a time. The returned error wraps ctx.Err() in a StateError
// naming the state that was current, or is ErrRecoveryNotFound when
// recovery is not registered.
func (m *Machine[S]) Run(ctx context.Context, initial, recovery S) (err error) {
	if !m.Has(recovery) {
		return WrapStateError(nameOf(recovery), ErrRecoveryNotFound)
	}

	ctx, span := startRunSpan(ctx, m.opts.name, nameOf(initial), nameOf(recovery))
	defer func() { endSpan(span, 0, err) }()

	next := initial

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return WrapStateError(nameOf(next), ctxErr)
		}

		current := next

		behavior, ok := m.states[current]
		if !ok {
			m.enterRecovery(ctx, current, recovery, reasonUnknownState,
				fmt.Errorf("%w: %s", ErrUnknownState, nameOf(current)))

			next = recovery

			continue
		}

		result, stateErr := m.execute(ctx, current, behavior)
		if stateErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return WrapStateError(nameOf(current), ctxErr)
			}

			m.enterRecovery(ctx, current, recovery, reasonStateFailed, stateErr)

			if err := Sleep(ctx, m.opts.recoveryDelay); err != nil {
				return WrapStateError(nameOf(current), err)
			}

			next = recovery

			continue
		}

		transitionTotal.WithLabelValues(m.opts.name, nameOf(current), nameOf(result)).Inc()
		events.Emit(ctx, m.opts.sink, events.Event{
			Kind:  events.KindStateTransition,
			State: nameOf(current),
			From:  nameOf(current),
			To:    nameOf(result),
		})

		next = result
	}
}

// execute runs one state inside its own span and records its outcome.
func (m *Machine[S]) execute(ctx context.Context, state S, behavior Func[S]) (S, error) {
	name := nameOf(state)

	events.Emit(ctx, m.opts.sink, events.Event{
		Kind:  events.KindStateEntered,
		State: name,
	})

	stateCtx, span := startStateSpan(ctx, m.opts.name, name)
	stateCtx = logger.With(stateCtx, "state", name)

	start := time.Now()
	result, err := behavior(stateCtx)
	elapsed := time.Since(start)

	endSpan(span, elapsed, err)

	outcome := outcomeOf(err)
	stateVisitsTotal.WithLabelValues(m.opts.name, name, outcome).Inc()
	stateDuration.WithLabelValues(m.opts.name, name, outcome).Observe(elapsed.Seconds())

	return result, err
}

func (m *Machine[S]) enterRecovery(ctx context.Context, from, to S, reason string, err error) {
	recoveriesTotal.WithLabelValues(m.opts.name, reason).Inc()

	events.Emit(ctx, m.opts.sink, events.Event{
		Kind:   events.KindRecoveryEntered,
		State:  nameOf(from),
		From:   nameOf(from),
		To:     nameOf(to),
		Reason: reason,
		Err:    err,
	})
}

func nameOf[S comparable](state S) string {
	return fmt.Sprint(state)
}

// Sleep waits for d or until ctx is done, whichever comes first. A
// non-positive d returns at once.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
