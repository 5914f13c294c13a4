package statemachine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amp-labs/chamber/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStateFailed = errors.New("state failed")

// transitionsOf returns the from->to pairs recorded so far.
func transitionsOf(rec *events.Recorder) [][2]string {
	var out [][2]string

	for _, ev := range rec.OfKind(events.KindStateTransition) {
		out = append(out, [2]string{ev.From, ev.To})
	}

	return out
}

func TestRunFollowsTransitions(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	rec := events.NewRecorder()
	visits := 0

	m := New(map[string]Func[string]{
		"a": func(context.Context) (string, error) { return "b", nil },
		"b": func(context.Context) (string, error) { return "c", nil },
		"c": func(context.Context) (string, error) {
			visits++
			if visits == 2 {
				cancel()
			}

			return "a", nil
		},
	}, WithSink(rec), WithName(t.Name()))

	err := m.Run(ctx, "a", "a")
	require.ErrorIs(t, err, context.Canceled)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "a", stateErr.State)

	assert.Equal(t, [][2]string{
		{"a", "b"}, {"b", "c"}, {"c", "a"},
		{"a", "b"}, {"b", "c"}, {"c", "a"},
	}, transitionsOf(rec))
	assert.Empty(t, rec.OfKind(events.KindRecoveryEntered))
}

func TestUnknownStateGoesToRecovery(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	rec := events.NewRecorder()
	recovered := 0

	m := New(map[string]Func[string]{
		"start": func(context.Context) (string, error) { return "nowhere", nil },
		"recovery": func(context.Context) (string, error) {
			recovered++
			cancel()

			return "start", nil
		},
	}, WithSink(rec), WithName(t.Name()))

	err := m.Run(ctx, "start", "recovery")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, recovered)

	recoveries := rec.OfKind(events.KindRecoveryEntered)
	require.Len(t, recoveries, 1)
	assert.Equal(t, "nowhere", recoveries[0].From)
	assert.Equal(t, "recovery", recoveries[0].To)
	assert.Equal(t, reasonUnknownState, recoveries[0].Reason)
	require.ErrorIs(t, recoveries[0].Err, ErrUnknownState)

	// The unknown name is never entered.
	for _, ev := range rec.OfKind(events.KindStateEntered) {
		assert.NotEqual(t, "nowhere", ev.State)
	}
}

func TestUnknownInitialStateGoesToRecovery(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	rec := events.NewRecorder()

	m := New(map[string]Func[string]{
		"recovery": func(context.Context) (string, error) {
			cancel()

			return "recovery", nil
		},
	}, WithSink(rec), WithName(t.Name()))

	require.ErrorIs(t, m.Run(ctx, "missing", "recovery"), context.Canceled)
	require.Len(t, rec.OfKind(events.KindRecoveryEntered), 1)
}

func TestFailingStateGoesToRecovery(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	rec := events.NewRecorder()

	var order []string

	m := New(map[string]Func[string]{
		"configuring": func(context.Context) (string, error) {
			order = append(order, "configuring")
			if len(order) > 1 {
				cancel()
			}

			return "working", nil
		},
		"working": func(context.Context) (string, error) {
			order = append(order, "working")

			return "", errStateFailed
		},
	}, WithSink(rec), WithName(t.Name()))

	err := m.Run(ctx, "configuring", "configuring")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"configuring", "working", "configuring"}, order)

	recoveries := rec.OfKind(events.KindRecoveryEntered)
	require.Len(t, recoveries, 1)
	assert.Equal(t, "working", recoveries[0].From)
	assert.Equal(t, "configuring", recoveries[0].To)
	assert.Equal(t, reasonStateFailed, recoveries[0].Reason)
	require.ErrorIs(t, recoveries[0].Err, errStateFailed)
}

func TestRecoveryFailingLoopsOnRecovery(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	attempts := 0

	m := New(map[string]Func[string]{
		"recovery": func(context.Context) (string, error) {
			attempts++
			if attempts == 3 {
				cancel()
			}

			return "", errStateFailed
		},
	}, WithSink(events.Discard), WithName(t.Name()))

	err := m.Run(ctx, "recovery", "recovery")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, attempts)
}

func TestRecoveryNotFound(t *testing.T) {
	t.Parallel()

	called := false

	m := New(map[string]Func[string]{
		"start": func(context.Context) (string, error) {
			called = true

			return "start", nil
		},
	}, WithSink(events.Discard))

	err := m.Run(t.Context(), "start", "recovery")
	require.ErrorIs(t, err, ErrRecoveryNotFound)
	assert.False(t, called)
}

func TestRecoveryDelay(t *testing.T) {
	t.Parallel()

	const delay = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var failedAt, recoveredAt time.Time

	m := New(map[string]Func[string]{
		"recovery": func(context.Context) (string, error) {
			recoveredAt = time.Now()
			cancel()

			return "recovery", nil
		},
		"broken": func(context.Context) (string, error) {
			failedAt = time.Now()

			return "", errStateFailed
		},
	}, WithSink(events.Discard), WithRecoveryDelay(delay), WithName(t.Name()))

	require.ErrorIs(t, m.Run(ctx, "broken", "recovery"), context.Canceled)
	assert.GreaterOrEqual(t, recoveredAt.Sub(failedAt), delay)
}

func TestCancelDuringRecoveryDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	m := New(map[string]Func[string]{
		"recovery": func(context.Context) (string, error) {
			cancel()

			return "", errStateFailed
		},
	}, WithSink(events.Discard), WithRecoveryDelay(time.Hour), WithName(t.Name()))

	done := make(chan error, 1)

	go func() { done <- m.Run(ctx, "recovery", "recovery") }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestCancelWhileStateBlocks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	rec := events.NewRecorder()

	m := New(map[string]Func[string]{
		"waiting": func(ctx context.Context) (string, error) {
			<-ctx.Done()

			return "", ctx.Err()
		},
	}, WithSink(rec), WithName(t.Name()))

	done := make(chan error, 1)

	go func() { done <- m.Run(ctx, "waiting", "waiting") }()

	_, ok := rec.WaitFor(t.Context(), func(ev events.Event) bool {
		return ev.Kind == events.KindStateEntered
	})
	require.True(t, ok)
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "waiting", stateErr.State)

	// Cancellation is not a failure.
	assert.Empty(t, rec.OfKind(events.KindRecoveryEntered))
}

func TestNewCopiesStates(t *testing.T) {
	t.Parallel()

	states := map[string]Func[string]{
		"a": func(context.Context) (string, error) { return "a", nil },
	}

	m := New(states)
	delete(states, "a")
	states["b"] = func(context.Context) (string, error) { return "b", nil }

	assert.True(t, m.Has("a"))
	assert.False(t, m.Has("b"))
}

type light int

const (
	red light = iota
	green
)

func (l light) String() string {
	if l == red {
		return "red"
	}

	return "green"
}

func TestTypedStatesAndMetrics(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	name := t.Name()
	turns := 0

	m := New(map[light]Func[light]{
		red: func(context.Context) (light, error) { return green, nil },
		green: func(context.Context) (light, error) {
			turns++
			if turns == 2 {
				cancel()

				return red, nil
			}

			return red, errStateFailed
		},
	}, WithSink(events.Discard), WithName(name))

	require.ErrorIs(t, m.Run(ctx, red, red), context.Canceled)

	assert.InDelta(t, 2, testutil.ToFloat64(transitionTotal.WithLabelValues(name, "red", "green")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(transitionTotal.WithLabelValues(name, "green", "red")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(recoveriesTotal.WithLabelValues(name, reasonStateFailed)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(stateVisitsTotal.WithLabelValues(name, "red", outcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stateVisitsTotal.WithLabelValues(name, "green", outcomeError)), 0)
}

func TestSleep(t *testing.T) {
	t.Parallel()

	require.NoError(t, Sleep(t.Context(), time.Millisecond))
	require.NoError(t, Sleep(t.Context(), 0))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, Sleep(ctx, 0), "non-positive waits return at once")
}
