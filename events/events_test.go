package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amp-labs/chamber/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection refused")

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()

	Emit(t.Context(), rec, Event{Kind: KindStateEntered, State: "clearing"})
	Emit(t.Context(), rec, Event{Kind: KindPollReading, State: "clearing", RelativeHumidity: 85})
	Emit(t.Context(), rec, Event{Kind: KindPollReading, State: "clearing", RelativeHumidity: 75})

	all := rec.Events()
	require.Len(t, all, 3)
	assert.False(t, all[0].Time.IsZero(), "Emit should stamp the time")

	polls := rec.OfKind(KindPollReading)
	require.Len(t, polls, 2)
	assert.InDelta(t, 75, polls[1].RelativeHumidity, 0)
}

func TestRecorderWaitFor(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()

	go func() {
		time.Sleep(10 * time.Millisecond)
		rec.Emit(context.Background(), Event{Kind: KindStateTransition, From: "clearing", To: "humidifying"})
	}()

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	ev, ok := rec.WaitFor(ctx, func(ev Event) bool { return ev.To == "humidifying" })
	require.True(t, ok)
	assert.Equal(t, "clearing", ev.From)

	short, cancelShort := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancelShort()

	_, ok = rec.WaitFor(short, func(ev Event) bool { return ev.To == "nowhere" })
	assert.False(t, ok)
}

func TestMulti(t *testing.T) {
	t.Parallel()

	first, second := NewRecorder(), NewRecorder()

	var calls int

	sink := Multi(first, nil, second, SinkFunc(func(context.Context, Event) { calls++ }))
	Emit(t.Context(), sink, Event{Kind: KindRetryAttempt, Err: errFlaky})
	Emit(t.Context(), nil, Event{Kind: KindRetryAttempt})

	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
	assert.Equal(t, 1, calls)
}

func TestLogSink(t *testing.T) { //nolint:paralleltest // swaps the default logger
	var buf bytes.Buffer

	logger.ConfigureLoggingWithOptions(logger.Options{
		Subsystem: "test",
		MinLevel:  slog.LevelInfo,
		Output:    &buf,
	})

	sink := LogSink{}
	sink.Emit(t.Context(), Event{Kind: KindPollReading, State: "clearing", TemperatureF: 70, RelativeHumidity: 85})
	sink.Emit(t.Context(), Event{Kind: KindRetryAttempt, Operation: "configure", Delay: 10 * time.Second, Err: errFlaky})
	sink.Emit(t.Context(), Event{Kind: KindStateTransition, From: "clearing", To: "humidifying"})

	out := buf.String()
	assert.Contains(t, out, "relative_humidity=85")
	assert.Contains(t, out, "delay=10s")
	assert.Contains(t, out, "connection refused")
	assert.NotContains(t, out, "state transition", "debug events are below the configured level")
}
