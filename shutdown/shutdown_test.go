package shutdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	mut.Lock()
	defer mut.Unlock()

	hooks = nil
	channel = nil
}

func TestBeforeShutdown(t *testing.T) { //nolint:paralleltest // global state
	reset()

	var called atomic.Int32

	BeforeShutdown(func() { called.Add(1) })
	BeforeShutdown(func() { called.Add(10) })

	mut.Lock()
	assert.Len(t, hooks, 2)
	mut.Unlock()

	cleanup()

	assert.Equal(t, int32(11), called.Load())

	mut.Lock()
	assert.Nil(t, hooks)
	mut.Unlock()
}

func TestShutdownCancelsContext(t *testing.T) { //nolint:paralleltest // global state
	reset()

	ctx := SetupHandler()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	var hookCalled atomic.Bool

	BeforeShutdown(func() { hookCalled.Store(true) })

	Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled after Shutdown")
	}

	assert.True(t, hookCalled.Load())

	mut.Lock()
	require.Nil(t, channel)
	mut.Unlock()

	// A second call has nothing to signal and must not block.
	Shutdown()
}

func TestShutdownWithoutHandler(t *testing.T) { //nolint:paralleltest // global state
	reset()

	done := make(chan struct{})

	go func() {
		Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown blocked without a handler")
	}
}
