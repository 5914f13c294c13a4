// Package shutdown turns SIGINT/SIGTERM into context cancellation. The
// control loop has no other way to stop: every suspension point watches the
// context returned by SetupHandler.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []func()       //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before the context
// returned by SetupHandler is canceled. Hooks run in registration order.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process programmatically. It is a no-op when
// no handler is installed or a shutdown is already pending.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch == nil {
		return
	}

	select {
	case ch <- os.Interrupt:
	default:
	}
}

// SetupHandler installs the signal handler and returns a context that is
// canceled after the first SIGINT or SIGTERM, once all hooks have run.
func SetupHandler() context.Context {
	ch := make(chan os.Signal, 1)

	mut.Lock()
	channel = ch
	mut.Unlock()

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sig := <-ch

		signal.Stop(ch)

		mut.Lock()
		if channel == ch {
			channel = nil
		}
		mut.Unlock()

		slog.Warn("Received " + sig.String() + ", shutting down...")

		cleanup()
		cancel()
	}()

	return ctx
}

func cleanup() {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	for _, h := range pending {
		h()
	}
}
