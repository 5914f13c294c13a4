// Package bgworker runs long-lived background tasks on a shared pond pool
// that is drained on shutdown.
//
// Every task receives a context that is cancelled either when the caller's
// context is done or when the pool starts stopping, so tasks that honor
// their context never hold up shutdown.
package bgworker

import (
	"context"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/chamber/envutil"
	"github.com/amp-labs/chamber/logger"
	"github.com/amp-labs/chamber/shutdown"
)

const defaultWorkerCount = 10

type workerPool struct {
	pool pond.Pool
	stop context.Context //nolint:containedctx
}

var (
	mut    sync.Mutex  //nolint:gochecknoglobals
	shared *workerPool //nolint:gochecknoglobals
)

// get returns the shared pool, creating it on first use. The size comes from
// BACKGROUND_WORKER_COUNT (default 10).
func get(ctx context.Context) *workerPool {
	mut.Lock()
	defer mut.Unlock()

	if shared != nil {
		return shared
	}

	count := envutil.Int(ctx, "BACKGROUND_WORKER_COUNT",
		envutil.Default(defaultWorkerCount), envutil.Positive[int]()).ValueOrElse(defaultWorkerCount)

	log := logger.Get(ctx)
	log.Debug("Initializing background worker pool", "count", count)

	wp, stop := newWorkerPool(count)

	shutdown.BeforeShutdown(func() {
		log.Debug("Stopping background worker pool")
		stop()
		log.Debug("Background worker pool stopped")
	})

	shared = wp

	return wp
}

// newWorkerPool returns a pool of count workers and the function that cancels
// its tasks and waits for them to return.
func newWorkerPool(count int) (*workerPool, func()) {
	stop, cancel := context.WithCancel(context.Background())
	wp := &workerPool{pool: pond.NewPool(count), stop: stop}

	return wp, func() {
		cancel()
		wp.pool.StopAndWait()
	}
}

// Go runs f on the background pool and returns immediately. It fails only
// when the pool has already been stopped.
func Go(ctx context.Context, f func(ctx context.Context)) error {
	return get(ctx).run(ctx, f)
}

func (wp *workerPool) run(ctx context.Context, f func(ctx context.Context)) error {
	taskCtx, cancel := context.WithCancel(ctx)
	unlink := context.AfterFunc(wp.stop, cancel)

	err := wp.pool.Go(func() {
		defer cancel()
		defer unlink()

		f(taskCtx)
	})
	if err != nil {
		unlink()
		cancel()

		return err
	}

	return nil
}
