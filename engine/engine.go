// Package engine hosts runtime-bound backends on a single dedicated executor
// goroutine. Jobs are serialised through a bounded queue, the way calls into a
// single embedded virtual machine would be.
package engine

import (
	"context"
	"sync"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

var (
	// ErrRuntimeNotStarted is returned by Submit outside the Start/Stop lifecycle.
	ErrRuntimeNotStarted = errors.New("engine: runtime not started")
	// ErrRuntimeStopped is returned by Start after Stop.
	ErrRuntimeStopped = errors.New("engine: runtime stopped")
)

type job struct {
	fn   func() error
	done chan error
}

// Runtime is a scoped executor. The zero value is not usable; use New.
type Runtime struct {
	queueSize int

	mu      sync.Mutex
	jobs    chan job
	exited  chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
	cancel  context.CancelFunc
}

// New creates a stopped runtime whose queue holds queueSize pending jobs.
func New(queueSize int) *Runtime {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Runtime{queueSize: queueSize}
}

// Start launches the executor goroutine. It is idempotent while running;
// the executor exits when ctx is cancelled or Stop is called.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRuntimeStopped
	}
	if r.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "engine: start")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.jobs = make(chan job, r.queueSize)
	r.exited = make(chan struct{})
	r.started = true
	r.wg.Add(1)
	go r.loop(ctx, r.jobs)
	return nil
}

func (r *Runtime) loop(ctx context.Context, jobs <-chan job) {
	defer r.wg.Done()
	defer close(r.exited)
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			j.done <- errors.SafeExecute("engine.Submit", j.fn)
		case <-ctx.Done():
			// fail whatever is still queued
			for {
				select {
				case j, ok := <-jobs:
					if !ok {
						return
					}
					j.done <- errors.Wrap(ctx.Err(), "engine: runtime cancelled")
				default:
					return
				}
			}
		}
	}
}

// Submit runs fn on the executor goroutine and waits for its result. Panics
// in fn are returned as *errors.PanicError.
func (r *Runtime) Submit(fn func() error) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return ErrRuntimeNotStarted
	}
	j := job{fn: fn, done: make(chan error, 1)}
	exited := r.exited
	// hold the lock while enqueueing so Stop cannot close the channel under us
	select {
	case r.jobs <- j:
	case <-exited:
		r.mu.Unlock()
		return ErrRuntimeNotStarted
	}
	r.mu.Unlock()

	select {
	case err := <-j.done:
		return err
	case <-exited:
		select {
		case err := <-j.done:
			return err
		default:
			return ErrRuntimeNotStarted
		}
	}
}

// Running reports whether Submit currently accepts work.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started && !r.stopped
}

// Stop drains queued jobs and joins the executor. It is idempotent and safe
// to call on a runtime that never started.
func (r *Runtime) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	wasStarted := r.started
	if wasStarted {
		close(r.jobs)
	}
	r.mu.Unlock()

	if wasStarted {
		r.wg.Wait()
		r.cancel()
	}
}

// Scoped starts rt, runs fn, and stops rt exactly once on every exit path,
// including a panic in fn. A nil rt runs fn without a runtime.
func Scoped(ctx context.Context, rt *Runtime, fn func(ctx context.Context) error) (err error) {
	if rt == nil {
		return fn(ctx)
	}
	defer rt.Stop()
	if err := rt.Start(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
