// Package periodic runs a function on a fixed interval until it asks to stop or is cancelled.
package periodic

import (
	"context"
	"time"
)

// Func is one tick. Returning false ends the task.
type Func func(ctx context.Context) bool

type options struct {
	immediately bool
}

type Option func(*options)

// Immediately - run the first tick right away instead of after one interval.
func Immediately() Option {
	return func(o *options) {
		o.immediately = true
	}
}

// Handle controls a running task. The zero and nil values are stopped handles.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start - runs fn every interval in its own goroutine. Ticks never overlap: a slow tick delays the next one.
func Start(parent context.Context, interval time.Duration, fn Func, opts ...Option) *Handle {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(parent)
	handle := &Handle{cancel: cancel, done: make(chan struct{})}

	go handle.run(ctx, interval, fn, cfg)

	return handle
}

func (that *Handle) run(ctx context.Context, interval time.Duration, fn Func, cfg options) {
	defer close(that.done)
	defer that.cancel()

	if cfg.immediately {
		if !fn(ctx) || ctx.Err() != nil {
			return
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !fn(ctx) || ctx.Err() != nil {
				return
			}
		}
	}
}

// Stop - cancels the task. Safe to call many times and from inside the tick itself.
func (that *Handle) Stop() {
	if that == nil || that.cancel == nil {
		return
	}

	that.cancel()
}

// Done - closed once the task goroutine has returned.
func (that *Handle) Done() <-chan struct{} {
	if that == nil || that.done == nil {
		closed := make(chan struct{})
		close(closed)

		return closed
	}

	return that.done
}

// Wait - blocks until the task has returned. Must not be called from inside the tick.
func (that *Handle) Wait() {
	<-that.Done()
}
