// Package periodic runs callbacks at a fixed interval until stopped,
// e.g. to report the progress of long-running scripts.
package periodic

import (
	"context"
	"sync"
	"time"
)

// Option configures Start.
type Option func(*task)

// Stopper stops a task started by Start.
type Stopper interface {
	// Stop stops the ticker and waits until a running callback and the OnStop callback have returned.
	// It is safe to call Stop more than once.
	Stop()
}

// Tick is passed to the callbacks of a task.
type Tick struct {
	// Elapsed is the time since the task was started.
	Elapsed time.Duration
	Time    time.Time
	// Count is the number of callbacks so far, including this one.
	Count int64
}

// Immediate calls the callback once right away instead of waiting for the first tick.
func Immediate() Option {
	return func(t *task) {
		t.immediate = true
	}
}

// OnStop sets a callback which is called once the task is stopped or its context is done.
func OnStop(f func(Tick)) Option {
	return func(t *task) {
		t.onStop = f
	}
}

// Start calls callback every interval in a separate goroutine until ctx is done or Stop is called.
// Callbacks never overlap. If one takes longer than interval, the next one follows right after it.
// The interval must be greater than zero.
func Start(ctx context.Context, interval time.Duration, callback func(Tick), options ...Option) Stopper {
	t := &task{callback: callback, start: time.Now()}
	for _, option := range options {
		option(t)
	}

	if ctx.Err() != nil {
		t.stopped(t.start)

		return stopperFunc(func() {})
	}

	if t.immediate {
		t.count++
		t.callback(Tick{Time: t.start, Count: t.count})
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				t.count++
				t.callback(Tick{Elapsed: now.Sub(t.start), Time: now, Count: t.count})
			case <-ctx.Done():
				t.stopped(time.Now())

				return
			}
		}
	}()

	var once sync.Once

	return stopperFunc(func() {
		once.Do(func() {
			cancel()
			<-done
		})
	})
}

type task struct {
	callback  func(Tick)
	onStop    func(Tick)
	immediate bool
	start     time.Time
	count     int64
}

func (t *task) stopped(now time.Time) {
	if t.onStop != nil {
		t.onStop(Tick{Elapsed: now.Sub(t.start), Time: now, Count: t.count})
	}
}

type stopperFunc func()

func (f stopperFunc) Stop() {
	f()
}
