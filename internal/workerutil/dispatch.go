package workerutil

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Dispatcher runs submitted jobs in submission order on one background
// worker. Submit never blocks: when the queue is full the job is dropped and
// onDrop is called, so a slow sink cannot stall producers such as a network
// reader or a keyboard hook.
//
// A job that panics is lost; the worker itself is restarted by
// RunWithPanicRecovery.
type Dispatcher struct {
	name   string
	queue  chan func()
	onDrop func()

	started  atomic.Bool
	stopped  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with a queue of size jobs. onDrop may be
// nil.
func NewDispatcher(name string, size int, onDrop func()) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		name:   name,
		queue:  make(chan func(), size),
		onDrop: onDrop,
		done:   make(chan struct{}),
	}
}

// Start launches the worker. Calling Start more than once has no effect.
func (d *Dispatcher) Start(ctx context.Context, opts RecoveryOptions) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	RunWithPanicRecovery(ctx, d.name, &d.wg, d.run, opts)
}

// Submit queues job. It returns false when the job was dropped because the
// dispatcher is stopped or its queue is full.
func (d *Dispatcher) Submit(job func()) bool {
	if job == nil || d.stopped.Load() {
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		slog.Debug("[DEBUG-WORKER] dispatch queue full, dropping job", "worker", d.name)
		if d.onDrop != nil {
			d.onDrop()
		}
		return false
	}
}

// Pending reports the number of queued jobs.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Stop rejects new jobs, runs the jobs already queued and waits for the
// worker to exit. Safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.done)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			d.drain()
			return
		case job := <-d.queue:
			job()
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case job := <-d.queue:
			job()
		default:
			return
		}
	}
}
