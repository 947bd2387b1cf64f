// Package workerpool bounds concurrent task handling so a host (the TCP
// server, a future batch replay tool) never leaks one goroutine per
// connection past shutdown. Grounded in the teacher's internal/worker.go
// WorkerPool, but the dispatch strategy itself is reworked: the teacher's
// Setup spins a tight `for { select { default: ... } }` loop that busy-polls
// once activeWorkers reaches n (every iteration re-enters the default case
// and spends CPU until a worker goroutine happens to decrement the
// counter); this version starts exactly n long-lived worker goroutines once
// and blocks each on the shared channel, so an idle-but-full pool costs
// nothing. AddTask is also non-blocking and reports whether the task was
// actually queued, giving callers (internal/net.Server) a real backpressure
// signal instead of blocking indefinitely on an unbounded-in-practice
// buffered channel.
package workerpool

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultQueueCapacity = 100

// Func is the unit of work a Pool dispatches to a worker goroutine.
type Func = func(t *tomb.Tomb, task any) error

// Pool runs exactly n worker goroutines, all pulling from one bounded task
// queue and bound to a shared tomb.Tomb for coordinated shutdown.
type Pool struct {
	n        int
	tasks    chan any
	work     Func
	inFlight int64 // atomic: tasks currently queued or being worked
}

// New returns a pool sized to run up to n concurrent workers, with the
// default queue capacity.
func New(n int) *Pool {
	return NewWithQueueCapacity(n, defaultQueueCapacity)
}

// NewWithQueueCapacity is New with an explicit bound on how many tasks may
// sit queued (beyond the n currently being worked) before AddTask starts
// reporting backpressure.
func NewWithQueueCapacity(n, queueCapacity int) *Pool {
	return &Pool{
		n:     n,
		tasks: make(chan any, queueCapacity),
	}
}

// AddTask enqueues task for the next free worker without blocking. It
// returns false if the queue is currently full, meaning the caller must
// apply its own backpressure (internal/net.Server closes the connection
// rather than stacking up unbounded pending work behind it).
func (p *Pool) AddTask(task any) bool {
	select {
	case p.tasks <- task:
		atomic.AddInt64(&p.inFlight, 1)
		return true
	default:
		return false
	}
}

// Pending reports how many tasks are currently queued or being worked,
// for the metrics/log surface to observe saturation.
func (p *Pool) Pending() int {
	return int(atomic.LoadInt64(&p.inFlight))
}

// Capacity returns the queue's maximum depth beyond the n in-flight workers.
func (p *Pool) Capacity() int {
	return cap(p.tasks)
}

// Setup starts exactly n worker goroutines under t, each blocking on the
// shared task queue until t is dying.
func (p *Pool) Setup(t *tomb.Tomb, work Func) {
	p.work = work
	log.Info().Int("workers", p.n).Int("queue_capacity", cap(p.tasks)).Msg("workerpool: starting")

	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.runWorker(t)
		})
	}
}

// runWorker processes tasks off the shared queue until t is dying or work
// returns an error, matching the teacher's per-worker contract (a returned
// error is fatal to that worker, not the whole pool).
func (p *Pool) runWorker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			err := p.work(t, task)
			atomic.AddInt64(&p.inFlight, -1)
			if err != nil {
				log.Error().Err(err).Msg("workerpool: worker exiting")
				// Returning err would kill t and every other worker with it.
				return nil
			}
		}
	}
}
