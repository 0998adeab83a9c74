package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned by Submit when every worker is busy and the queue is at capacity.
	ErrQueueFull = errors.New("worker: job queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker: dispatcher stopped")
)

// Job is a unit of work run by a Worker.
type Job interface {
	ID() string
	// Execute runs the job. ctx is cancelled when the dispatcher stops.
	Execute(ctx context.Context) error
}

// Worker pulls jobs from its own channel after registering that channel in the
// shared worker pool.
type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	quit       <-chan struct{}
	wg         *sync.WaitGroup
	log        logrus.FieldLogger
}

func newWorker(id int, pool chan chan Job, quit <-chan struct{}, wg *sync.WaitGroup, log logrus.FieldLogger) Worker {
	return Worker{
		ID:         id,
		WorkerPool: pool,
		JobChannel: make(chan Job),
		quit:       quit,
		wg:         wg,
		log:        log.WithField("worker", id),
	}
}

func (w Worker) start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-w.quit:
				return
			}

			select {
			case job := <-w.JobChannel:
				w.run(ctx, job)
			case <-w.quit:
				return
			}
		}
	}()
}

func (w Worker) run(ctx context.Context, job Job) {
	log := w.log.WithField("job_id", job.ID())
	log.Debug("job started")
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("job panicked")
		}
	}()
	if err := job.Execute(ctx); err != nil {
		log.WithError(err).Warn("job failed")
		return
	}
	log.Debug("job finished")
}

// Dispatcher owns a fixed set of workers and a bounded queue feeding them.
type Dispatcher struct {
	MaxWorkers int
	WorkerPool chan chan Job
	JobQueue   chan Job
	workers    []Worker

	wg      sync.WaitGroup
	quit    chan struct{}
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	started bool
	stopped bool
	log     logrus.FieldLogger
}

// NewDispatcher creates a dispatcher with maxWorkers workers and room for
// queueSize waiting jobs.
func NewDispatcher(maxWorkers, queueSize int, log logrus.FieldLogger) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		MaxWorkers: maxWorkers,
		WorkerPool: make(chan chan Job, maxWorkers),
		JobQueue:   make(chan Job, queueSize),
		workers:    make([]Worker, 0, maxWorkers),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		log:        log.WithField("component", "dispatcher"),
	}
}

// Run starts the workers and the dispatch loop.
func (d *Dispatcher) Run() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	d.log.WithField("workers", d.MaxWorkers).Info("dispatcher starting")
	for i := 1; i <= d.MaxWorkers; i++ {
		w := newWorker(i, d.WorkerPool, d.quit, &d.wg, d.log)
		d.workers = append(d.workers, w)
		w.start(d.ctx)
	}
	go d.dispatch()
}

// dispatch hands each queued job to the next idle worker. It holds at most one
// job while waiting, so the queue capacity bounds the backlog.
func (d *Dispatcher) dispatch() {
	defer close(d.done)
	for {
		select {
		case job := <-d.JobQueue:
			select {
			case ch := <-d.WorkerPool:
				select {
				case ch <- job:
				case <-d.quit:
					d.abandon(job)
					return
				}
			case <-d.quit:
				d.abandon(job)
				return
			}
		case <-d.quit:
			return
		}
	}
}

// abandon runs a job that will never reach a worker with the cancelled
// dispatcher context, so it can report back to whoever is waiting on it.
func (d *Dispatcher) abandon(job Job) {
	if err := job.Execute(d.ctx); err != nil {
		d.log.WithField("job_id", job.ID()).WithError(err).Debug("job abandoned at shutdown")
	}
}

// Submit queues a job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.JobQueue <- job:
		d.log.WithField("job_id", job.ID()).Debug("job queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of jobs waiting for a worker.
func (d *Dispatcher) Pending() int {
	return len(d.JobQueue)
}

// Stop cancels running jobs, waits for the workers to exit and abandons
// whatever is still queued. It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	d.log.Info("dispatcher stopping")
	d.cancel()
	close(d.quit)
	d.wg.Wait()
	if started {
		<-d.done
	}

	for {
		select {
		case job := <-d.JobQueue:
			d.abandon(job)
		default:
			d.log.Info("dispatcher stopped")
			return
		}
	}
}
