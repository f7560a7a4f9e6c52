package worker

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is a unit of work the pool executes.
type Job interface {
	Execute() error
	ID() string
}

// Worker pulls jobs from the shared pool and runs them in its own goroutine.
type Worker struct {
	id         int
	workerPool chan chan Job
	jobChannel chan Job
	quit       chan struct{}
	wg         *sync.WaitGroup
	log        *logrus.Logger
}

func newWorker(id int, workerPool chan chan Job, wg *sync.WaitGroup, log *logrus.Logger) *Worker {
	return &Worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan Job),
		quit:       make(chan struct{}),
		wg:         wg,
		log:        log,
	}
}

func (w *Worker) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			// Register this worker's channel so the dispatcher can hand it a job.
			select {
			case w.workerPool <- w.jobChannel:
			case <-w.quit:
				return
			}

			select {
			case job := <-w.jobChannel:
				w.log.WithFields(logrus.Fields{"worker": w.id, "job": job.ID()}).Info("job started")
				if err := job.Execute(); err != nil {
					w.log.WithFields(logrus.Fields{"worker": w.id, "job": job.ID(), "error": err.Error()}).Error("job failed")
				} else {
					w.log.WithFields(logrus.Fields{"worker": w.id, "job": job.ID()}).Info("job finished")
				}
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *Worker) stop() {
	close(w.quit)
}

// Dispatcher fans incoming jobs out to a fixed pool of workers.
type Dispatcher struct {
	maxWorkers int
	workerPool chan chan Job
	jobQueue   chan Job
	workers    []*Worker
	wg         sync.WaitGroup
	quit       chan struct{}
	log        *logrus.Logger
}

func NewDispatcher(maxWorkers, queueSize int, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		maxWorkers: maxWorkers,
		workerPool: make(chan chan Job, maxWorkers),
		jobQueue:   make(chan Job, queueSize),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the workers and the dispatch loop.
func (d *Dispatcher) Run() {
	d.log.WithField("workers", d.maxWorkers).Info("dispatcher starting")
	for i := 1; i <= d.maxWorkers; i++ {
		w := newWorker(i, d.workerPool, &d.wg, d.log)
		d.workers = append(d.workers, w)
		w.start()
	}
	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			// Block until a worker frees up, then hand the job over.
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.quit:
					return
				}
			case <-d.quit:
				return
			}
		case <-d.quit:
			return
		}
	}
}

// Submit queues a job without blocking. It reports false when the queue is
// full, so the caller can leave the job pending for a later poll.
func (d *Dispatcher) Submit(job Job) bool {
	select {
	case d.jobQueue <- job:
		return true
	default:
		d.log.WithField("job", job.ID()).Warn("job queue full, leaving job for next poll")
		return false
	}
}

// Stop shuts down the dispatch loop, then the workers, waiting for in-flight
// jobs to finish.
func (d *Dispatcher) Stop() {
	close(d.quit)
	for _, w := range d.workers {
		w.stop()
	}
	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}
