// Package queue bridges the durable transcription_jobs table and the
// in-process worker pool.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"salescoach/internal/store"
	"salescoach/internal/worker"
	"salescoach/models"
)

// JobFactory turns a claimed queue row into an executable job.
type JobFactory func(job models.TranscriptionJob) worker.Job

// Poller repeatedly claims pending jobs and submits them to the dispatcher.
type Poller struct {
	store      store.JobStore
	dispatcher *worker.Dispatcher
	factory    JobFactory
	interval   time.Duration
	log        *logrus.Logger
}

func NewPoller(jobStore store.JobStore, dispatcher *worker.Dispatcher, factory JobFactory, interval time.Duration, log *logrus.Logger) *Poller {
	return &Poller{
		store:      jobStore,
		dispatcher: dispatcher,
		factory:    factory,
		interval:   interval,
		log:        log,
	}
}

// Run blocks until ctx is canceled, draining pending jobs every interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.drain(ctx)
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drain claims jobs until the queue is empty or the dispatcher is full.
func (p *Poller) drain(ctx context.Context) {
	for {
		job, err := p.store.ClaimNextJob(ctx)
		if err != nil {
			if !errors.Is(err, store.ErrNoPendingJobs) {
				p.log.WithError(err).Error("failed to poll transcription jobs")
			}
			return
		}
		p.log.WithFields(logrus.Fields{"job_id": job.ID, "recording_id": job.RecordingID}).Info("claimed transcription job")
		if !p.dispatcher.Submit(p.factory(*job)) {
			// The claim already moved the row to processing; put the failure
			// on record rather than leaving it stuck there.
			if failErr := p.store.FailJob(ctx, job.ID, "worker queue full"); failErr != nil {
				p.log.WithError(failErr).Error("failed to release job after full queue")
			}
			return
		}
	}
}
