// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package services

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// ErrQueueFull is returned when the trigger queue has no free slot.
var ErrQueueFull = errors.New("trigger queue is full")

// TriggerOutcome describes what happened to an accepted trigger.
type TriggerOutcome string

const (
	// OutcomeQueued means a new job was added to the queue.
	OutcomeQueued TriggerOutcome = "queued"

	// OutcomeCoalesced means an identical job was already pending.
	OutcomeCoalesced TriggerOutcome = "coalesced"
)

// BatchRunner runs the batch driver. *recommend.BatchRunner implements it.
type BatchRunner interface {
	RunAll(ctx context.Context, trigger string) (*recommend.BatchSummary, error)
	RunUsers(ctx context.Context, trigger string, ids []string) *recommend.BatchSummary
}

const fullBatchKey = "\x00batch"

type triggerJob struct {
	key           string
	userID        string
	userIDs       []string
	fullBatch     bool
	correlationID string
}

// TriggerService runs per-user and batch triggers from a bounded queue on
// a single worker. A trigger for a user that is still waiting in the queue
// is coalesced into the pending job; once a job starts, a new trigger for
// the same user queues again.
type TriggerService struct {
	runner recommend.UserRunner
	batch  BatchRunner
	queue  chan triggerJob
	logger zerolog.Logger
	name   string

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewTriggerService creates the trigger worker. queueSize < 1 is treated as 1.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTriggerService(runner recommend.UserRunner, batch BatchRunner, queueSize int, logger zerolog.Logger) *TriggerService {
	if queueSize < 1 {
		queueSize = 1
	}
	return &TriggerService{
		runner:  runner,
		batch:   batch,
		queue:   make(chan triggerJob, queueSize),
		logger:  logger.With().Str("service", "trigger-worker").Logger(),
		name:    "trigger-worker",
		pending: make(map[string]struct{}),
	}
}

// EnqueueUser schedules a pipeline run for userID.
func (s *TriggerService) EnqueueUser(ctx context.Context, userID string) (TriggerOutcome, error) {
	return s.enqueue(triggerJob{
		key:           userID,
		userID:        userID,
		correlationID: logging.CorrelationIDFromContext(ctx),
	})
}

// EnqueueBatch schedules a batch run. An empty ids slice means every known
// user; only full batches are coalesced.
func (s *TriggerService) EnqueueBatch(ctx context.Context, ids []string) (TriggerOutcome, error) {
	job := triggerJob{
		userIDs:       ids,
		fullBatch:     len(ids) == 0,
		correlationID: logging.CorrelationIDFromContext(ctx),
	}
	if job.fullBatch {
		job.key = fullBatchKey
	}
	return s.enqueue(job)
}

func (s *TriggerService) enqueue(job triggerJob) (TriggerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.key != "" {
		if _, ok := s.pending[job.key]; ok {
			metrics.TriggersTotal.WithLabelValues(string(OutcomeCoalesced)).Inc()
			return OutcomeCoalesced, nil
		}
	}

	select {
	case s.queue <- job:
	default:
		metrics.TriggersTotal.WithLabelValues("rejected").Inc()
		return "", ErrQueueFull
	}
	if job.key != "" {
		s.pending[job.key] = struct{}{}
	}
	metrics.TriggersTotal.WithLabelValues(string(OutcomeQueued)).Inc()
	metrics.TriggerQueueDepth.Set(float64(len(s.queue)))
	return OutcomeQueued, nil
}

// Pending returns the number of queued jobs.
func (s *TriggerService) Pending() int {
	return len(s.queue)
}

// Serve implements suture.Service. A job running at shutdown is cancelled
// through ctx.
func (s *TriggerService) Serve(ctx context.Context) error {
	s.logger.Info().Int("capacity", cap(s.queue)).Msg("Trigger worker started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Int("pending", len(s.queue)).Msg("Trigger worker stopping")
			return ctx.Err()
		case job := <-s.queue:
			s.release(job)
			s.run(ctx, job)
		}
	}
}

func (s *TriggerService) release(job triggerJob) {
	s.mu.Lock()
	if job.key != "" {
		delete(s.pending, job.key)
	}
	metrics.TriggerQueueDepth.Set(float64(len(s.queue)))
	s.mu.Unlock()
}

func (s *TriggerService) run(ctx context.Context, job triggerJob) {
	if job.correlationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, job.correlationID)
	}
	log := logging.CtxFrom(ctx, s.logger)

	switch {
	case job.userID != "":
		if _, err := s.runner.Run(ctx, job.userID); err != nil {
			log.Warn().Err(err).Str("user_id", job.userID).Msg("Triggered run failed")
		}
	case job.fullBatch:
		summary, err := s.batch.RunAll(ctx, "api")
		if err != nil {
			log.Error().Err(err).Msg("Triggered batch failed")
			return
		}
		log.Info().Int("succeeded", summary.Succeeded).Int("failed", summary.Failed).Msg("Triggered batch finished")
	default:
		summary := s.batch.RunUsers(ctx, "api", job.userIDs)
		log.Info().Int("succeeded", summary.Succeeded).Int("failed", summary.Failed).Msg("Triggered batch finished")
	}
}

// String implements fmt.Stringer for logging.
func (s *TriggerService) String() string {
	return s.name
}
