// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ScheduleConfig controls when the full batch runs.
type ScheduleConfig struct {
	Weekday time.Weekday
	Hour    int
	Minute  int

	// EvenWeeksOnly skips weeks whose aligned week number is odd.
	EvenWeeksOnly bool

	// Location is the zone the wall-clock time is evaluated in. nil means UTC.
	Location *time.Location
}

// DefaultScheduleConfig returns Sunday 01:00 UTC on even weeks.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Weekday:       time.Sunday,
		Hour:          1,
		Minute:        0,
		EvenWeeksOnly: true,
		Location:      time.UTC,
	}
}

// AlignedWeek returns the week of the year counted in seven-day blocks
// starting on January 1st: days 1-7 are week 1, days 8-14 week 2.
func AlignedWeek(t time.Time) int {
	return (t.YearDay()-1)/7 + 1
}

// NextRun returns the first scheduled instant strictly after t.
func (c ScheduleConfig) NextRun(t time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)

	offset := (int(c.Weekday) - int(local.Weekday()) + 7) % 7
	y, m, d := local.Date()
	// Bounded: parity flips at most across one year boundary.
	for i := 0; i < 60; i++ {
		next := time.Date(y, m, d+offset+7*i, c.Hour, c.Minute, 0, 0, loc)
		if !next.After(t) {
			continue
		}
		if c.EvenWeeksOnly && AlignedWeek(next)%2 != 0 {
			continue
		}
		return next
	}
	return time.Date(y, m, d+offset+7, c.Hour, c.Minute, 0, 0, loc)
}

// ScheduleService runs the full batch on the configured weekly schedule.
// Batch failures are logged and never stop the service.
type ScheduleService struct {
	batch  BatchRunner
	cfg    ScheduleConfig
	logger zerolog.Logger
	name   string

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduleService creates the scheduler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewScheduleService(batch BatchRunner, cfg ScheduleConfig, logger zerolog.Logger) *ScheduleService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ScheduleService{
		batch:  batch,
		cfg:    cfg,
		logger: logger.With().Str("service", "batch-scheduler").Logger(),
		name:   "batch-scheduler",
		now:    time.Now,
		after:  time.After,
	}
}

// Serve implements suture.Service.
func (s *ScheduleService) Serve(ctx context.Context) error {
	for {
		next := s.cfg.NextRun(s.now())
		s.logger.Info().
			Time("next_run", next).
			Bool("even_weeks_only", s.cfg.EvenWeeksOnly).
			Msg("Next scheduled batch")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
		}

		s.runBatch(ctx)
	}
}

func (s *ScheduleService) runBatch(ctx context.Context) {
	summary, err := s.batch.RunAll(ctx, "schedule")
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled batch failed")
		return
	}
	s.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Scheduled batch finished")
}

// String implements fmt.Stringer for logging.
func (s *ScheduleService) String() string {
	return s.name
}
