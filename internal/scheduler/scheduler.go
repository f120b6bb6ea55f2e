// Package scheduler drives the periodic work the engine needs done on a
// clock rather than on an event: regenerating the current day's welfare
// reports and dropping stale movement classifiers.
package scheduler

import (
	"context"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// GeneratedByScheduler marks reports produced by the sweep, as opposed to
// explicit API requests.
const GeneratedByScheduler = "scheduler"

// AnimalProvider lists the animals the sweep covers.
type AnimalProvider interface {
	ListActiveIDs() ([]string, error)
}

// ReportGenerator rebuilds one animal's daily report.
type ReportGenerator interface {
	GenerateDaily(animalID string, day time.Time, generatedBy string) (*models.WelfareReport, error)
}

// Evictor drops state that has gone stale. Optional.
type Evictor interface {
	Evict(now time.Time) int
}

// Scheduler periodically regenerates the current day's reports for every
// active animal. One animal's failure never blocks the rest of the sweep.
type Scheduler struct {
	logger   *utils.Logger
	interval time.Duration
	backfill int
	loc      *time.Location
	animals  AnimalProvider
	reports  ReportGenerator
	evictor  Evictor
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a scheduler. Evictor may be nil.
func New(cfg *config.WelfareConfig, animals AnimalProvider, reports ReportGenerator, evictor Evictor, logger *utils.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		logger:   logger.Named("scheduler"),
		interval: time.Duration(cfg.SchedulerIntervalMinutes) * time.Minute,
		backfill: cfg.BackfillDays,
		loc:      loc,
		animals:  animals,
		reports:  reports,
		evictor:  evictor,
		now:      time.Now,
	}, nil
}

// Start runs the backfill, then sweeps on the configured interval until Stop
// or context cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		if s.backfill > 0 {
			s.Backfill(s.now())
		}
		s.Sweep(s.now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				s.Sweep(s.now())
			}
		}
	}()

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("backfill_days", s.backfill))
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Sweep regenerates today's report for every active animal and evicts stale
// classifier state. It returns how many reports failed.
func (s *Scheduler) Sweep(now time.Time) int {
	if s.evictor != nil {
		if removed := s.evictor.Evict(now); removed > 0 {
			s.logger.Debug("Evicted stale classifier tracks", zap.Int("removed", removed))
		}
	}

	ids, err := s.animals.ListActiveIDs()
	if err != nil {
		s.logger.Error("Failed to list animals for sweep", zap.Error(err))
		return 0
	}

	day := now.In(s.loc)
	failed := 0
	for _, animalID := range ids {
		if _, err := s.reports.GenerateDaily(animalID, day, GeneratedByScheduler); err != nil {
			s.logger.Error("Sweep failed for animal",
				zap.String("animal_id", animalID),
				zap.Error(err))
			failed++
		}
	}

	s.logger.Info("Sweep completed",
		zap.Int("animals", len(ids)),
		zap.Int("failed", failed))
	return failed
}

// Backfill regenerates the reports for the configured number of past days.
// Useful after downtime, when the per-hour sweeps never ran.
func (s *Scheduler) Backfill(now time.Time) {
	ids, err := s.animals.ListActiveIDs()
	if err != nil {
		s.logger.Error("Failed to list animals for backfill", zap.Error(err))
		return
	}

	day := now.In(s.loc)
	for offset := s.backfill; offset >= 1; offset-- {
		target := day.AddDate(0, 0, -offset)
		for _, animalID := range ids {
			if _, err := s.reports.GenerateDaily(animalID, target, GeneratedByScheduler); err != nil {
				s.logger.Error("Backfill failed for animal",
					zap.String("animal_id", animalID),
					zap.String("day", target.Format("2006-01-02")),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("Backfill completed",
		zap.Int("days", s.backfill),
		zap.Int("animals", len(ids)))
}
