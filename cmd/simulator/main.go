// The simulator fakes the vision pipeline: it seeds a small roster, backfills
// a few days of plausible behavior history, regenerates the daily reports and
// then keeps emitting events on the sampling cadence until interrupted. Meant
// for local development against an otherwise idle stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

const eventsPerHour = 2

var roster = []models.Animal{
	{AnimalID: "a-001", Name: "Fito", Species: "Caracal", Enclosure: "felines-1", Active: true},
	{AnimalID: "a-002", Name: "Milo", Species: "Giraffa camelopardalis", Enclosure: "savanna-2", Active: true},
	{AnimalID: "a-003", Name: "Uma", Species: "Panthera tigris", Enclosure: "felines-3", Active: true},
}

// hourWeights returns the behavior mix for one hour of the day. Nights lean
// on resting, mornings on foraging, the active day on locomotion.
func hourWeights(hour int) map[models.Behavior]float64 {
	switch {
	case hour < 6:
		return map[models.Behavior]float64{
			models.BehaviorResting: 0.7, models.BehaviorLocomotion: 0.1,
			models.BehaviorForaging: 0.1, models.BehaviorPlay: 0.05,
			models.BehaviorSocial: 0.05,
		}
	case hour < 10:
		return map[models.Behavior]float64{
			models.BehaviorResting: 0.2, models.BehaviorLocomotion: 0.3,
			models.BehaviorForaging: 0.4, models.BehaviorPlay: 0.05,
			models.BehaviorSocial: 0.05,
		}
	case hour < 18:
		return map[models.Behavior]float64{
			models.BehaviorResting: 0.2, models.BehaviorLocomotion: 0.4,
			models.BehaviorForaging: 0.2, models.BehaviorPlay: 0.1,
			models.BehaviorSocial: 0.1,
		}
	case hour < 22:
		return map[models.Behavior]float64{
			models.BehaviorResting: 0.3, models.BehaviorLocomotion: 0.2,
			models.BehaviorForaging: 0.3, models.BehaviorPlay: 0.1,
			models.BehaviorSocial: 0.1,
		}
	default:
		return map[models.Behavior]float64{
			models.BehaviorResting: 0.6, models.BehaviorLocomotion: 0.15,
			models.BehaviorForaging: 0.1, models.BehaviorPlay: 0.05,
			models.BehaviorSocial: 0.1,
		}
	}
}

func pickBehavior(rng *rand.Rand, hour int) models.Behavior {
	weights := hourWeights(hour)
	total := 0.0
	for _, w := range weights {
		total += w
	}

	roll := rng.Float64() * total
	for _, b := range models.Behaviors {
		w, ok := weights[b]
		if !ok {
			continue
		}
		if roll < w {
			return b
		}
		roll -= w
	}
	return models.BehaviorResting
}

type simulator struct {
	logger  *utils.Logger
	loc     *time.Location
	rng     *rand.Rand
	repos   *repository.RepositoryFactory
	ingest  *services.IngestService
	reports *services.ReportService
}

// seedRoster registers the demo animals, skipping ones already present.
func (s *simulator) seedRoster() error {
	animalRepo := s.repos.Animal()
	for i := range roster {
		exists, err := animalRepo.Exists(roster[i].AnimalID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := animalRepo.Create(&roster[i]); err != nil {
			return err
		}
		s.logger.Info("Seeded animal", zap.String("animal_id", roster[i].AnimalID))
	}
	return nil
}

// backfillDay writes a full synthetic day, two events per hour per animal,
// without running the alert rules. Historic deviations are not actionable.
func (s *simulator) backfillDay(dayStart time.Time) error {
	events := make([]models.BehaviorEvent, 0, 24*eventsPerHour*len(roster))
	for h := 0; h < 24; h++ {
		for k := 0; k < eventsPerHour; k++ {
			ts := dayStart.Add(time.Duration(h)*time.Hour + time.Duration(60/eventsPerHour*k)*time.Minute)
			for _, animal := range roster {
				events = append(events, models.BehaviorEvent{
					AnimalID:   animal.AnimalID,
					TS:         ts,
					Behavior:   pickBehavior(s.rng, h),
					Confidence: 0.6 + s.rng.Float64()*0.39,
				})
			}
		}
	}
	return s.repos.Event().InsertBatch(events)
}

// backfillToday fills today's fully elapsed hours, so the timeline shows a
// populated morning right after startup.
func (s *simulator) backfillToday(now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if now.Hour() == 0 {
		s.logger.Info("No full hours elapsed today, skipping today's backfill")
		return nil
	}

	events := make([]models.BehaviorEvent, 0, now.Hour()*eventsPerHour*len(roster))
	for h := 0; h < now.Hour(); h++ {
		for k := 0; k < eventsPerHour; k++ {
			ts := dayStart.Add(time.Duration(h)*time.Hour + time.Duration(60/eventsPerHour*k)*time.Minute)
			for _, animal := range roster {
				events = append(events, models.BehaviorEvent{
					AnimalID:   animal.AnimalID,
					TS:         ts,
					Behavior:   pickBehavior(s.rng, h),
					Confidence: 0.6 + s.rng.Float64()*0.39,
				})
			}
		}
	}
	return s.repos.Event().InsertBatch(events)
}

// tick emits one observation per animal at the current instant, through the
// full ingest path so the welfare rules run.
func (s *simulator) tick(now time.Time) {
	for _, animal := range roster {
		behavior := pickBehavior(s.rng, now.Hour())
		confidence := 0.6 + s.rng.Float64()*0.39

		_, alert, err := s.ingest.Ingest(animal.AnimalID, behavior, now, confidence)
		if err != nil {
			s.logger.Warn("Tick ingest failed",
				zap.String("animal_id", animal.AnimalID), zap.Error(err))
			continue
		}
		if alert != nil {
			s.logger.Info("Tick raised alert",
				zap.String("animal_id", animal.AnimalID),
				zap.String("type", string(alert.Type)))
		}
	}
	s.logger.Info("Generated events", zap.Int("animals", len(roster)))
}

func main() {
	configPath := flag.String("config", "", "Path to the configuration directory")
	days := flag.Int("days", 3, "Full days of history to backfill")
	clear := flag.Bool("clear", true, "Clear existing events and alerts first")
	realtime := flag.Bool("realtime", true, "Keep emitting events on the sampling cadence")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	loc, err := cfg.Welfare.Location()
	if err != nil {
		logger.Fatal("Failed to resolve timezone", zap.Error(err))
	}

	database, err := db.NewDatabase(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	rules, err := services.NewRuleService(database, &cfg.Welfare, logger)
	if err != nil {
		logger.Fatal("Failed to create rule service", zap.Error(err))
	}
	ingest, err := services.NewIngestService(database, &cfg.Welfare, rules, nil, nil, logger)
	if err != nil {
		logger.Fatal("Failed to create ingest service", zap.Error(err))
	}
	reports, err := services.NewReportService(database, &cfg.Welfare, logger)
	if err != nil {
		logger.Fatal("Failed to create report service", zap.Error(err))
	}

	sim := &simulator{
		logger:  logger.Named("simulator"),
		loc:     loc,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		repos:   repository.NewRepositoryFactory(database.DB),
		ingest:  ingest,
		reports: reports,
	}

	if err := sim.seedRoster(); err != nil {
		logger.Fatal("Failed to seed roster", zap.Error(err))
	}

	if *clear {
		logger.Info("Clearing previous events and alerts")
		for _, animal := range roster {
			if err := sim.repos.Event().DeleteByAnimal(animal.AnimalID); err != nil {
				logger.Fatal("Failed to clear events", zap.Error(err))
			}
		}
		if err := database.DB.Exec("DELETE FROM alerts").Error; err != nil {
			logger.Fatal("Failed to clear alerts", zap.Error(err))
		}
		if err := database.DB.Exec("DELETE FROM welfare_reports").Error; err != nil {
			logger.Fatal("Failed to clear reports", zap.Error(err))
		}
	}

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	for i := *days; i >= 1; i-- {
		dayStart := today.AddDate(0, 0, -i)
		logger.Info("Backfilling day", zap.String("day", dayStart.Format("2006-01-02")))
		if err := sim.backfillDay(dayStart); err != nil {
			logger.Fatal("Backfill failed", zap.Error(err))
		}
		for _, animal := range roster {
			if _, err := reports.GenerateDaily(animal.AnimalID, dayStart, "simulator"); err != nil {
				logger.Warn("Report generation failed",
					zap.String("animal_id", animal.AnimalID), zap.Error(err))
			}
		}
	}

	if err := sim.backfillToday(now); err != nil {
		logger.Fatal("Today's backfill failed", zap.Error(err))
	}

	if !*realtime {
		logger.Info("Backfill complete, realtime disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	cadence := time.Duration(cfg.Welfare.SamplingPeriodSeconds) * time.Second
	logger.Info("Starting realtime simulation", zap.Duration("cadence", cadence))

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	sim.tick(time.Now().In(loc))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Simulator stopped")
			return
		case <-ticker.C:
			sim.tick(time.Now().In(loc))
		}
	}
}
