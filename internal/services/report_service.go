package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// BehaviorShare is one behavior's slice of a day's observations.
type BehaviorShare struct {
	Behavior string  `json:"behavior"`
	Count    int     `json:"count"`
	Pct      float64 `json:"pct"`
}

// DaySummary condenses one local day for multi-day views.
type DaySummary struct {
	Date     string         `json:"date"`
	Total    int            `json:"total"`
	Dominant *string        `json:"dominant"`
	Counts   map[string]int `json:"counts"`
}

// ReportService builds hourly timelines, distributions and persisted daily
// welfare reports from the raw event stream.
type ReportService struct {
	logger     *utils.Logger
	cfg        *config.WelfareConfig
	loc        *time.Location
	eventRepo  repository.EventRepository
	alertRepo  repository.AlertRepository
	reportRepo repository.ReportRepository
	validator  *utils.JSONSchemaValidator
	now        func() time.Time
}

// NewReportService creates a report service.
func NewReportService(database *db.Database, cfg *config.WelfareConfig, logger *utils.Logger) (*ReportService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve welfare timezone: %w", err)
	}

	validator := utils.NewJSONSchemaValidator()
	if err := validator.LoadSchema(reportPayloadSchemaName, models.ReportPayloadSchema); err != nil {
		return nil, fmt.Errorf("load report payload schema: %w", err)
	}

	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &ReportService{
		logger:     logger.Named("report_service"),
		cfg:        cfg,
		loc:        loc,
		eventRepo:  repoFactory.Event(),
		alertRepo:  repoFactory.Alert(),
		reportRepo: repoFactory.Report(),
		validator:  validator,
		now:        time.Now,
	}, nil
}

// ParseDay interprets a YYYY-MM-DD string in the facility timezone. Parsing
// in UTC would land date-only values on the previous local day.
func (s *ReportService) ParseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", value, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, utils.ErrBadRequest)
	}
	return day, nil
}

// dayBounds normalizes an instant to its local day [start, end).
func (s *ReportService) dayBounds(day time.Time) (time.Time, time.Time) {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.Add(24 * time.Hour)
}

// hourlyBuckets counts events into 24 hour-of-day buckets. Dominant ties
// break toward the lexically smaller behavior so reruns are deterministic.
func hourlyBuckets(events []models.BehaviorEvent, loc *time.Location) []models.HourlyBucket {
	buckets := make([]models.HourlyBucket, 24)
	for h := range buckets {
		buckets[h] = models.HourlyBucket{Hour: h, Counts: make(map[string]int)}
	}

	for _, ev := range events {
		h := ev.TS.In(loc).Hour()
		buckets[h].Counts[string(ev.Behavior)]++
		buckets[h].Total++
	}

	for h := range buckets {
		buckets[h].Dominant = dominantBehavior(buckets[h].Counts)
	}
	return buckets
}

// dominantBehavior returns the most frequent behavior, or nil for an empty
// bucket. Equal counts resolve to the lexically smaller label.
func dominantBehavior(counts map[string]int) *string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var winner string
	best := 0
	for _, k := range keys {
		if counts[k] > best {
			winner = k
			best = counts[k]
		}
	}
	if best == 0 {
		return nil
	}
	return &winner
}

// Timeline returns the hour-by-hour buckets for one local day. For the
// current day only fully elapsed hours are returned; the hour in progress
// would read as artificially quiet.
func (s *ReportService) Timeline(animalID string, day time.Time) ([]models.HourlyBucket, error) {
	start, end := s.dayBounds(day)

	events, err := s.eventRepo.GetByAnimalInRange(animalID, start, end)
	if err != nil {
		s.logger.Error("Failed to load events for timeline",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	buckets := hourlyBuckets(events, s.loc)

	now := s.now().In(s.loc)
	todayStart, _ := s.dayBounds(now)
	switch {
	case start.After(todayStart):
		// Nothing can have been observed yet.
		buckets = buckets[:0]
	case todayStart.Equal(start):
		buckets = buckets[:now.Hour()]
	}
	return buckets, nil
}

// Distribution returns each behavior's share of one local day, in a stable
// order. Behaviors never observed that day still appear with a zero count.
func (s *ReportService) Distribution(animalID string, day time.Time) ([]BehaviorShare, error) {
	start, end := s.dayBounds(day)

	events, err := s.eventRepo.GetByAnimalInRange(animalID, start, end)
	if err != nil {
		s.logger.Error("Failed to load events for distribution",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	counts := make(map[string]int)
	for _, ev := range events {
		counts[string(ev.Behavior)]++
	}

	total := len(events)
	shares := make([]BehaviorShare, 0, len(models.Behaviors))
	for _, b := range models.Behaviors {
		share := BehaviorShare{Behavior: string(b), Count: counts[string(b)]}
		if total > 0 {
			share.Pct = 100.0 * float64(share.Count) / float64(total)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// Summary returns per-day totals for the last n local days, oldest first.
// The current day is included as far as it has run.
func (s *ReportService) Summary(animalID string, days int) ([]DaySummary, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d: %w", days, utils.ErrBadRequest)
	}

	todayStart, _ := s.dayBounds(s.now())
	out := make([]DaySummary, 0, days)

	for i := days - 1; i >= 0; i-- {
		start := todayStart.AddDate(0, 0, -i)
		end := start.Add(24 * time.Hour)

		events, err := s.eventRepo.GetByAnimalInRange(animalID, start, end)
		if err != nil {
			s.logger.Error("Failed to load events for summary",
				zap.String("animal_id", animalID), zap.Error(err))
			return nil, utils.ErrInternal
		}

		counts := make(map[string]int)
		for _, ev := range events {
			counts[string(ev.Behavior)]++
		}

		out = append(out, DaySummary{
			Date:     start.Format("2006-01-02"),
			Total:    len(events),
			Dominant: dominantBehavior(counts),
			Counts:   counts,
		})
	}
	return out, nil
}

// reportPayloadSchemaName keys the compiled payload schema in the validator.
const reportPayloadSchemaName = "report_payload"

// reportID derives the deterministic report identity for one period, so a
// regenerated report lands on the same row.
func reportID(animalID, periodType string, periodStart time.Time) string {
	return fmt.Sprintf("rp-%s-%s-%s", animalID, periodType, periodStart.Format("20060102"))
}

// GenerateDaily builds or rebuilds the daily welfare report for one local
// day. Regeneration is idempotent: the same day always maps to the same row,
// and a rerun overwrites the payload in place.
func (s *ReportService) GenerateDaily(animalID string, day time.Time, generatedBy string) (*models.WelfareReport, error) {
	start, end := s.dayBounds(day)

	events, err := s.eventRepo.GetByAnimalInRange(animalID, start, end)
	if err != nil {
		s.logger.Error("Failed to load events for report",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	alerts, err := s.alertRepo.GetByAnimalInRange(animalID, start, end)
	if err != nil {
		s.logger.Error("Failed to load alerts for report",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	dailyTotals := make(map[string]int)
	for _, ev := range events {
		dailyTotals[string(ev.Behavior)]++
	}

	// The payload keeps every alert of the day; the headline count covers
	// only the ones still open.
	openAlerts := 0
	reportAlerts := make([]models.ReportAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.State == models.AlertStateOpen {
			openAlerts++
		}
		reportAlerts = append(reportAlerts, models.ReportAlert{
			AlertID:  a.AlertID,
			Type:     string(a.Type),
			Severity: string(a.Severity),
			State:    string(a.State),
			TS:       a.TS,
			Summary:  a.Summary,
		})
	}

	payload := &models.ReportPayload{
		SchemaVersion: models.ReportSchemaVersion,
		Hourly:        hourlyBuckets(events, s.loc),
		DailyTotals:   dailyTotals,
		Alerts:        reportAlerts,
	}

	report := &models.WelfareReport{
		ID:          reportID(animalID, models.ReportPeriodDaily, start),
		AnimalID:    animalID,
		PeriodType:  models.ReportPeriodDaily,
		PeriodStart: start,
		PeriodEnd:   end,
		AlertsCount: openAlerts,
		GeneratedBy: generatedBy,
		GeneratedAt: s.now().In(s.loc),
	}
	if err := report.SetPayload(payload); err != nil {
		return nil, fmt.Errorf("encode report payload: %w", err)
	}
	if err := s.validator.ValidateAgainstSchema(reportPayloadSchemaName, json.RawMessage(report.Payload)); err != nil {
		s.logger.Error("Report payload failed schema validation",
			zap.String("report_id", report.ID), zap.Error(err))
		return nil, fmt.Errorf("report payload schema: %w", err)
	}

	existing, err := s.reportRepo.GetByPeriod(animalID, models.ReportPeriodDaily, start, end)
	switch {
	case err == nil:
		report.ID = existing.ID
		if err := s.reportRepo.UpdateContent(existing.ID, report.AlertsCount, report.Payload, generatedBy, report.GeneratedAt); err != nil {
			s.logger.Error("Failed to update report",
				zap.String("report_id", existing.ID), zap.Error(err))
			return nil, utils.ErrInternal
		}
	case errors.Is(err, repository.ErrNotFound):
		if err := s.reportRepo.Insert(report); err != nil {
			s.logger.Error("Failed to insert report",
				zap.String("report_id", report.ID), zap.Error(err))
			return nil, utils.ErrInternal
		}
	default:
		s.logger.Error("Failed to look up report",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, utils.ErrInternal
	}

	s.logger.Info("Daily report generated",
		zap.String("report_id", report.ID),
		zap.String("animal_id", animalID),
		zap.String("period_start", start.Format("2006-01-02")),
		zap.Int("open_alerts", report.AlertsCount))

	return report, nil
}

// GetByID retrieves one report.
func (s *ReportService) GetByID(id string) (*models.WelfareReport, error) {
	report, err := s.reportRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("report %s: %w", id, utils.ErrNotFound)
		}
		s.logger.Error("Failed to get report", zap.String("id", id), zap.Error(err))
		return nil, utils.ErrInternal
	}
	return report, nil
}

// List returns reports, newest period first.
func (s *ReportService) List(animalID string, offset, limit int) ([]models.WelfareReport, int64, error) {
	reports, total, err := s.reportRepo.List(animalID, offset, limit)
	if err != nil {
		s.logger.Error("Failed to list reports",
			zap.String("animal_id", animalID), zap.Error(err))
		return nil, 0, utils.ErrInternal
	}
	return reports, total, nil
}
