package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
)

// ruleOutcome is one triggered welfare rule.
type ruleOutcome struct {
	alertType models.AlertType
	severity  models.AlertSeverity
	summary   string
}

// ruleContext carries everything a rule needs to decide.
type ruleContext struct {
	currentPct float64
	baseline   float64
	tolerance  float64
	localHour  int
}

// ruleFunc evaluates one behavior's welfare rule. A nil result means no
// deviation worth alerting on.
type ruleFunc func(ctx ruleContext) *ruleOutcome

// RuleService evaluates per-behavior welfare rules against the day so far.
type RuleService struct {
	logger    *utils.Logger
	cfg       *config.WelfareConfig
	loc       *time.Location
	eventRepo repository.EventRepository
	alertRepo repository.AlertRepository
	rules     map[models.Behavior]ruleFunc
}

// NewRuleService creates a rule service. The facility timezone must resolve;
// config validation guarantees it does.
func NewRuleService(database *db.Database, cfg *config.WelfareConfig, logger *utils.Logger) (*RuleService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve welfare timezone: %w", err)
	}

	repoFactory := repository.NewRepositoryFactory(database.DB)
	s := &RuleService{
		logger:    logger.Named("rule_service"),
		cfg:       cfg,
		loc:       loc,
		eventRepo: repoFactory.Event(),
		alertRepo: repoFactory.Alert(),
	}
	s.rules = map[models.Behavior]ruleFunc{
		models.BehaviorStereotypy: s.stereotypyRule,
		models.BehaviorForaging:   s.foragingRule,
		models.BehaviorResting:    s.restingRule,
		models.BehaviorLocomotion: s.locomotionRule,
		models.BehaviorSocial:     s.socialRule,
		models.BehaviorPlay:       s.playRule,
	}
	return s, nil
}

// Evaluate runs the welfare rule for one behavior observation and persists an
// alert when a rule triggers. It returns the created alert, or nil when no
// rule fires, when the analysis window is still too short, or when an open
// alert of the same type already covers the day.
func (s *RuleService) Evaluate(animalID string, behavior models.Behavior, ts time.Time) (*models.Alert, error) {
	rule, ok := s.rules[behavior]
	if !ok {
		return nil, fmt.Errorf("no welfare rule for behavior %q", behavior)
	}

	local := ts.In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	elapsed := local.Sub(dayStart).Seconds()

	// Early-morning ratios are dominated by noise; wait for the window.
	if elapsed < float64(s.cfg.MinAnalysisWindowSeconds) {
		return nil, nil
	}

	actual, err := s.eventRepo.CountByBehaviorInRange(animalID, behavior, dayStart, local)
	if err != nil {
		s.logger.Error("Failed to count behavior events",
			zap.String("animal_id", animalID),
			zap.String("behavior", string(behavior)),
			zap.Error(err))
		return nil, utils.ErrInternal
	}

	theoretical := elapsed / float64(s.cfg.SamplingPeriodSeconds)
	currentPct := 100.0 * float64(actual) / theoretical

	baseline, found := s.cfg.Baselines.Lookup(animalID, string(behavior))
	if !found {
		s.logger.Warn("No baseline configured for behavior, assuming 0",
			zap.String("animal_id", animalID),
			zap.String("behavior", string(behavior)))
	}

	outcome := rule(ruleContext{
		currentPct: currentPct,
		baseline:   baseline,
		tolerance:  s.cfg.TolerancePct,
		localHour:  local.Hour(),
	})
	if outcome == nil {
		return nil, nil
	}

	// One open alert per (animal, type, day). Everything past the first
	// trigger of the day is noise for the keepers.
	dayEnd := dayStart.Add(24 * time.Hour)
	open, err := s.alertRepo.HasOpenAlert(animalID, outcome.alertType, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("Failed to check open alerts",
			zap.String("animal_id", animalID),
			zap.String("type", string(outcome.alertType)),
			zap.Error(err))
		return nil, utils.ErrInternal
	}
	if open {
		return nil, nil
	}

	alert := &models.Alert{
		AlertID:  models.NewAlertID(animalID, outcome.alertType, local),
		AnimalID: animalID,
		Type:     outcome.alertType,
		Severity: outcome.severity,
		Summary:  outcome.summary,
		State:    models.AlertStateOpen,
		TS:       local,
	}

	if err := s.alertRepo.Insert(alert); err != nil {
		// Two concurrent evaluations can race past HasOpenAlert; the
		// primary key collision makes the second one a no-op.
		if errors.Is(err, repository.ErrConflict) {
			return nil, nil
		}
		s.logger.Error("Failed to insert alert",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err))
		return nil, utils.ErrInternal
	}

	s.logger.Info("Welfare alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("animal_id", animalID),
		zap.String("type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)))

	return alert, nil
}

// nonNegative clamps a lower bound at zero; a percentage floor below zero is
// unreachable and would disable the rule.
func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func deviationSummary(behavior models.Behavior, ctx ruleContext, note string) string {
	return fmt.Sprintf("%s at %.1f%% of the day vs baseline %.1f%% (%+.1f pts): %s",
		behavior, ctx.currentPct, ctx.baseline, ctx.currentPct-ctx.baseline, note)
}

func (s *RuleService) stereotypyRule(ctx ruleContext) *ruleOutcome {
	if ctx.currentPct > ctx.baseline+ctx.tolerance {
		return &ruleOutcome{
			alertType: models.AlertTypeAbnormalBehavior,
			severity:  models.SeverityHigh,
			summary:   deviationSummary(models.BehaviorStereotypy, ctx, "stereotypic behavior above tolerance"),
		}
	}
	return nil
}

func (s *RuleService) foragingRule(ctx ruleContext) *ruleOutcome {
	// Low foraging only means something once most feeding windows are past.
	if ctx.localHour < 16 {
		return nil
	}
	if ctx.currentPct < nonNegative(ctx.baseline-ctx.tolerance) {
		return &ruleOutcome{
			alertType: models.AlertTypeLowFeeding,
			severity:  models.SeverityHigh,
			summary:   deviationSummary(models.BehaviorForaging, ctx, "feeding activity below expected range"),
		}
	}
	return nil
}

func (s *RuleService) restingRule(ctx ruleContext) *ruleOutcome {
	// Resting carries a wider band than the default tolerance; both lethargy
	// and restlessness are flagged, each past its own hour gate.
	const restingBand = 15.0

	if ctx.localHour >= 12 && ctx.currentPct > ctx.baseline+restingBand {
		return &ruleOutcome{
			alertType: models.AlertTypeLowActivity,
			severity:  models.SeverityMedium,
			summary:   deviationSummary(models.BehaviorResting, ctx, "resting well above expected, possible lethargy"),
		}
	}
	if ctx.localHour >= 10 && ctx.currentPct < nonNegative(ctx.baseline-restingBand) {
		return &ruleOutcome{
			alertType: models.AlertTypeAgitation,
			severity:  models.SeverityMedium,
			summary:   deviationSummary(models.BehaviorResting, ctx, "resting well below expected, possible agitation"),
		}
	}
	return nil
}

func (s *RuleService) locomotionRule(ctx ruleContext) *ruleOutcome {
	const locomotionBand = 10.0

	if ctx.currentPct > ctx.baseline+locomotionBand {
		return &ruleOutcome{
			alertType: models.AlertTypeExcessiveActivity,
			severity:  models.SeverityMedium,
			summary:   deviationSummary(models.BehaviorLocomotion, ctx, "locomotion above expected range"),
		}
	}
	return nil
}

func (s *RuleService) socialRule(ctx ruleContext) *ruleOutcome {
	// Solitary species carry baselines at or below 2%; their absence of
	// social behavior is normal, not isolation.
	if ctx.baseline <= 2.0 {
		return nil
	}
	if ctx.currentPct < nonNegative(ctx.baseline-ctx.tolerance) {
		return &ruleOutcome{
			alertType: models.AlertTypeIsolation,
			severity:  models.SeverityMedium,
			summary:   deviationSummary(models.BehaviorSocial, ctx, "social interaction below expected range"),
		}
	}
	return nil
}

func (s *RuleService) playRule(ctx ruleContext) *ruleOutcome {
	if ctx.baseline <= 2.0 {
		return nil
	}
	if ctx.currentPct < nonNegative(ctx.baseline-ctx.tolerance) {
		return &ruleOutcome{
			alertType: models.AlertTypeApathy,
			severity:  models.SeverityMedium,
			summary:   deviationSummary(models.BehaviorPlay, ctx, "play behavior below expected range"),
		}
	}
	return nil
}
