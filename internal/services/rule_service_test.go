package services

import (
	"testing"
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRuleSetup builds a rule service over an in-memory database with the
// timezone pinned to UTC so test instants are unambiguous.
func newRuleSetup(t *testing.T) (*testutil.TestSetup, *RuleService) {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)
	ts.MigrateAll()
	ts.Config.Welfare.Timezone = "UTC"

	svc, err := NewRuleService(ts.DB, &ts.Config.Welfare, ts.Logger)
	require.NoError(t, err)
	return ts, svc
}

// seedEvents inserts n events of one behavior spread minutes apart starting
// at base.
func seedEvents(ts *testutil.TestSetup, animalID string, behavior models.Behavior, base time.Time, n int) {
	repo := repository.NewRepositoryFactory(ts.DB.DB).Event()
	for i := 0; i < n; i++ {
		err := repo.Insert(&models.BehaviorEvent{
			AnimalID:   animalID,
			TS:         base.Add(time.Duration(i) * time.Minute),
			Behavior:   behavior,
			Confidence: 0.9,
		})
		ts.Requires.NoError(err)
	}
}

func TestEvaluateStereotypyDeviation(t *testing.T) {
	ts, svc := newRuleSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	// Two hours into the day at 300s cadence: 24 theoretical samples. Six
	// stereotypy observations put the share at 25%, far past the 2% + 5pt
	// tolerance.
	base := time.Date(2026, 8, 27, 0, 10, 0, 0, time.UTC)
	seedEvents(ts, "lion-1", models.BehaviorStereotypy, base, 5)

	at := time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	seedEvents(ts, "lion-1", models.BehaviorStereotypy, at, 1)

	alert, err := svc.Evaluate("lion-1", models.BehaviorStereotypy, at)
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, models.AlertTypeAbnormalBehavior, alert.Type)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, models.AlertStateOpen, alert.State)
	assert.Equal(t, "lion-1", alert.AnimalID)
	assert.Contains(t, alert.Summary, "25.0%")
	assert.Contains(t, alert.Summary, "2.0%")
}

func TestEvaluateSuppressesRepeatAlerts(t *testing.T) {
	ts, svc := newRuleSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	at := time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	seedEvents(ts, "lion-1", models.BehaviorStereotypy, at.Add(-90*time.Minute), 6)

	first, err := svc.Evaluate("lion-1", models.BehaviorStereotypy, at)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same day, still deviating: the open alert absorbs the repeat.
	second, err := svc.Evaluate("lion-1", models.BehaviorStereotypy, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, second)

	alerts, total, err := repository.NewRepositoryFactory(ts.DB.DB).Alert().List("lion-1", "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, alerts, 1)
}

func TestEvaluateWaitsForAnalysisWindow(t *testing.T) {
	ts, svc := newRuleSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	// Half an hour into the day is below the one-hour minimum window, no
	// matter how skewed the counts are.
	at := time.Date(2026, 8, 27, 0, 30, 0, 0, time.UTC)
	seedEvents(ts, "lion-1", models.BehaviorStereotypy, at.Add(-20*time.Minute), 6)

	alert, err := svc.Evaluate("lion-1", models.BehaviorStereotypy, at)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEvaluateForagingHourGate(t *testing.T) {
	ts, svc := newRuleSetup(t)
	ts.SeedAnimal("tapir-2", "Mocha", "Tapirus terrestris")

	// Zero foraging all day long. Before 16:00 local the rule stays quiet.
	early := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	alert, err := svc.Evaluate("tapir-2", models.BehaviorForaging, early)
	require.NoError(t, err)
	assert.Nil(t, alert)

	late := time.Date(2026, 8, 27, 17, 0, 0, 0, time.UTC)
	alert, err = svc.Evaluate("tapir-2", models.BehaviorForaging, late)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeLowFeeding, alert.Type)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
}

func TestEvaluateRestingBothDirections(t *testing.T) {
	ts, svc := newRuleSetup(t)
	ts.SeedAnimal("wolf-3", "Nieve", "Canis lupus")

	// No resting at all by 11:00 reads as agitation (baseline 40, band 15).
	at := time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC)
	alert, err := svc.Evaluate("wolf-3", models.BehaviorResting, at)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeAgitation, alert.Type)
	assert.Equal(t, models.SeverityMedium, alert.Severity)

	ts.SeedAnimal("wolf-4", "Luna", "Canis lupus")
	// Resting in every expected slot by 13:00 reads as lethargy: 156
	// theoretical samples, 130 resting puts the share at 83%.
	base := time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	seedEvents(ts, "wolf-4", models.BehaviorResting, base, 130)

	alert, err = svc.Evaluate("wolf-4", models.BehaviorResting, time.Date(2026, 8, 27, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeLowActivity, alert.Type)
}

func TestEvaluateSkipsSolitarySpecies(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)
	ts.MigrateAll()
	ts.Config.Welfare.Timezone = "UTC"
	// A baseline at 2% marks the species as solitary; missing social
	// behavior is expected, not isolation.
	ts.Config.Welfare.Baselines.Default["Social"] = 2.0

	svc, err := NewRuleService(ts.DB, &ts.Config.Welfare, ts.Logger)
	require.NoError(t, err)

	ts.SeedAnimal("tiger-5", "Rayo", "Panthera tigris")
	alert, err := svc.Evaluate("tiger-5", models.BehaviorSocial, time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEvaluatePerAnimalBaselineOverride(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)
	ts.MigrateAll()
	ts.Config.Welfare.Timezone = "UTC"
	// This individual paces a lot at baseline; the override keeps the
	// shared 2% default from flagging its normal day.
	ts.Config.Welfare.Baselines.Animals = map[string]map[string]float64{
		"bear-6": {"Stereotypy": 30.0},
	}

	svc, err := NewRuleService(ts.DB, &ts.Config.Welfare, ts.Logger)
	require.NoError(t, err)

	ts.SeedAnimal("bear-6", "Pardo", "Tremarctos ornatus")
	at := time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	seedEvents(ts, "bear-6", models.BehaviorStereotypy, at.Add(-90*time.Minute), 6)

	// 25% observed against the 30% personal baseline is unremarkable.
	alert, err := svc.Evaluate("bear-6", models.BehaviorStereotypy, at)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestDuplicateAlertInsertReportsConflict(t *testing.T) {
	ts, _ := newRuleSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	at := time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC)
	alert := models.Alert{
		AlertID:  models.NewAlertID("lion-1", models.AlertTypeAbnormalBehavior, at),
		AnimalID: "lion-1",
		Type:     models.AlertTypeAbnormalBehavior,
		Severity: models.SeverityHigh,
		Summary:  "pacing deviation",
		State:    models.AlertStateOpen,
		TS:       at,
	}

	alertRepo := repository.NewRepositoryFactory(ts.DB.DB).Alert()
	require.NoError(t, alertRepo.Insert(&alert))

	// A second insert of the same key must surface as a conflict, not a
	// generic database error, or the evaluation race guard cannot suppress
	// the loser.
	dup := alert
	err := alertRepo.Insert(&dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrConflict)
}
