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

type capturingPublisher struct {
	alerts []*models.Alert
}

func (p *capturingPublisher) PublishAlert(alert *models.Alert) error {
	p.alerts = append(p.alerts, alert)
	return nil
}

func newIngestSetup(t *testing.T) (*testutil.TestSetup, *IngestService, *capturingPublisher) {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)
	ts.MigrateAll()
	ts.Config.Welfare.Timezone = "UTC"

	rules, err := NewRuleService(ts.DB, &ts.Config.Welfare, ts.Logger)
	require.NoError(t, err)

	publisher := &capturingPublisher{}
	ingest, err := NewIngestService(ts.DB, &ts.Config.Welfare, rules, nil, publisher, ts.Logger)
	require.NoError(t, err)

	return ts, ingest, publisher
}

func TestIngestPersistsEvent(t *testing.T) {
	ts, ingest, _ := newIngestSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	at := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	event, alert, err := ingest.Ingest("lion-1", models.BehaviorForaging, at, 0.87)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Nil(t, alert)
	assert.NotZero(t, event.ID)
	assert.Equal(t, models.BehaviorForaging, event.Behavior)

	latest, err := repository.NewRepositoryFactory(ts.DB.DB).Event().GetLatest("lion-1")
	require.NoError(t, err)
	assert.Equal(t, event.ID, latest.ID)
}

func TestIngestRejectsBadInput(t *testing.T) {
	ts, ingest, _ := newIngestSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	at := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)

	_, _, err := ingest.Ingest("", models.BehaviorForaging, at, 0.9)
	assert.Error(t, err)

	_, _, err = ingest.Ingest("lion-1", models.Behavior("Sleeping"), at, 0.9)
	assert.Error(t, err)

	_, _, err = ingest.Ingest("ghost-9", models.BehaviorForaging, at, 0.9)
	assert.Error(t, err)

	_, _, err = ingest.Ingest("lion-1", models.BehaviorForaging, at, 1.5)
	assert.Error(t, err)
}

func TestIngestTriggersAndFansOutAlert(t *testing.T) {
	ts, ingest, publisher := newIngestSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	// Fourteen hours into the day at 300s cadence: 168 theoretical samples.
	// Thirty-three prior stereotypy observations plus this one put the
	// share at 20.2%, past the 2% + 5pt tolerance.
	base := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	seedEvents(ts, "lion-1", models.BehaviorStereotypy, base, 33)

	at := time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC)
	event, alert, err := ingest.Ingest("lion-1", models.BehaviorStereotypy, at, 0.95)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotNil(t, alert)

	assert.Equal(t, models.AlertTypeAbnormalBehavior, alert.Type)
	assert.Equal(t, models.SeverityHigh, alert.Severity)

	require.Len(t, publisher.alerts, 1)
	assert.Equal(t, alert.AlertID, publisher.alerts[0].AlertID)

	// Still deviating a minute later, but the day's alert already exists.
	_, repeat, err := ingest.Ingest("lion-1", models.BehaviorStereotypy, at.Add(time.Minute), 0.95)
	require.NoError(t, err)
	assert.Nil(t, repeat)
	assert.Len(t, publisher.alerts, 1)
}
