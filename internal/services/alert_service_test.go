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

func seedAlert(ts *testutil.TestSetup, animalID string, alertType models.AlertType, at time.Time) *models.Alert {
	alert := &models.Alert{
		AlertID:  models.NewAlertID(animalID, alertType, at),
		AnimalID: animalID,
		Type:     alertType,
		Severity: models.SeverityMedium,
		Summary:  "seeded",
		State:    models.AlertStateOpen,
		TS:       at,
	}
	err := repository.NewRepositoryFactory(ts.DB.DB).Alert().Insert(alert)
	ts.Requires.NoError(err)
	return alert
}

func newAlertSetup(t *testing.T) (*testutil.TestSetup, *AlertService) {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)
	ts.MigrateAll()
	return ts, NewAlertService(ts.DB, nil, ts.Logger)
}

func TestAcknowledgeClosesAlert(t *testing.T) {
	ts, svc := newAlertSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")
	seeded := seedAlert(ts, "lion-1", models.AlertTypeAgitation, time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC))

	closed, err := svc.Acknowledge(seeded.AlertID, "keeper-ana")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStateClosed, closed.State)
	assert.Equal(t, "keeper-ana", closed.AckBy)
	require.NotNil(t, closed.AckTime)

	// A second ack finds nothing open.
	_, err = svc.Acknowledge(seeded.AlertID, "keeper-ana")
	assert.Error(t, err)
}

func TestAcknowledgeRequiresIdentity(t *testing.T) {
	_, svc := newAlertSetup(t)
	_, err := svc.Acknowledge("al-x", "")
	assert.Error(t, err)
}

func TestAcknowledgeBulkSkipsClosed(t *testing.T) {
	ts, svc := newAlertSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	a := seedAlert(ts, "lion-1", models.AlertTypeAgitation, time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC))
	b := seedAlert(ts, "lion-1", models.AlertTypeLowFeeding, time.Date(2026, 8, 27, 17, 0, 0, 0, time.UTC))

	_, err := svc.Acknowledge(a.AlertID, "keeper-ana")
	require.NoError(t, err)

	closed, err := svc.AcknowledgeBulk([]string{a.AlertID, b.AlertID, "al-ghost"}, "keeper-ben")
	require.NoError(t, err)
	assert.EqualValues(t, 1, closed)
}

func TestListFiltersByStateAndAnimal(t *testing.T) {
	ts, svc := newAlertSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")
	ts.SeedAnimal("wolf-3", "Nieve", "Canis lupus")

	seedAlert(ts, "lion-1", models.AlertTypeAgitation, time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC))
	open := seedAlert(ts, "wolf-3", models.AlertTypeApathy, time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))

	alerts, total, err := svc.List("wolf-3", models.AlertStateOpen, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, alerts, 1)
	assert.Equal(t, open.AlertID, alerts[0].AlertID)

	_, total, err = svc.List("", "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, _, err = svc.List("", models.AlertState("weird"), 0, 10)
	assert.Error(t, err)
}
