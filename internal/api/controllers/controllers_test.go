package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiSetup wires real services over the in-memory database and mounts every
// controller the way the router does.
func apiSetup(t *testing.T) *testutil.TestSetup {
	ts := testutil.NewTestSetup(t)
	t.Cleanup(ts.Cleanup)
	ts.MigrateAll()
	ts.Config.Welfare.Timezone = "UTC"

	rules, err := services.NewRuleService(ts.DB, &ts.Config.Welfare, ts.Logger)
	require.NoError(t, err)
	ingest, err := services.NewIngestService(ts.DB, &ts.Config.Welfare, rules, nil, nil, ts.Logger)
	require.NoError(t, err)
	reports, err := services.NewReportService(ts.DB, &ts.Config.Welfare, ts.Logger)
	require.NoError(t, err)

	animals := services.NewAnimalService(ts.DB, ts.Logger)
	alerts := services.NewAlertService(ts.DB, nil, ts.Logger)

	apiV1 := ts.Router.Group("/api/v1")
	NewAnimalController(animals, reports, ts.Logger).RegisterRoutes(apiV1.Group("/animals"))
	NewBehaviorController(ingest, ts.Logger).RegisterRoutes(apiV1.Group("/behavior"))
	NewAlertController(alerts, ts.Logger).RegisterRoutes(apiV1.Group("/alerts"))
	NewReportController(reports, ts.Logger).RegisterRoutes(apiV1.Group("/reports"))

	return ts
}

func TestCreateAndGetAnimal(t *testing.T) {
	ts := apiSetup(t)

	resp := ts.ExecuteRequest(http.MethodPost, "/api/v1/animals", CreateAnimalRequest{
		AnimalID:  "lion-1",
		Name:      "Kivu",
		Species:   "Panthera leo",
		Enclosure: "savanna-3",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created models.Animal
	ts.ParseResponse(resp, &created)
	assert.True(t, created.Active)

	resp = ts.ExecuteRequest(http.MethodGet, "/api/v1/animals/lion-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var fetched models.Animal
	ts.ParseResponse(resp, &fetched)
	assert.Equal(t, "Kivu", fetched.Name)
	assert.Equal(t, "savanna-3", fetched.Enclosure)

	resp = ts.ExecuteRequest(http.MethodGet, "/api/v1/animals/ghost-9", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateAnimalBadPayload(t *testing.T) {
	ts := apiSetup(t)

	resp := ts.ExecuteRequest(http.MethodPost, "/api/v1/animals", map[string]string{
		"name": "No ID",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIngestBehaviorEvent(t *testing.T) {
	ts := apiSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	resp := ts.ExecuteRequest(http.MethodPost, "/api/v1/behavior/events", CreateEventRequest{
		AnimalID:   "lion-1",
		Behavior:   "Foraging",
		TS:         time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		Confidence: 0.9,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var body CreateEventResponse
	ts.ParseResponse(resp, &body)
	require.NotNil(t, body.Event)
	assert.Nil(t, body.Alert)

	// Unknown behavior labels are rejected.
	resp = ts.ExecuteRequest(http.MethodPost, "/api/v1/behavior/events", CreateEventRequest{
		AnimalID: "lion-1",
		Behavior: "Levitating",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIngestReturnsTriggeredAlert(t *testing.T) {
	ts := apiSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	// Stack up stereotypy through the morning, then let the HTTP ingest tip
	// the rule over.
	repo := repository.NewRepositoryFactory(ts.DB.DB).Event()
	base := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 33; i++ {
		require.NoError(t, repo.Insert(&models.BehaviorEvent{
			AnimalID:   "lion-1",
			TS:         base.Add(time.Duration(i) * time.Minute),
			Behavior:   models.BehaviorStereotypy,
			Confidence: 0.9,
		}))
	}

	resp := ts.ExecuteRequest(http.MethodPost, "/api/v1/behavior/events", CreateEventRequest{
		AnimalID:   "lion-1",
		Behavior:   "Stereotypy",
		TS:         time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC),
		Confidence: 0.95,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var body CreateEventResponse
	ts.ParseResponse(resp, &body)
	require.NotNil(t, body.Alert)
	assert.Equal(t, models.AlertTypeAbnormalBehavior, body.Alert.Type)
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	ts := apiSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	at := time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC)
	alert := &models.Alert{
		AlertID:  models.NewAlertID("lion-1", models.AlertTypeAgitation, at),
		AnimalID: "lion-1",
		Type:     models.AlertTypeAgitation,
		Severity: models.SeverityMedium,
		Summary:  "seeded",
		State:    models.AlertStateOpen,
		TS:       at,
	}
	require.NoError(t, repository.NewRepositoryFactory(ts.DB.DB).Alert().Insert(alert))

	resp := ts.ExecuteRequest(http.MethodGet, "/api/v1/alerts?animal_id=lion-1&state=open", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var listed struct {
		Data []models.Alert `json:"data"`
	}
	ts.ParseResponse(resp, &listed)
	require.Len(t, listed.Data, 1)

	path := fmt.Sprintf("/api/v1/alerts/%s/acknowledge", alert.AlertID)
	resp = ts.ExecuteRequest(http.MethodPost, path, AcknowledgeRequest{AckBy: "keeper-ana"}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var closed models.Alert
	ts.ParseResponse(resp, &closed)
	assert.Equal(t, models.AlertStateClosed, closed.State)
	assert.Equal(t, "keeper-ana", closed.AckBy)

	// Re-acknowledging is a 404: nothing open under that ID anymore.
	resp = ts.ExecuteRequest(http.MethodPost, path, AcknowledgeRequest{AckBy: "keeper-ana"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGenerateReportOverHTTP(t *testing.T) {
	ts := apiSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	repo := repository.NewRepositoryFactory(ts.DB.DB).Event()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(&models.BehaviorEvent{
			AnimalID:   "lion-1",
			TS:         day.Add(9*time.Hour + time.Duration(i)*time.Minute),
			Behavior:   models.BehaviorResting,
			Confidence: 0.9,
		}))
	}

	resp := ts.ExecuteRequest(http.MethodPost, "/api/v1/reports/generate", GenerateReportRequest{
		AnimalID: "lion-1",
		Date:     "2026-08-20",
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var report models.WelfareReport
	ts.ParseResponse(resp, &report)
	assert.Equal(t, "lion-1", report.AnimalID)
	assert.Equal(t, 0, report.AlertsCount)
	assert.Equal(t, GeneratedByAPI, report.GeneratedBy)

	resp = ts.ExecuteRequest(http.MethodGet, "/api/v1/reports/"+report.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.ExecuteRequest(http.MethodGet, "/api/v1/reports?animal_id=lion-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestTimelineEndpointValidatesDate(t *testing.T) {
	ts := apiSetup(t)
	ts.SeedAnimal("lion-1", "Kivu", "Panthera leo")

	resp := ts.ExecuteRequest(http.MethodGet, "/api/v1/animals/lion-1/behavior/timeline?date=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.ExecuteRequest(http.MethodGet, "/api/v1/animals/lion-1/behavior/timeline?date=2026-08-20", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}
