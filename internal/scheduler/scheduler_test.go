package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnimals struct {
	ids []string
	err error
}

func (f *fakeAnimals) ListActiveIDs() ([]string, error) {
	return f.ids, f.err
}

type generatedCall struct {
	animalID string
	day      string
	by       string
}

type fakeReports struct {
	calls   []generatedCall
	failFor map[string]bool
}

func (f *fakeReports) GenerateDaily(animalID string, day time.Time, generatedBy string) (*models.WelfareReport, error) {
	f.calls = append(f.calls, generatedCall{
		animalID: animalID,
		day:      day.Format("2006-01-02"),
		by:       generatedBy,
	})
	if f.failFor[animalID] {
		return nil, errors.New("boom")
	}
	return &models.WelfareReport{AnimalID: animalID}, nil
}

type fakeEvictor struct {
	calls int
}

func (f *fakeEvictor) Evict(now time.Time) int {
	f.calls++
	return 1
}

func testLogger(t *testing.T) *utils.Logger {
	zl, err := zap.NewDevelopment()
	require.NoError(t, err)
	return &utils.Logger{Logger: zl}
}

func newTestScheduler(t *testing.T, animals AnimalProvider, reports ReportGenerator, evictor Evictor) *Scheduler {
	cfg := config.DefaultWelfareConfig()
	cfg.Timezone = "UTC"
	cfg.BackfillDays = 2

	s, err := New(&cfg, animals, reports, evictor, testLogger(t))
	require.NoError(t, err)
	return s
}

func TestSweepCoversEveryAnimal(t *testing.T) {
	animals := &fakeAnimals{ids: []string{"lion-1", "tapir-2", "wolf-3"}}
	reports := &fakeReports{}
	evictor := &fakeEvictor{}
	s := newTestScheduler(t, animals, reports, evictor)

	now := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	failed := s.Sweep(now)

	assert.Zero(t, failed)
	assert.Equal(t, 1, evictor.calls)
	require.Len(t, reports.calls, 3)
	for i, id := range animals.ids {
		assert.Equal(t, id, reports.calls[i].animalID)
		assert.Equal(t, "2026-08-28", reports.calls[i].day)
		assert.Equal(t, GeneratedByScheduler, reports.calls[i].by)
	}
}

func TestSweepIsolatesFailures(t *testing.T) {
	animals := &fakeAnimals{ids: []string{"lion-1", "tapir-2", "wolf-3"}}
	reports := &fakeReports{failFor: map[string]bool{"tapir-2": true}}
	s := newTestScheduler(t, animals, reports, nil)

	failed := s.Sweep(time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, failed)
	// The failing animal must not stop the others.
	require.Len(t, reports.calls, 3)
	assert.Equal(t, "wolf-3", reports.calls[2].animalID)
}

func TestBackfillWalksPastDays(t *testing.T) {
	animals := &fakeAnimals{ids: []string{"lion-1"}}
	reports := &fakeReports{}
	s := newTestScheduler(t, animals, reports, nil)

	s.Backfill(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))

	require.Len(t, reports.calls, 2)
	assert.Equal(t, "2026-08-26", reports.calls[0].day)
	assert.Equal(t, "2026-08-27", reports.calls[1].day)
}

func TestSweepSurvivesListFailure(t *testing.T) {
	animals := &fakeAnimals{err: errors.New("db down")}
	reports := &fakeReports{}
	s := newTestScheduler(t, animals, reports, nil)

	failed := s.Sweep(time.Now())
	assert.Zero(t, failed)
	assert.Empty(t, reports.calls)
}
