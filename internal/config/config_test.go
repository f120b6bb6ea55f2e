package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "faunawatch", cfg.Database.DBName)
	assert.Equal(t, "faunawatch", cfg.Kafka.ConsumerGroup)

	assert.Equal(t, "America/Santiago", cfg.Welfare.Timezone)
	assert.Equal(t, 300, cfg.Welfare.SamplingPeriodSeconds)
	assert.Equal(t, 3600, cfg.Welfare.MinAnalysisWindowSeconds)
	assert.Equal(t, 5.0, cfg.Welfare.TolerancePct)
	assert.Equal(t, 30, cfg.Welfare.SampleRate)
	assert.Equal(t, 0.15, cfg.Welfare.ACFThreshold)
	assert.Equal(t, 40.0, cfg.Welfare.Baselines.Default["Resting"])

	loc, err := cfg.Welfare.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Santiago", loc.String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("FAUNAWATCH_WELFARE_TIMEZONE", "UTC")
	t.Setenv("FAUNAWATCH_SERVER_PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Welfare.Timezone)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigRejectsBadTimezone(t *testing.T) {
	t.Setenv("FAUNAWATCH_WELFARE_TIMEZONE", "Not/AZone")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoadConfigRejectsNonPositiveSampling(t *testing.T) {
	t.Setenv("FAUNAWATCH_WELFARE_SAMPLING_PERIOD_SECONDS", "0")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling period")
}

func TestLoadConfigRejectsEmptyCycleWindow(t *testing.T) {
	t.Setenv("FAUNAWATCH_WELFARE_MIN_CYCLE_SECONDS", "8.0")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle window")
}

func TestBaselineSetLookup(t *testing.T) {
	baselines := BaselineSet{
		Default: map[string]float64{"Resting": 40.0, "Foraging": 20.0},
		Animals: map[string]map[string]float64{
			"a-002": {"Resting": 55.0},
		},
	}

	v, ok := baselines.Lookup("a-001", "Resting")
	assert.True(t, ok)
	assert.Equal(t, 40.0, v)

	// Per-animal override replaces the whole map, not single entries.
	v, ok = baselines.Lookup("a-002", "Resting")
	assert.True(t, ok)
	assert.Equal(t, 55.0, v)
	_, ok = baselines.Lookup("a-002", "Foraging")
	assert.False(t, ok)

	_, ok = baselines.Lookup("a-001", "Burrowing")
	assert.False(t, ok)
}

func TestDefaultWelfareConfigMatchesViperDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	def := DefaultWelfareConfig()
	assert.Equal(t, def.Timezone, cfg.Welfare.Timezone)
	assert.Equal(t, def.SamplingPeriodSeconds, cfg.Welfare.SamplingPeriodSeconds)
	assert.Equal(t, def.MinCycleSeconds, cfg.Welfare.MinCycleSeconds)
	assert.Equal(t, def.MaxCycleSeconds, cfg.Welfare.MaxCycleSeconds)
	assert.Equal(t, def.Baselines.Default, cfg.Welfare.Baselines.Default)
}
