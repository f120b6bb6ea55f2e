package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierStartsUnknown(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	assert.Equal(t, StateUnknown, c.Stable())
}

func TestClassifierHysteresisMoving(t *testing.T) {
	// SampleRate 30 puts the Moving flip threshold at 10 raw samples.
	c := NewClassifier(DefaultConfig())

	c.Observe(Point{X: 0, Y: 0})
	require.Equal(t, StateUnknown, c.Stable())

	// Nine consecutive raw Moving samples must not flip the stable state.
	for i := 1; i <= 9; i++ {
		c.Observe(Point{X: float64(i) * 10, Y: 0})
		assert.Equal(t, StateUnknown, c.Stable(), "stable state flipped after %d samples", i)
	}

	// The tenth does.
	got := c.Observe(Point{X: 100, Y: 0})
	assert.Equal(t, StateMoving, got)
	assert.Equal(t, StateMoving, c.Stable())
}

func TestClassifierHysteresisResetsOnInterruption(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	c.Observe(Point{X: 0, Y: 0})

	// Five Moving samples, then a Still sample, then five more Moving. The
	// Still sample zeroes the Moving counter so the run never reaches ten.
	x := 0.0
	for i := 0; i < 5; i++ {
		x += 10
		c.Observe(Point{X: x, Y: 0})
	}
	c.Observe(Point{X: x, Y: 0})
	for i := 0; i < 5; i++ {
		x += 10
		c.Observe(Point{X: x, Y: 0})
	}

	assert.Equal(t, StateUnknown, c.Stable())
}

func TestClassifierStillAfterMoving(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	c.Observe(Point{X: 0, Y: 0})
	for i := 1; i <= 10; i++ {
		c.Observe(Point{X: float64(i) * 10, Y: 0})
	}
	require.Equal(t, StateMoving, c.Stable())

	// Within the inactivity radius of the previous sample.
	for i := 0; i < 9; i++ {
		c.Observe(Point{X: 100.5, Y: 0})
		assert.Equal(t, StateMoving, c.Stable())
	}
	c.Observe(Point{X: 100.5, Y: 0})
	assert.Equal(t, StateStill, c.Stable())
}

func TestClassifierSentinelGoesUnknown(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	c.Observe(Point{X: 0, Y: 0})
	for i := 1; i <= 10; i++ {
		c.Observe(Point{X: float64(i) * 10, Y: 0})
	}
	require.Equal(t, StateMoving, c.Stable())

	// Unknown carries the largest threshold, a full second of samples.
	for i := 0; i < 29; i++ {
		c.Observe(Point{})
		assert.Equal(t, StateMoving, c.Stable())
	}
	c.Observe(Point{})
	assert.Equal(t, StateUnknown, c.Stable())
}

func TestFusePriority(t *testing.T) {
	assert.Equal(t, StatePacing, Fuse(StateStill, StatePacing, StateMoving))
	assert.Equal(t, StateMoving, Fuse(StateStill, StateMoving, StateUnknown))
	assert.Equal(t, StateStill, Fuse(StateUnknown, StateStill))
	assert.Equal(t, StateUnknown, Fuse(StateUnknown))
	assert.Equal(t, StateUnknown, Fuse())
}

func TestRegistryFusesAcrossCameras(t *testing.T) {
	// SampleRate 3 drops the Moving and Still thresholds to a single sample
	// so the tracks flip immediately.
	cfg := DefaultConfig()
	cfg.SampleRate = 3
	r := NewRegistry(cfg, 10*time.Minute)

	now := time.Now()
	r.Observe("lion-1", "cam-a", Point{X: 0, Y: 0}, now)
	r.Observe("lion-1", "cam-a", Point{X: 10, Y: 0}, now)
	r.Observe("lion-1", "cam-b", Point{X: 5, Y: 5}, now)
	r.Observe("lion-1", "cam-b", Point{X: 5, Y: 5}, now)

	assert.Equal(t, StateMoving, r.Fused("lion-1"))
	assert.Equal(t, StateUnknown, r.Fused("lion-2"))
	assert.Equal(t, 2, r.Tracks())
}

func TestRegistryEviction(t *testing.T) {
	r := NewRegistry(DefaultConfig(), 10*time.Minute)

	now := time.Now()
	r.Observe("lion-1", "cam-a", Point{X: 1, Y: 1}, now)
	r.Observe("tapir-2", "cam-a", Point{X: 2, Y: 2}, now.Add(5*time.Minute))

	removed := r.Evict(now.Add(11 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Tracks())
	assert.Equal(t, StateUnknown, r.Fused("lion-1"))
}
