package behavior

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// pacingTrace builds eight seconds of back-and-forth motion with the given
// cycle period, sampled at the configured rate. The path starts at one end
// of the sweep so the distance to the first sample completes a full cycle
// per period.
func pacingTrace(cfg Config, periodSeconds float64) []Point {
	n := 8 * cfg.SampleRate
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(cfg.SampleRate)
		x := 3 - 2*math.Cos(2*math.Pi*t/periodSeconds)
		pts[i] = Point{X: x, Y: 1}
	}
	return pts
}

func TestIsPeriodicDetectsPacing(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, isPeriodic(pacingTrace(cfg, 5.0), cfg))
}

func TestIsPeriodicRejectsDrift(t *testing.T) {
	// A steady directional walk moves away from the start without ever
	// returning, so no lag in the cycle window correlates.
	cfg := DefaultConfig()
	n := 8 * cfg.SampleRate
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		pts[i] = Point{X: float64(i) * 0.05, Y: 1}
	}
	assert.False(t, isPeriodic(pts, cfg))
}

func TestIsPeriodicRejectsShortHistory(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, isPeriodic(nil, cfg))
	assert.False(t, isPeriodic([]Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, cfg))
}

func TestIsPeriodicRejectsMostlyMissing(t *testing.T) {
	cfg := DefaultConfig()
	pts := pacingTrace(cfg, 5.0)
	for i := range pts {
		if i%3 != 0 {
			pts[i] = Point{}
		}
	}
	assert.False(t, isPeriodic(pts, cfg))
}

func TestIsPeriodicToleratesSparseGaps(t *testing.T) {
	cfg := DefaultConfig()
	pts := pacingTrace(cfg, 5.0)
	for i := range pts {
		if i%10 == 5 {
			pts[i] = Point{}
		}
	}
	assert.True(t, isPeriodic(pts, cfg))
}

func TestIsPeriodicRejectsFlatTrace(t *testing.T) {
	cfg := DefaultConfig()
	n := 8 * cfg.SampleRate
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: 4, Y: 4}
	}
	assert.False(t, isPeriodic(pts, cfg))
}

func TestInterpolateGaps(t *testing.T) {
	nan := math.NaN()
	xs := []float64{nan, 2, nan, nan, 8, nan}
	interpolateGaps(xs)
	assert.InDeltaSlice(t, []float64{2, 2, 4, 6, 8, 8}, xs, 1e-9)
}
