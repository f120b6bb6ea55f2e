package behavior

import (
	"math"
)

// Config holds the classifier tunables for one camera.
type Config struct {
	// SampleRate is the expected samples per second (normally the camera's
	// frame rate).
	SampleRate int
	// InactivityThreshold is the max displacement between consecutive frames
	// (camera units) still read as "not moving". Tune to the pixel scale.
	InactivityThreshold float64
	// MinCycleSeconds/MaxCycleSeconds bound the pacing cycle length searched
	// by the periodicity detector.
	MinCycleSeconds float64
	MaxCycleSeconds float64
	// ACFThreshold is the minimum autocorrelation peak accepted as periodic.
	ACFThreshold float64
	// MaxMissingFraction is the max fraction of sentinel samples the
	// periodicity detector tolerates before giving up.
	MaxMissingFraction float64
}

// DefaultConfig returns the tunables matching the facility's 30fps cameras.
func DefaultConfig() Config {
	return Config{
		SampleRate:          30,
		InactivityThreshold: 1.5,
		MinCycleSeconds:     3.0,
		MaxCycleSeconds:     7.0,
		ACFThreshold:        0.15,
		MaxMissingFraction:  0.5,
	}
}

// Classifier holds the rolling position window and hysteresis state for one
// (animal, camera) pair. It is not safe for concurrent use; the Registry
// serializes access.
type Classifier struct {
	cfg      Config
	capacity int

	// Rolling window of the last 8s of positions, FIFO once full.
	window []Point

	// Consecutive-sample counters, one per raw state. Observing a raw state
	// increments its counter and zeroes the others; the stable state only
	// changes once a counter reaches its threshold.
	counts     map[State]int
	thresholds map[State]int
	stable     State
}

// NewClassifier creates a classifier for one animal/camera stream.
func NewClassifier(cfg Config) *Classifier {
	fm := cfg.SampleRate
	return &Classifier{
		cfg:      cfg,
		capacity: 8 * fm,
		window:   make([]Point, 0, 8*fm),
		counts:   make(map[State]int, 4),
		thresholds: map[State]int{
			StateMoving:  fm / 3,
			StateStill:   fm / 3,
			StatePacing:  fm / 2,
			StateUnknown: fm,
		},
		stable: StateUnknown,
	}
}

// Observe processes one position sample: classifies it against the existing
// window, debounces the raw state, then appends the sample. Returns the
// stabilized state after this sample.
func (c *Classifier) Observe(p Point) State {
	raw := c.classify(p)
	stable := c.stabilize(raw)
	c.push(p)
	return stable
}

// Stable returns the currently held stabilized state.
func (c *Classifier) Stable() State {
	return c.stable
}

// classify maps a new sample to a raw state using the existing window only.
func (c *Classifier) classify(p Point) State {
	if p.IsSentinel() || len(c.window) == 0 {
		return StateUnknown
	}

	last := c.window[len(c.window)-1]
	if dist(p, last) <= c.cfg.InactivityThreshold {
		return StateStill
	}

	if isPeriodic(c.window, c.cfg) {
		return StatePacing
	}

	return StateMoving
}

// stabilize debounces the raw state with per-state consecutive counters.
// The held state only flips once a counter reaches its threshold; below
// threshold the previous stable state persists.
func (c *Classifier) stabilize(raw State) State {
	for s := range c.counts {
		if s != raw {
			c.counts[s] = 0
		}
	}
	c.counts[raw]++

	if c.counts[raw] >= c.thresholds[raw] {
		c.stable = raw
	}

	return c.stable
}

// push appends the sample to the rolling window, evicting FIFO at capacity.
func (c *Classifier) push(p Point) {
	if len(c.window) == c.capacity {
		copy(c.window, c.window[1:])
		c.window = c.window[:c.capacity-1]
	}
	c.window = append(c.window, p)
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
