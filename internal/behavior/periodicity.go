package behavior

import (
	"math"
)

// isPeriodic reports whether the position history exhibits a repetitive cycle
// consistent with pacing. It reduces the 2D trace to the 1D distance from the
// first valid sample, then looks for an autocorrelation peak at a lag inside
// the expected cycle-length window.
//
// The reference point is wherever the animal happened to be when the window
// filled, not an absolute anchor; the signal drifts if the window straddles a
// long stationary stretch followed by movement.
func isPeriodic(history []Point, cfg Config) bool {
	n := len(history)
	if n < 3 {
		return false
	}

	valid := make([]bool, n)
	nValid := 0
	for i, p := range history {
		if !p.IsSentinel() {
			valid[i] = true
			nValid++
		}
	}

	missing := float64(n-nValid) / float64(n)
	if missing > cfg.MaxMissingFraction || nValid < 3 {
		return false
	}

	// Distance to the first valid sample, with gaps left for interpolation.
	var ref Point
	for i := 0; i < n; i++ {
		if valid[i] {
			ref = history[i]
			break
		}
	}

	dists := make([]float64, n)
	for i, p := range history {
		if valid[i] {
			dists[i] = dist(p, ref)
		} else {
			dists[i] = math.NaN()
		}
	}

	interpolateGaps(dists)

	// Center and smooth before correlating, to suppress detector jitter.
	mean := 0.0
	for _, v := range dists {
		mean += v
	}
	mean /= float64(n)
	for i := range dists {
		dists[i] -= mean
	}
	d := movingAverage3(dists)

	// Zero energy at lag 0 means a flat series; periodicity is undefined.
	zero := autocorrAt(d, 0)
	if zero == 0 {
		return false
	}

	dt := 1.0 / float64(cfg.SampleRate)
	minLag := int(math.Floor(cfg.MinCycleSeconds / dt))
	if minLag < 1 {
		minLag = 1
	}
	maxLag := int(math.Ceil(cfg.MaxCycleSeconds / dt))
	if maxLag > n-1 {
		maxLag = n - 1
	}
	if minLag >= maxLag {
		return false
	}

	peak := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if v := autocorrAt(d, lag) / zero; v > peak {
			peak = v
		}
	}

	return peak >= cfg.ACFThreshold
}

// interpolateGaps fills NaN entries by index-based linear interpolation
// between the neighboring valid values; leading and trailing gaps take the
// nearest valid value.
func interpolateGaps(xs []float64) {
	n := len(xs)

	prev := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(xs[i]) {
			prev = i
			continue
		}

		// Find the next valid value.
		next := -1
		for j := i + 1; j < n; j++ {
			if !math.IsNaN(xs[j]) {
				next = j
				break
			}
		}

		switch {
		case prev < 0 && next < 0:
			xs[i] = 0
		case prev < 0:
			xs[i] = xs[next]
		case next < 0:
			xs[i] = xs[prev]
		default:
			t := float64(i-prev) / float64(next-prev)
			xs[i] = xs[prev] + t*(xs[next]-xs[prev])
		}
	}
}

// movingAverage3 applies a 3-sample moving average with edge padding.
func movingAverage3(xs []float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		// Edge padding repeats the boundary sample, so the kernel always
		// averages three values.
		a := xs[lo]
		b := xs[i]
		c := xs[hi]
		out[i] = (a + b + c) / 3.0
	}
	return out
}

// autocorrAt computes the raw (unnormalized) autocorrelation at one lag.
func autocorrAt(xs []float64, lag int) float64 {
	sum := 0.0
	for i := 0; i+lag < len(xs); i++ {
		sum += xs[i] * xs[i+lag]
	}
	return sum
}
