// Package behavior turns noisy per-frame 2D position samples into a
// debounced activity state per (animal, camera), with autocorrelation-based
// pacing detection.
package behavior

// State is the stabilized activity state of one animal as seen by one camera.
type State string

const (
	// StateUnknown means no usable detection signal.
	StateUnknown State = "Unknown"
	// StateStill means the animal is effectively stationary.
	StateStill State = "Still"
	// StateMoving means generic locomotion.
	StateMoving State = "Moving"
	// StatePacing means repetitive, stereotyped movement.
	StatePacing State = "Pacing"
)

// statePriority orders states for multi-camera fusion. A pathological signal
// from any camera wins over a benign one.
var statePriority = map[State]int{
	StatePacing:  3,
	StateMoving:  2,
	StateStill:   1,
	StateUnknown: 0,
}

// Fuse merges the states reported by every camera observing the same animal,
// picking the highest-priority one: Pacing > Moving > Still > Unknown.
func Fuse(states ...State) State {
	fused := StateUnknown
	for _, s := range states {
		if statePriority[s] > statePriority[fused] {
			fused = s
		}
	}
	return fused
}

// Point is a 2D position sample in camera coordinates.
type Point struct {
	X float64
	Y float64
}

// IsSentinel reports whether p is the (0,0) "no detection" marker emitted by
// the tracking stage when the animal is not visible.
func (p Point) IsSentinel() bool {
	return p.X == 0 && p.Y == 0
}
