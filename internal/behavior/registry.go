package behavior

import (
	"sync"
	"time"
)

// trackKey identifies one animal as seen by one camera. The same animal
// tracked by two cameras keeps two independent classifiers whose stable
// states are fused on read.
type trackKey struct {
	AnimalID string
	CameraID string
}

type track struct {
	classifier *Classifier
	lastSeen   time.Time
}

// Registry owns the per-track classifiers and evicts tracks that have gone
// quiet. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	cfg    Config
	ttl    time.Duration
	tracks map[trackKey]*track
}

// NewRegistry creates a registry whose tracks expire after ttl without a
// new sample.
func NewRegistry(cfg Config, ttl time.Duration) *Registry {
	return &Registry{
		cfg:    cfg,
		ttl:    ttl,
		tracks: make(map[trackKey]*track),
	}
}

// Observe feeds one position sample into the track for (animalID, cameraID),
// creating the track on first sight, and returns that track's stable state.
func (r *Registry) Observe(animalID, cameraID string, p Point, now time.Time) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := trackKey{AnimalID: animalID, CameraID: cameraID}
	t, ok := r.tracks[key]
	if !ok {
		t = &track{classifier: NewClassifier(r.cfg)}
		r.tracks[key] = t
	}
	t.lastSeen = now
	return t.classifier.Observe(p)
}

// Fused returns the animal's overall state across all live tracks. An animal
// with no tracks is Unknown.
func (r *Registry) Fused(animalID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]State, 0, 2)
	for key, t := range r.tracks {
		if key.AnimalID == animalID {
			states = append(states, t.classifier.Stable())
		}
	}
	return Fuse(states...)
}

// Evict drops every track not seen since now minus the TTL and returns the
// number removed.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.ttl)
	removed := 0
	for key, t := range r.tracks {
		if t.lastSeen.Before(cutoff) {
			delete(r.tracks, key)
			removed++
		}
	}
	return removed
}

// Tracks reports the number of live tracks.
func (r *Registry) Tracks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracks)
}
