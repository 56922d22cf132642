package camera

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Transition eases the camera from one snapshot to another. Only one
// transition is active at a time; starting a new one replaces it.
type Transition struct {
	from, to Snapshot
	tween    *gween.Tween
	last     time.Duration
	started  bool
	current  Snapshot
	active   bool
}

// Start begins a transition from the current state. The first Tick after
// Start sets the time origin.
func (tr *Transition) Start(from, to Snapshot, d time.Duration) {
	tr.from, tr.to = from, to
	tr.current = from
	tr.tween = gween.New(0, 1, float32(d.Seconds()), ease.InOutCubic)
	tr.started = false
	tr.active = true
}

func (tr *Transition) Cancel() {
	tr.active = false
	tr.tween = nil
}

func (tr *Transition) InTransition() bool { return tr.active }

// Target is the snapshot the transition ends at.
func (tr *Transition) Target() Snapshot { return tr.to }

// Tick advances to time t and returns the interpolated state and whether
// the transition finished with this tick.
func (tr *Transition) Tick(t time.Duration) (Snapshot, bool) {
	if !tr.active {
		return tr.current, false
	}
	if !tr.started {
		tr.started = true
		tr.last = t
	}
	dt := float32((t - tr.last).Seconds())
	tr.last = t
	if dt < 0 {
		dt = 0
	}
	v, done := tr.tween.Update(dt)
	if done {
		tr.current = tr.to
		tr.Cancel()
		return tr.current, true
	}
	tr.current = interpolate(tr.from, tr.to, v)
	return tr.current, false
}
