// Package scene holds the mutable set of render objects and reconciles it
// with the GPU through a time-boxed commit.
package scene

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/renderable"
)

type Transparency int

const (
	TransparencyBlended Transparency = iota
	TransparencyWboit
	TransparencyDpoit
)

func (t Transparency) String() string {
	switch t {
	case TransparencyWboit:
		return "wboit"
	case TransparencyDpoit:
		return "dpoit"
	}
	return "blended"
}

func ParseTransparency(s string) (Transparency, error) {
	switch s {
	case "blended", "":
		return TransparencyBlended, nil
	case "wboit":
		return TransparencyWboit, nil
	case "dpoit":
		return TransparencyDpoit, nil
	}
	return 0, fmt.Errorf("unknown transparency %q", s)
}

// Group is an ordered list of renderables with its own bounding sphere.
type Group struct {
	renderables    []*renderable.Renderable
	boundingSphere core.Sphere3D
}

func (g *Group) Renderables() []*renderable.Renderable { return g.renderables }
func (g *Group) BoundingSphere() core.Sphere3D         { return g.boundingSphere }
func (g *Group) Count() int                            { return len(g.renderables) }

func (g *Group) remove(r *renderable.Renderable) {
	g.renderables = slices.DeleteFunc(g.renderables, func(x *renderable.Renderable) bool { return x == r })
}

func (g *Group) sort() {
	slices.SortStableFunc(g.renderables, func(a, b *renderable.Renderable) int {
		if c := cmp.Compare(a.MaterialID(), b.MaterialID()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
}

type Stats struct {
	Adds        int
	Removes     int
	UpdateCalls int
	Commits     int
	// Units counts the queue entries processed by Commit.
	Units int
}

type Option func(*Scene)

// WithClock replaces the clock used to time-box Commit.
func WithClock(now func() time.Time) Option {
	return func(s *Scene) { s.now = now }
}

type Scene struct {
	ctx gpu.Context
	now func() time.Time

	primitives *Group
	volumes    *Group
	byID       map[int]*renderable.Renderable

	adds     queue
	removes  queue
	updates  queue
	dirty    bool
	sphereOK bool

	boundingSphere        core.Sphere3D
	boundingSphereVisible core.Sphere3D
	visibleHash           uint64

	markerAverage   float32
	opacityAverage  float32
	emissiveAverage float32
	hasOpaque       bool
	transparency    Transparency

	stats Stats
}

func Create(ctx gpu.Context, opts ...Option) *Scene {
	s := &Scene{
		ctx:        ctx,
		now:        time.Now,
		primitives: &Group{},
		volumes:    &Group{},
		byID:       make(map[int]*renderable.Renderable),
		sphereOK:   true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add queues o. Adding an object that is already present or queued is
// downgraded to an update.
func (s *Scene) Add(o *renderable.RenderObject) {
	s.stats.Adds++
	switch {
	case s.removes.has(o):
		s.removes.delete(o)
		s.updates.push(o)
		s.dirty = true
		s.sphereOK = false
	case s.byID[o.ID] != nil:
		s.updates.push(o)
		s.dirty = true
		s.sphereOK = false
	case s.adds.has(o):
	default:
		s.adds.push(o)
	}
}

// Remove queues o for removal; a pending add is simply dropped.
func (s *Scene) Remove(o *renderable.RenderObject) {
	s.stats.Removes++
	if s.adds.has(o) {
		s.adds.delete(o)
		return
	}
	if s.byID[o.ID] != nil {
		s.updates.delete(o)
		s.removes.push(o)
	}
}

// Update queues value uploads for objects, or for every object when
// objects is nil. Unless keepBoundingSphere is set the next commit
// recomputes the bounding spheres.
func (s *Scene) Update(objects []*renderable.RenderObject, keepBoundingSphere bool) {
	s.stats.UpdateCalls++
	if objects == nil {
		for _, g := range []*Group{s.primitives, s.volumes} {
			for _, r := range g.renderables {
				s.updates.push(r.Object)
			}
		}
	}
	for _, o := range objects {
		if s.byID[o.ID] != nil && !s.removes.has(o) {
			s.updates.push(o)
		}
	}
	if !keepBoundingSphere {
		s.sphereOK = false
	}
	s.dirty = true
}

func (s *Scene) CommitQueueSize() int {
	return s.adds.len() + s.removes.len() + s.updates.len()
}

func (s *Scene) NeedsCommit() bool {
	return s.CommitQueueSize() > 0 || s.dirty
}

// Commit processes removals, additions and updates in that order. With a
// positive maxTime it stops after the unit that exhausted the budget and
// returns false; the caller resumes on a later tick.
func (s *Scene) Commit(maxTime time.Duration) bool {
	s.stats.Commits++
	start := s.now()
	over := func() bool {
		s.stats.Units++
		return maxTime > 0 && s.now().Sub(start) >= maxTime && s.CommitQueueSize() > 0
	}
	for s.removes.len() > 0 {
		s.removeRenderable(s.removes.pop())
		if over() {
			return false
		}
	}
	for s.adds.len() > 0 {
		s.addRenderable(s.adds.pop())
		if over() {
			return false
		}
	}
	for s.updates.len() > 0 {
		o := s.updates.pop()
		if r := s.byID[o.ID]; r != nil {
			r.Update()
		}
		if over() {
			return false
		}
	}
	if s.dirty {
		s.finish()
	}
	return true
}

func (s *Scene) groupOf(r *renderable.Renderable) *Group {
	if r.IsVolume() {
		return s.volumes
	}
	return s.primitives
}

func (s *Scene) addRenderable(o *renderable.RenderObject) {
	r := renderable.New(s.ctx, o)
	s.byID[o.ID] = r
	g := s.groupOf(r)
	g.renderables = append(g.renderables, r)
	s.dirty = true
	s.sphereOK = false
}

func (s *Scene) removeRenderable(o *renderable.RenderObject) {
	r := s.byID[o.ID]
	if r == nil {
		return
	}
	delete(s.byID, o.ID)
	s.groupOf(r).remove(r)
	r.Dispose()
	s.dirty = true
	s.sphereOK = false
}

// finish recomputes bounding spheres and aggregates and sorts the groups.
func (s *Scene) finish() {
	s.primitives.sort()
	s.volumes.sort()
	if !s.sphereOK {
		s.computeBoundingSpheres()
		s.sphereOK = true
	}
	s.computeAggregates()
	s.visibleHash = s.computeVisibleHash()
	s.dirty = false
}

func (s *Scene) computeBoundingSpheres() {
	var all, visible []core.Sphere3D
	for _, g := range []*Group{s.primitives, s.volumes} {
		var spheres []core.Sphere3D
		for _, r := range g.renderables {
			bs := r.BoundingSphere()
			if bs.IsEmpty() {
				continue
			}
			spheres = append(spheres, bs)
			if r.Visible() {
				visible = append(visible, bs)
			}
		}
		g.boundingSphere = core.BoundingSphereOf(spheres)
		all = append(all, spheres...)
	}
	s.boundingSphere = core.BoundingSphereOf(all)
	s.boundingSphereVisible = s.clampVisible(core.BoundingSphereOf(visible))
}

// clampVisible keeps the visible sphere no larger than the full sphere.
func (s *Scene) clampVisible(v core.Sphere3D) core.Sphere3D {
	if v.Radius > s.boundingSphere.Radius {
		return s.boundingSphere
	}
	return v
}

func (s *Scene) computeAggregates() {
	var marker, opacity, emissive float32
	n := 0
	s.hasOpaque = false
	for _, g := range []*Group{s.primitives, s.volumes} {
		for _, r := range g.renderables {
			if !r.Visible() {
				continue
			}
			n++
			marker += r.Values().MarkerAverage.Get()
			opacity += r.Alpha()
			emissive += r.Emissive()
			if r.Opaque() {
				s.hasOpaque = true
			}
		}
	}
	if n == 0 {
		s.markerAverage, s.opacityAverage, s.emissiveAverage = 0, 0, 0
		return
	}
	s.markerAverage = marker / float32(n)
	s.opacityAverage = opacity / float32(n)
	s.emissiveAverage = emissive / float32(n)
}

func (s *Scene) computeVisibleHash() uint64 {
	// FNV-1a over the ids of visible renderables
	h := uint64(14695981039346656037)
	for _, g := range []*Group{s.primitives, s.volumes} {
		for _, r := range g.renderables {
			if !r.Visible() {
				continue
			}
			h ^= uint64(r.ID())
			h *= 1099511628211
		}
	}
	return h
}

// SyncVisibility reports whether the set of visible objects changed since
// the last commit and refreshes the visible bounding sphere if so.
func (s *Scene) SyncVisibility() bool {
	h := s.computeVisibleHash()
	if h == s.visibleHash {
		return false
	}
	s.visibleHash = h
	var visible []core.Sphere3D
	for _, g := range []*Group{s.primitives, s.volumes} {
		for _, r := range g.renderables {
			if r.Visible() && !r.BoundingSphere().IsEmpty() {
				visible = append(visible, r.BoundingSphere())
			}
		}
	}
	s.boundingSphereVisible = s.clampVisible(core.BoundingSphereOf(visible))
	s.computeAggregates()
	return true
}

// Has reports whether o is committed or queued for addition and not queued
// for removal.
func (s *Scene) Has(o *renderable.RenderObject) bool {
	if s.adds.has(o) {
		return true
	}
	return s.byID[o.ID] != nil && !s.removes.has(o)
}

// Renderable returns the committed renderable of o.
func (s *Scene) Renderable(o *renderable.RenderObject) (*renderable.Renderable, bool) {
	r, ok := s.byID[o.ID]
	return r, ok
}

// Clear disposes every renderable and resets the bounding spheres.
func (s *Scene) Clear() {
	for _, g := range []*Group{s.primitives, s.volumes} {
		for _, r := range g.renderables {
			r.Dispose()
		}
		g.renderables = nil
		g.boundingSphere = core.EmptySphere()
	}
	clear(s.byID)
	s.adds.reset()
	s.removes.reset()
	s.updates.reset()
	s.boundingSphere = core.EmptySphere()
	s.boundingSphereVisible = core.EmptySphere()
	s.markerAverage, s.opacityAverage, s.emissiveAverage = 0, 0, 0
	s.hasOpaque = false
	s.visibleHash = s.computeVisibleHash()
	s.dirty = false
	s.sphereOK = true
}

func (s *Scene) SetTransparency(t Transparency) { s.transparency = t }
func (s *Scene) Transparency() Transparency     { return s.transparency }

func (s *Scene) Primitives() *Group                   { return s.primitives }
func (s *Scene) Volumes() *Group                      { return s.volumes }
func (s *Scene) Count() int                           { return len(s.byID) }
func (s *Scene) BoundingSphere() core.Sphere3D        { return s.boundingSphere }
func (s *Scene) BoundingSphereVisible() core.Sphere3D { return s.boundingSphereVisible }
func (s *Scene) MarkerAverage() float32               { return s.markerAverage }
func (s *Scene) OpacityAverage() float32              { return s.opacityAverage }
func (s *Scene) EmissiveAverage() float32             { return s.emissiveAverage }
func (s *Scene) HasOpaque() bool                      { return s.hasOpaque }
func (s *Scene) Stats() Stats                         { return s.stats }

// Renderables returns primitives followed by volumes.
func (s *Scene) Renderables() []*renderable.Renderable {
	out := make([]*renderable.Renderable, 0, s.Count())
	out = append(out, s.primitives.renderables...)
	return append(out, s.volumes.renderables...)
}

// ForEach calls fn for every committed renderable.
func (s *Scene) ForEach(fn func(r *renderable.Renderable)) {
	for _, g := range []*Group{s.primitives, s.volumes} {
		for _, r := range g.renderables {
			fn(r)
		}
	}
}
