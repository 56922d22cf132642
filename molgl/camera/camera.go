// Package camera holds the view state of a canvas: a snapshot of position,
// target and clipping, the matrices derived from it, and eased transitions
// between snapshots.
package camera

import (
	"time"

	"github.com/molcanvas/canvas3d/molgl/core"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Camera struct {
	state    Snapshot
	viewport core.Viewport

	view       mgl32.Mat4
	projection mgl32.Mat4
	invPV      mgl32.Mat4
	near, far  float32
	fogNear    float32
	fogFar     float32

	transition Transition
	// set by SetState and the transition until the next Update
	dirty bool
}

func New(state Snapshot, vp core.Viewport) *Camera {
	c := &Camera{state: state, viewport: vp, dirty: true}
	c.Update()
	return c
}

func (c *Camera) State() Snapshot { return c.state }

// SetState moves the camera to s, eased over d when d is positive. A new
// call replaces any running transition.
func (c *Camera) SetState(s Snapshot, d time.Duration) {
	if d <= 0 {
		c.transition.Cancel()
		c.state = s
		c.dirty = true
		return
	}
	c.transition.Start(c.state, s, d)
}

func (c *Camera) Transition() *Transition { return &c.transition }

// Adjust edits the current state and the end of a running transition in
// place without restarting it.
func (c *Camera) Adjust(fn func(s *Snapshot)) {
	fn(&c.state)
	if c.transition.InTransition() {
		fn(&c.transition.from)
		fn(&c.transition.to)
	}
	c.dirty = true
}

// TickTransition advances a running transition to time t.
func (c *Camera) TickTransition(t time.Duration) {
	if !c.transition.InTransition() {
		return
	}
	c.state, _ = c.transition.Tick(t)
	c.dirty = true
}

func (c *Camera) IsAnimating() bool { return c.transition.InTransition() }

func (c *Camera) SetViewport(vp core.Viewport) {
	if c.viewport != vp {
		c.viewport = vp
		c.dirty = true
	}
}

func (c *Camera) Viewport() core.Viewport { return c.viewport }
func (c *Camera) View() mgl32.Mat4        { return c.view }
func (c *Camera) Projection() mgl32.Mat4  { return c.projection }
func (c *Camera) Near() float32           { return c.near }
func (c *Camera) Far() float32            { return c.far }
func (c *Camera) Fog() (float32, float32) { return c.fogNear, c.fogFar }
func (c *Camera) Position() mgl32.Vec3    { return c.state.Position }
func (c *Camera) Target() mgl32.Vec3      { return c.state.Target }
func (c *Camera) Up() mgl32.Vec3          { return c.state.Up }

// Update recomputes matrices and clipping from the state. It reports
// whether view or projection changed since the previous call.
func (c *Camera) Update() bool {
	view, projection := c.view, c.projection
	c.updateClip()
	s := c.state
	c.view = mgl32.LookAtV(s.Position, s.Target, safeNormalize(s.Up))
	aspect := c.viewport.Aspect()
	if s.Mode == Orthographic {
		h := s.Distance() * math32.Tan(s.FOV/2)
		w := h * aspect
		c.projection = mgl32.Ortho(-w, w, -h, h, c.near, c.far)
	} else {
		c.projection = mgl32.Perspective(s.FOV, aspect, c.near, c.far)
	}
	c.invPV = c.projection.Mul4(c.view).Inv()
	changed := c.dirty || view != c.view || projection != c.projection
	c.dirty = false
	return changed
}

func (c *Camera) updateClip() {
	s := c.state
	radius := math32.Max(s.Radius, 0.01)
	normalizedFar := s.RadiusMax
	if s.ClipFar {
		normalizedFar = radius
	}
	dist := s.Distance()
	near := dist - radius
	far := dist + normalizedFar

	fogNearFactor := -(50 - s.Fog) / 50
	fogNear := dist - normalizedFar*fogNearFactor
	fogFar := far

	if s.Mode == Perspective {
		near = math32.Max(math32.Max(near, s.MinNear), 0.1)
		if far <= near {
			far = near + 0.01
		}
	} else {
		near = math32.Max(near, 0)
		if far <= near {
			far = near + 0.01
		}
	}
	if s.Fog <= 0 {
		fogNear = fogFar
	}
	c.near, c.far, c.fogNear, c.fogFar = near, far, fogNear, fogFar
}

// Project maps a world point to window coordinates of the viewport with
// depth in [0,1]. The w component is the clip-space w.
func (c *Camera) Project(p mgl32.Vec3) mgl32.Vec4 {
	clip := c.projection.Mul4(c.view).Mul4x1(p.Vec4(1))
	w := clip.W()
	if w == 0 {
		return mgl32.Vec4{}
	}
	vp := c.viewport
	return mgl32.Vec4{
		float32(vp.X) + (clip.X()/w*0.5+0.5)*float32(vp.Width),
		float32(vp.Y) + (clip.Y()/w*0.5+0.5)*float32(vp.Height),
		clip.Z()/w*0.5 + 0.5,
		w,
	}
}

// Unproject maps a window point with depth z in [0,1] back to world space.
// Coordinates have the origin at the bottom left.
func (c *Camera) Unproject(x, y, z float32) mgl32.Vec3 {
	vp := c.viewport
	ndc := mgl32.Vec4{
		(x-float32(vp.X))/float32(max(vp.Width, 1))*2 - 1,
		(y-float32(vp.Y))/float32(max(vp.Height, 1))*2 - 1,
		z*2 - 1,
		1,
	}
	w := c.invPV.Mul4x1(ndc)
	if w.W() == 0 {
		return w.Vec3()
	}
	return w.Vec3().Mul(1 / w.W())
}

// TargetDistance is the camera distance at which a sphere of the given
// radius fills the view.
func (c *Camera) TargetDistance(radius float32) float32 {
	fov := c.state.FOV
	if a := c.viewport.Aspect(); a < 1 {
		fov = 2 * math32.Atan(math32.Tan(fov/2)*a)
	}
	if c.state.Mode == Orthographic {
		return math32.Abs(radius / math32.Tan(fov/2))
	}
	return math32.Abs(radius / math32.Sin(fov/2))
}

// GetFocus returns the state that frames a sphere around center, keeping
// the current view direction and up vector.
func (c *Camera) GetFocus(center mgl32.Vec3, radius float32) Snapshot {
	s := c.state
	if c.transition.InTransition() {
		s = c.transition.Target()
	}
	dir := s.Direction()
	s.Target = center
	s.Position = center.Add(dir.Mul(c.TargetDistance(radius)))
	s.Radius = radius
	return s
}

// Focus moves to GetFocus(center, radius), eased over d.
func (c *Camera) Focus(center mgl32.Vec3, radius float32, d time.Duration) {
	if radius <= 0 {
		return
	}
	c.SetState(c.GetFocus(center, radius), d)
}

// Clone copies the camera without its transition.
func (c *Camera) Clone() *Camera {
	cc := *c
	cc.transition = Transition{}
	return &cc
}

// Orbit rotates the position about the target by the given angles in
// radians around the up and right axes.
func (c *Camera) Orbit(dx, dy float32) {
	s := c.state
	eye := s.Position.Sub(s.Target)
	up := safeNormalize(s.Up)
	right := up.Cross(eye)
	if right.Len() < 1e-6 {
		return
	}
	right = right.Normalize()
	q := mgl32.QuatRotate(dx, up).Mul(mgl32.QuatRotate(dy, right))
	s.Position = s.Target.Add(q.Rotate(eye))
	s.Up = q.Rotate(up).Normalize()
	c.state = s
	c.dirty = true
}

// Pan moves position and target in the view plane.
func (c *Camera) Pan(dx, dy float32) {
	s := c.state
	eye := s.Position.Sub(s.Target)
	up := safeNormalize(s.Up)
	right := safeNormalize(up.Cross(eye))
	d := right.Mul(dx).Add(up.Mul(dy))
	s.Position = s.Position.Add(d)
	s.Target = s.Target.Add(d)
	c.state = s
	c.dirty = true
}

// Zoom scales the target distance by factor, clamped to [minDist, maxDist]
// when those are positive.
func (c *Camera) Zoom(factor, minDist, maxDist float32) {
	s := c.state
	eye := s.Position.Sub(s.Target)
	d := eye.Len() * factor
	if minDist > 0 {
		d = math32.Max(d, minDist)
	}
	if maxDist > 0 {
		d = math32.Min(d, maxDist)
	}
	s.Position = s.Target.Add(safeNormalize(eye).Mul(d))
	c.state = s
	c.dirty = true
}
