package camera

import (
	"github.com/molcanvas/canvas3d/molgl/core"

	"github.com/go-gl/mathgl/mgl32"
)

type StereoProps struct {
	// EyeSeparation is the distance between the eyes in world units.
	EyeSeparation float32
	// FocusFactor places the zero-parallax plane at this fraction of the
	// target distance.
	FocusFactor float32
}

func DefaultStereoProps() StereoProps {
	return StereoProps{EyeSeparation: 0.062, FocusFactor: 1}
}

// Eye is one view of a StereoCamera. It satisfies the renderer camera
// interface.
type Eye struct {
	view       mgl32.Mat4
	projection mgl32.Mat4
	viewport   core.Viewport
	near, far  float32
	fogNear    float32
	fogFar     float32
}

func (e *Eye) View() mgl32.Mat4        { return e.view }
func (e *Eye) Projection() mgl32.Mat4  { return e.projection }
func (e *Eye) Viewport() core.Viewport { return e.viewport }
func (e *Eye) Near() float32           { return e.near }
func (e *Eye) Far() float32            { return e.far }
func (e *Eye) Fog() (float32, float32) { return e.fogNear, e.fogFar }

// StereoCamera derives side by side left and right eye cameras from a
// parent camera using off-axis projections.
type StereoCamera struct {
	parent *Camera
	Props  StereoProps
	Left   Eye
	Right  Eye
}

func NewStereoCamera(parent *Camera, props StereoProps) *StereoCamera {
	sc := &StereoCamera{parent: parent, Props: props}
	sc.Update()
	return sc
}

// Update recomputes both eyes from the parent; call it after the parent's
// Update.
func (sc *StereoCamera) Update() {
	p := sc.parent
	vp := p.Viewport()
	half := vp.Width / 2
	sc.Left.viewport = core.Viewport{X: vp.X, Y: vp.Y, Width: half, Height: vp.Height}
	sc.Right.viewport = core.Viewport{X: vp.X + half, Y: vp.Y, Width: vp.Width - half, Height: vp.Height}

	s := p.State()
	near, far := p.Near(), p.Far()
	fogNear, fogFar := p.Fog()
	focus := s.Distance() * sc.Props.FocusFactor
	if focus <= 0 {
		focus = 1
	}
	top := near * tanHalf(s.FOV)
	aspect := sc.Left.viewport.Aspect()
	wd := top * aspect
	shift := sc.Props.EyeSeparation / 2 * near / focus

	for i, e := range []*Eye{&sc.Left, &sc.Right} {
		sign := float32(-1)
		if i == 1 {
			sign = 1
		}
		e.near, e.far, e.fogNear, e.fogFar = near, far, fogNear, fogFar
		e.view = mgl32.Translate3D(-sign*sc.Props.EyeSeparation/2, 0, 0).Mul4(p.View())
		if s.Mode == Orthographic {
			e.projection = p.Projection()
			continue
		}
		e.projection = mgl32.Frustum(-wd-sign*shift, wd-sign*shift, -top, top, near, far)
	}
}
