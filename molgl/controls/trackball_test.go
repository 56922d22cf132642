package controls

import (
	"testing"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/input"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(props Props) (*TrackballControls, *camera.Camera, *input.Observer) {
	s := camera.DefaultSnapshot()
	s.Position = mgl32.Vec3{0, 0, 10}
	s.Radius = 5
	cam := camera.New(s, core.Viewport{Width: 100, Height: 100})
	in := input.NewObserver()
	in.SetSize(100, 100)
	return New(in, cam, props), cam, in
}

func staticProps() Props {
	p := DefaultProps()
	p.StaticMoving = true
	return p
}

func drag(in *input.Observer, b input.Buttons, dx, dy float32) {
	in.PointerDown(50, 50, b)
	in.PointerMove(50+dx, 50+dy)
	in.PointerUp(50+dx, 50+dy, b)
}

func TestRotate(t *testing.T) {
	c, cam, in := setup(staticProps())
	drag(in, input.ButtonPrimary, 20, 0)
	require.True(t, c.IsAnimating())

	c.Update(0)
	assert.InDelta(t, 10, cam.State().Distance(), 1e-4)
	assert.NotEqual(t, mgl32.Vec3{0, 0, 10}, cam.Position())
	assert.False(t, c.IsAnimating(), "static moving stops immediately")

	before := cam.Position()
	c.Update(time.Second)
	assert.Equal(t, before, cam.Position())
}

func TestDampedInertia(t *testing.T) {
	c, cam, in := setup(DefaultProps())
	drag(in, input.ButtonPrimary, 20, 0)
	c.Update(0)
	assert.True(t, c.IsAnimating())

	p := cam.Position()
	c.Update(time.Millisecond)
	assert.NotEqual(t, p, cam.Position(), "motion continues after input")
	for i := 0; i < 100; i++ {
		c.Update(time.Duration(i) * time.Millisecond)
	}
	assert.False(t, c.IsAnimating())
}

func TestPan(t *testing.T) {
	c, cam, in := setup(staticProps())
	drag(in, input.ButtonSecondary, 10, 0)
	c.Update(0)
	assert.Less(t, cam.Target().X(), float32(0))
	assert.InDelta(t, 10, cam.State().Distance(), 1e-4)
}

func TestWheelZoom(t *testing.T) {
	c, cam, in := setup(staticProps())
	in.Scroll(0, 100)
	c.Update(0)
	assert.InDelta(t, 27.5, cam.State().Distance(), 1e-3)

	in.Scroll(0, -40)
	c.Update(0)
	assert.InDelta(t, 8.25, cam.State().Distance(), 1e-3)

	p := c.Props()
	p.NoScroll = true
	c.SetProps(p)
	in.Scroll(0, 100)
	c.Update(0)
	assert.InDelta(t, 8.25, cam.State().Distance(), 1e-3)
}

func TestZoomLimits(t *testing.T) {
	p := staticProps()
	p.MinDistance, p.MaxDistance = 5, 20
	c, cam, in := setup(p)
	in.Scroll(0, 1000)
	c.Update(0)
	assert.InDelta(t, 20, cam.State().Distance(), 1e-4)
}

func TestPinchZoom(t *testing.T) {
	c, cam, in := setup(staticProps())
	in.PinchTo(100, true)
	in.PinchTo(150, false)
	assert.True(t, c.IsInteracting())
	in.PinchEnd()
	assert.False(t, c.IsInteracting())
	c.Update(0)
	assert.Less(t, cam.State().Distance(), float32(10), "spreading fingers zooms in")
}

func TestSpin(t *testing.T) {
	p := staticProps()
	p.Animate = AnimateProps{Mode: AnimateSpin, Speed: 1}
	c, cam, _ := setup(p)
	assert.True(t, c.IsAnimating())

	c.Update(0)
	c.Update(time.Second)
	assert.InDelta(t, 10*math32.Sin(1), cam.Position().X(), 1e-3)
	assert.InDelta(t, 10*math32.Cos(1), cam.Position().Z(), 1e-3)
}

func TestRock(t *testing.T) {
	p := staticProps()
	p.Animate = AnimateProps{Mode: AnimateRock, Speed: 1, Angle: 0.2}
	c, cam, _ := setup(p)

	c.Update(0)
	c.Update(500 * time.Millisecond)
	assert.InDelta(t, 10*math32.Sin(0.2), cam.Position().X(), 1e-3)
	c.Update(time.Second)
	assert.InDelta(t, 10*math32.Sin(-0.2), cam.Position().X(), 1e-3)
}

func TestAdjustDistance(t *testing.T) {
	c, _, _ := setup(DefaultProps())
	c.AdjustDistance(50)
	assert.InDelta(t, 0.5, c.Props().MinDistance, 1e-6)
	assert.InDelta(t, 500, c.Props().MaxDistance, 1e-3)

	p := c.Props()
	p.AutoAdjustMinMaxDistance = false
	c.SetProps(p)
	c.AdjustDistance(1)
	assert.InDelta(t, 500, c.Props().MaxDistance, 1e-3)
}

func TestParseAnimateMode(t *testing.T) {
	m, err := ParseAnimateMode("rock")
	require.NoError(t, err)
	assert.Equal(t, AnimateRock, m)
	_, err = ParseAnimateMode("wobble")
	assert.Error(t, err)
}

func TestDispose(t *testing.T) {
	c, cam, in := setup(staticProps())
	c.Dispose()
	c.Dispose()
	drag(in, input.ButtonPrimary, 20, 0)
	c.Update(0)
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, cam.Position())
}
