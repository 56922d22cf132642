// Package controls maps input streams onto camera motion.
package controls

import (
	"fmt"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/input"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type AnimateMode int

const (
	AnimateOff AnimateMode = iota
	AnimateSpin
	AnimateRock
)

func (m AnimateMode) String() string {
	switch m {
	case AnimateSpin:
		return "spin"
	case AnimateRock:
		return "rock"
	}
	return "off"
}

func ParseAnimateMode(s string) (AnimateMode, error) {
	switch s {
	case "off", "":
		return AnimateOff, nil
	case "spin":
		return AnimateSpin, nil
	case "rock":
		return AnimateRock, nil
	}
	return 0, fmt.Errorf("unknown animate mode %q", s)
}

type AnimateProps struct {
	Mode AnimateMode
	// Speed is in radians per second for spin and full swings per second
	// for rock.
	Speed float32
	// Angle is the half swing of rock in radians.
	Angle float32
}

type Props struct {
	RotateSpeed float32
	ZoomSpeed   float32
	PanSpeed    float32
	NoScroll    bool

	// StaticMoving stops motion as soon as input stops; otherwise motion
	// decays by DynamicDampingFactor per update.
	StaticMoving         bool
	DynamicDampingFactor float32

	MinDistance float32
	MaxDistance float32
	// AutoAdjustMinMaxDistance derives the distance range from the scene
	// radius passed to AdjustDistance.
	AutoAdjustMinMaxDistance bool

	Animate AnimateProps
}

func DefaultProps() Props {
	return Props{
		RotateSpeed:              5,
		ZoomSpeed:                7,
		PanSpeed:                 1,
		DynamicDampingFactor:     0.2,
		MinDistance:              0.01,
		MaxDistance:              1e6,
		AutoAdjustMinMaxDistance: true,
		Animate:                  AnimateProps{Mode: AnimateOff, Speed: 0.5, Angle: 0.2},
	}
}

// restThreshold is the motion below which damped inertia stops.
const restThreshold = 1e-4

// TrackballControls rotates, pans and zooms a camera about its target in
// response to drag, wheel and pinch input, with optional inertia and
// spin or rock animation.
type TrackballControls struct {
	cam   *camera.Camera
	in    *input.Observer
	props Props
	subs  event.Group

	rotate mgl32.Vec2
	pan    mgl32.Vec2
	zoom   float32

	last    time.Duration
	started bool

	rock      *gween.Tween
	rockAngle float32
	rockDir   float32

	interacting bool
	disposed    bool
}

func New(in *input.Observer, cam *camera.Camera, props Props) *TrackballControls {
	c := &TrackballControls{cam: cam, in: in, props: props, rockDir: 1}
	c.subs.Add(
		in.Drag.Subscribe(c.onDrag),
		in.Wheel.Subscribe(c.onWheel),
		in.Pinch.Subscribe(c.onPinch),
		in.InteractionEnd.Subscribe(func(struct{}) { c.interacting = false }),
	)
	return c
}

func (c *TrackballControls) Props() Props { return c.props }

func (c *TrackballControls) SetProps(p Props) {
	if p.Animate != c.props.Animate {
		c.rock = nil
		c.rockAngle = 0
	}
	c.props = p
}

func (c *TrackballControls) viewHeight() float32 {
	vp := c.cam.Viewport()
	return float32(max(vp.Height, 1))
}

func (c *TrackballControls) onDrag(d input.DragInput) {
	c.interacting = true
	h := c.viewHeight()
	dx, dy := d.DX/h, d.DY/h
	switch {
	case d.Buttons.Has(input.ButtonPrimary) && !d.Modifiers.Any():
		c.rotate = c.rotate.Add(mgl32.Vec2{dx, dy}.Mul(c.props.RotateSpeed))
	case d.Buttons.Has(input.ButtonSecondary) || (d.Buttons.Has(input.ButtonPrimary) && d.Modifiers.Control):
		c.pan = c.pan.Add(mgl32.Vec2{dx, dy}.Mul(c.props.PanSpeed))
	case d.Buttons.Has(input.ButtonAuxiliary) || (d.Buttons.Has(input.ButtonPrimary) && d.Modifiers.Shift):
		c.zoom += dy * c.props.ZoomSpeed
	}
}

func (c *TrackballControls) onWheel(w input.WheelInput) {
	if c.props.NoScroll {
		return
	}
	c.zoom += w.DY * 0.0025 * c.props.ZoomSpeed
}

func (c *TrackballControls) onPinch(p input.PinchInput) {
	if p.IsStart || p.Fraction <= 0 {
		return
	}
	c.interacting = true
	c.zoom += (1 - p.Fraction) * c.props.ZoomSpeed * 0.5
}

// AdjustDistance fits the distance range to a scene of the given radius
// when AutoAdjustMinMaxDistance is set.
func (c *TrackballControls) AdjustDistance(sceneRadius float32) {
	if !c.props.AutoAdjustMinMaxDistance || sceneRadius <= 0 {
		return
	}
	c.props.MinDistance = math32.Max(0.01, sceneRadius*0.01)
	c.props.MaxDistance = math32.Max(sceneRadius*10, 100)
}

// IsAnimating reports whether Update will move the camera without new
// input: animation is on or inertia has not settled.
func (c *TrackballControls) IsAnimating() bool {
	return c.props.Animate.Mode != AnimateOff || c.isMoving()
}

// IsInteracting reports whether a drag or pinch is in progress.
func (c *TrackballControls) IsInteracting() bool { return c.interacting }

func (c *TrackballControls) isMoving() bool {
	return c.rotate.Len() > restThreshold || c.pan.Len() > restThreshold || math32.Abs(c.zoom) > restThreshold
}

// Reset drops pending motion and restarts animation.
func (c *TrackballControls) Reset() {
	c.rotate, c.pan, c.zoom = mgl32.Vec2{}, mgl32.Vec2{}, 0
	c.rock, c.rockAngle, c.rockDir = nil, 0, 1
	c.started = false
}

// Update applies pending motion and animation for time t.
func (c *TrackballControls) Update(t time.Duration) {
	if c.disposed {
		return
	}
	var dt float32
	if c.started {
		dt = float32((t - c.last).Seconds())
	}
	c.last, c.started = t, true
	if dt < 0 {
		dt = 0
	}

	if c.rotate.Len() > restThreshold {
		c.cam.Orbit(-c.rotate.X(), -c.rotate.Y())
	}
	if c.pan.Len() > restThreshold {
		dist := c.cam.State().Distance()
		c.cam.Pan(-c.pan.X()*dist, c.pan.Y()*dist)
	}
	if math32.Abs(c.zoom) > restThreshold {
		c.cam.Zoom(math32.Max(1+c.zoom, 0.05), c.props.MinDistance, c.props.MaxDistance)
	}
	c.animate(dt)
	c.damp()
}

func (c *TrackballControls) damp() {
	if c.props.StaticMoving {
		c.rotate, c.pan, c.zoom = mgl32.Vec2{}, mgl32.Vec2{}, 0
		return
	}
	k := 1 - c.props.DynamicDampingFactor
	c.rotate = c.rotate.Mul(k)
	c.pan = c.pan.Mul(k)
	c.zoom *= k
	if !c.isMoving() {
		c.rotate, c.pan, c.zoom = mgl32.Vec2{}, mgl32.Vec2{}, 0
	}
}

func (c *TrackballControls) animate(dt float32) {
	a := c.props.Animate
	if dt <= 0 || a.Speed <= 0 {
		return
	}
	switch a.Mode {
	case AnimateSpin:
		c.cam.Orbit(a.Speed*dt, 0)
	case AnimateRock:
		if c.rock == nil {
			// a swing goes from one extreme to the other
			c.rock = gween.New(c.rockAngle, c.rockDir*a.Angle, 0.5/a.Speed, ease.InOutSine)
		}
		v, done := c.rock.Update(dt)
		c.cam.Orbit(v-c.rockAngle, 0)
		c.rockAngle = v
		if done {
			c.rockDir = -c.rockDir
			c.rock = nil
		}
	}
}

func (c *TrackballControls) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.subs.Unsubscribe()
}
