// Package input turns raw pointer and key events into the higher level
// streams the canvas and its controls consume: drag, wheel, pinch, click,
// move, leave and interaction end. A host (see molgl/host) feeds the raw
// events; nothing in here touches a window system.
package input

import (
	"github.com/molcanvas/canvas3d/molgl/event"

	"github.com/chewxy/math32"
)

type Buttons uint8

const (
	ButtonPrimary Buttons = 1 << iota
	ButtonSecondary
	ButtonAuxiliary
)

func (b Buttons) Has(o Buttons) bool { return b&o != 0 }

type Modifiers struct {
	Shift, Alt, Control, Meta bool
}

func (m Modifiers) Any() bool { return m.Shift || m.Alt || m.Control || m.Meta }

// Positions are in pixels of the drawing buffer with the origin at the top
// left.

type DragInput struct {
	X, Y      float32
	DX, DY    float32
	Buttons   Buttons
	Button    Buttons
	Modifiers Modifiers
	IsStart   bool
}

type WheelInput struct {
	X, Y      float32
	DX, DY    float32
	Buttons   Buttons
	Modifiers Modifiers
}

type PinchInput struct {
	// Fraction is the current finger distance over the previous one.
	Fraction  float32
	Distance  float32
	Delta     float32
	Modifiers Modifiers
	IsStart   bool
}

type ClickInput struct {
	X, Y      float32
	Buttons   Buttons
	Button    Buttons
	Modifiers Modifiers
}

type MoveInput struct {
	X, Y      float32
	Buttons   Buttons
	Modifiers Modifiers
	Inside    bool
}

type KeyInput struct {
	Key       string
	Modifiers Modifiers
}

type ResizeInput struct {
	Width, Height int
}

// clickTolerance is how far in pixels the pointer may travel between press
// and release for the release to count as a click.
const clickTolerance = 4

// Observer is the event hub of one canvas.
type Observer struct {
	Drag           *event.Subject[DragInput]
	Wheel          *event.Subject[WheelInput]
	Pinch          *event.Subject[PinchInput]
	Click          *event.Subject[ClickInput]
	Move           *event.Subject[MoveInput]
	Leave          *event.Subject[struct{}]
	Enter          *event.Subject[struct{}]
	InteractionEnd *event.Subject[struct{}]
	KeyDown        *event.Subject[KeyInput]
	KeyUp          *event.Subject[KeyInput]
	Resize         *event.Subject[ResizeInput]
	// ModifiersChanged replays the current modifiers to new subscribers.
	ModifiersChanged *event.Subject[Modifiers]

	width, height int
	x, y          float32
	downX, downY  float32
	buttons       Buttons
	button        Buttons
	modifiers     Modifiers
	dragging      bool
	inside        bool
	pinchDistance float32
	disposed      bool
}

func NewObserver() *Observer {
	return &Observer{
		Drag:             event.NewSubject[DragInput](),
		Wheel:            event.NewSubject[WheelInput](),
		Pinch:            event.NewSubject[PinchInput](),
		Click:            event.NewSubject[ClickInput](),
		Move:             event.NewSubject[MoveInput](),
		Leave:            event.NewSubject[struct{}](),
		Enter:            event.NewSubject[struct{}](),
		InteractionEnd:   event.NewSubject[struct{}](),
		KeyDown:          event.NewSubject[KeyInput](),
		KeyUp:            event.NewSubject[KeyInput](),
		Resize:           event.NewSubject[ResizeInput](),
		ModifiersChanged: event.NewBehavior(Modifiers{}),
	}
}

func (o *Observer) Width() int                { return o.width }
func (o *Observer) Height() int               { return o.height }
func (o *Observer) Buttons() Buttons          { return o.buttons }
func (o *Observer) Modifiers() Modifiers      { return o.modifiers }
func (o *Observer) IsInside() bool            { return o.inside }
func (o *Observer) IsDragging() bool          { return o.dragging }
func (o *Observer) Position() (x, y float32)  { return o.x, o.y }
func (o *Observer) IsDisposed() bool          { return o.disposed }
func (o *Observer) Size() (width, height int) { return o.width, o.height }

func (o *Observer) SetSize(width, height int) {
	if o.disposed || (o.width == width && o.height == height) {
		return
	}
	o.width, o.height = width, height
	o.Resize.Next(ResizeInput{Width: width, Height: height})
}

func (o *Observer) SetModifiers(m Modifiers) {
	if o.disposed || o.modifiers == m {
		return
	}
	o.modifiers = m
	o.ModifiersChanged.Next(m)
}

func (o *Observer) contains(x, y float32) bool {
	return x >= 0 && y >= 0 && x < float32(o.width) && y < float32(o.height)
}

func (o *Observer) PointerDown(x, y float32, button Buttons) {
	if o.disposed {
		return
	}
	o.x, o.y = x, y
	o.downX, o.downY = x, y
	o.buttons |= button
	o.button = button
	o.dragging = false
}

func (o *Observer) PointerMove(x, y float32) {
	if o.disposed {
		return
	}
	dx, dy := x-o.x, y-o.y
	o.x, o.y = x, y

	inside := o.contains(x, y)
	if inside != o.inside {
		o.inside = inside
		if inside {
			o.Enter.Next(struct{}{})
		} else if o.buttons == 0 {
			o.Leave.Next(struct{}{})
		}
	}

	if o.buttons != 0 {
		if !o.dragging && math32.Hypot(x-o.downX, y-o.downY) <= clickTolerance {
			return
		}
		start := !o.dragging
		o.dragging = true
		o.Drag.Next(DragInput{
			X: x, Y: y, DX: dx, DY: dy,
			Buttons: o.buttons, Button: o.button, Modifiers: o.modifiers,
			IsStart: start,
		})
		return
	}
	o.Move.Next(MoveInput{X: x, Y: y, Buttons: o.buttons, Modifiers: o.modifiers, Inside: inside})
}

func (o *Observer) PointerUp(x, y float32, button Buttons) {
	if o.disposed {
		return
	}
	o.x, o.y = x, y
	wasDragging := o.dragging
	o.buttons &^= button
	if o.buttons == 0 {
		o.dragging = false
	}
	if wasDragging {
		o.InteractionEnd.Next(struct{}{})
		return
	}
	if o.contains(x, y) {
		o.Click.Next(ClickInput{X: x, Y: y, Buttons: o.buttons | button, Button: button, Modifiers: o.modifiers})
	}
}

func (o *Observer) Scroll(dx, dy float32) {
	if o.disposed || (dx == 0 && dy == 0) {
		return
	}
	o.Wheel.Next(WheelInput{X: o.x, Y: o.y, DX: dx, DY: dy, Buttons: o.buttons, Modifiers: o.modifiers})
}

// PinchTo reports a two-finger distance; start marks the first sample of
// a gesture.
func (o *Observer) PinchTo(distance float32, start bool) {
	if o.disposed || distance <= 0 {
		return
	}
	if start || o.pinchDistance <= 0 {
		o.pinchDistance = distance
		o.Pinch.Next(PinchInput{Fraction: 1, Distance: distance, Modifiers: o.modifiers, IsStart: true})
		return
	}
	prev := o.pinchDistance
	o.pinchDistance = distance
	o.Pinch.Next(PinchInput{Fraction: distance / prev, Distance: distance, Delta: distance - prev, Modifiers: o.modifiers})
}

func (o *Observer) PinchEnd() {
	if o.disposed || o.pinchDistance <= 0 {
		return
	}
	o.pinchDistance = 0
	o.InteractionEnd.Next(struct{}{})
}

func (o *Observer) PointerLeave() {
	if o.disposed || !o.inside {
		return
	}
	o.inside = false
	if o.buttons == 0 {
		o.Leave.Next(struct{}{})
	}
}

func (o *Observer) Key(key string, down bool) {
	if o.disposed {
		return
	}
	k := KeyInput{Key: key, Modifiers: o.modifiers}
	if down {
		o.KeyDown.Next(k)
	} else {
		o.KeyUp.Next(k)
	}
}

// Dispose closes every stream. It is safe to call more than once.
func (o *Observer) Dispose() {
	if o.disposed {
		return
	}
	o.disposed = true
	o.Drag.Close()
	o.Wheel.Close()
	o.Pinch.Close()
	o.Click.Close()
	o.Move.Close()
	o.Leave.Close()
	o.Enter.Close()
	o.InteractionEnd.Close()
	o.KeyDown.Close()
	o.KeyUp.Close()
	o.Resize.Close()
	o.ModifiersChanged.Close()
}
