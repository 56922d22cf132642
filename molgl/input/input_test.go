package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newObserver() *Observer {
	o := NewObserver()
	o.SetSize(100, 100)
	return o
}

func TestClickWithoutDrag(t *testing.T) {
	o := newObserver()
	var clicks []ClickInput
	drags := 0
	o.Click.Subscribe(func(c ClickInput) { clicks = append(clicks, c) })
	o.Drag.Subscribe(func(DragInput) { drags++ })

	o.PointerDown(10, 10, ButtonPrimary)
	o.PointerMove(12, 11)
	o.PointerUp(12, 11, ButtonPrimary)

	require.Len(t, clicks, 1)
	assert.Equal(t, ButtonPrimary, clicks[0].Button)
	assert.Equal(t, float32(12), clicks[0].X)
	assert.Zero(t, drags, "movement within tolerance is not a drag")
}

func TestDragEndsInteraction(t *testing.T) {
	o := newObserver()
	var drags []DragInput
	clicks, ends := 0, 0
	o.Drag.Subscribe(func(d DragInput) { drags = append(drags, d) })
	o.Click.Subscribe(func(ClickInput) { clicks++ })
	o.InteractionEnd.Subscribe(func(struct{}) { ends++ })

	o.PointerDown(10, 10, ButtonSecondary)
	o.PointerMove(30, 10)
	o.PointerMove(35, 12)
	assert.True(t, o.IsDragging())
	o.PointerUp(35, 12, ButtonSecondary)

	require.Len(t, drags, 2)
	assert.True(t, drags[0].IsStart)
	assert.False(t, drags[1].IsStart)
	assert.Equal(t, float32(5), drags[1].DX)
	assert.Equal(t, float32(2), drags[1].DY)
	assert.True(t, drags[0].Buttons.Has(ButtonSecondary))
	assert.Zero(t, clicks)
	assert.Equal(t, 1, ends)
	assert.False(t, o.IsDragging())
}

func TestMoveEnterLeave(t *testing.T) {
	o := newObserver()
	var moves []MoveInput
	enters, leaves := 0, 0
	o.Move.Subscribe(func(m MoveInput) { moves = append(moves, m) })
	o.Enter.Subscribe(func(struct{}) { enters++ })
	o.Leave.Subscribe(func(struct{}) { leaves++ })

	o.PointerMove(50, 50)
	o.PointerMove(150, 50)
	o.PointerMove(60, 50)
	o.PointerLeave()
	o.PointerLeave()

	require.Len(t, moves, 3)
	assert.False(t, moves[1].Inside)
	assert.Equal(t, 2, enters)
	assert.Equal(t, 2, leaves)
}

func TestWheelAndPinch(t *testing.T) {
	o := newObserver()
	var wheels []WheelInput
	var pinches []PinchInput
	ends := 0
	o.Wheel.Subscribe(func(w WheelInput) { wheels = append(wheels, w) })
	o.Pinch.Subscribe(func(p PinchInput) { pinches = append(pinches, p) })
	o.InteractionEnd.Subscribe(func(struct{}) { ends++ })

	o.SetModifiers(Modifiers{Shift: true})
	o.Scroll(0, 0)
	o.Scroll(0, -3)
	require.Len(t, wheels, 1)
	assert.True(t, wheels[0].Modifiers.Shift)

	o.PinchTo(100, true)
	o.PinchTo(150, false)
	o.PinchEnd()
	o.PinchEnd()
	require.Len(t, pinches, 2)
	assert.True(t, pinches[0].IsStart)
	assert.InDelta(t, 1.5, pinches[1].Fraction, 1e-6)
	assert.Equal(t, float32(50), pinches[1].Delta)
	assert.Equal(t, 1, ends)
}

func TestModifiersAndResize(t *testing.T) {
	o := NewObserver()
	var mods []Modifiers
	o.ModifiersChanged.Subscribe(func(m Modifiers) { mods = append(mods, m) })
	o.SetModifiers(Modifiers{Control: true})
	o.SetModifiers(Modifiers{Control: true})
	assert.Equal(t, []Modifiers{{}, {Control: true}}, mods)

	resizes := 0
	o.Resize.Subscribe(func(ResizeInput) { resizes++ })
	o.SetSize(10, 10)
	o.SetSize(10, 10)
	assert.Equal(t, 1, resizes)
}

func TestDispose(t *testing.T) {
	o := newObserver()
	clicks := 0
	o.Click.Subscribe(func(ClickInput) { clicks++ })
	o.Dispose()
	o.Dispose()
	o.PointerDown(1, 1, ButtonPrimary)
	o.PointerUp(1, 1, ButtonPrimary)
	assert.Zero(t, clicks)
	assert.True(t, o.IsDisposed())
}
