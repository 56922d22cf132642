package canvas3d

import (
	"time"

	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/input"
	"github.com/molcanvas/canvas3d/molgl/repr"

	"github.com/go-gl/mathgl/mgl32"
)

type HoverEvent struct {
	Current   repr.ReprLoci
	Buttons   input.Buttons
	Button    input.Buttons
	Modifiers input.Modifiers
	// Position is the picked point in world space when Current is set.
	Position mgl32.Vec3
}

type ClickEvent struct {
	Current   repr.ReprLoci
	Buttons   input.Buttons
	Button    input.Buttons
	Modifiers input.Modifiers
	Position  mgl32.Vec3
}

type DragEvent struct {
	// Current is the loci under the pointer when the drag started.
	Current   repr.ReprLoci
	Buttons   input.Buttons
	Button    input.Buttons
	Modifiers input.Modifiers
	Start     mgl32.Vec2
	End       mgl32.Vec2
}

// identifyFunc picks at window position (x, y) and returns the loci with
// the world position of the hit.
type identifyFunc func(x, y float32) (repr.ReprLoci, mgl32.Vec3, bool)

// InteractionHelper turns pointer input into loci events. Input is queued
// by the observer callbacks and resolved on Tick, so picking only runs
// inside the frame loop.
type InteractionHelper struct {
	Hover *event.Subject[HoverEvent]
	Click *event.Subject[ClickEvent]
	Drag  *event.Subject[DragEvent]

	identify identifyFunc
	in       *input.Observer
	props    InteractionProps
	subs     event.Group

	move      *input.MoveInput
	clicks    []input.ClickInput
	drags     []input.DragInput
	left      bool
	lastHover time.Duration
	hovered   bool
	prev      repr.ReprLoci

	dragStart mgl32.Vec2
	dragLoci  repr.ReprLoci
	inDrag    bool
	dragEnded bool
	disposed  bool
}

func newInteractionHelper(in *input.Observer, identify identifyFunc, props InteractionProps) *InteractionHelper {
	h := &InteractionHelper{
		Hover:    event.NewSubject[HoverEvent](),
		Click:    event.NewSubject[ClickEvent](),
		Drag:     event.NewSubject[DragEvent](),
		identify: identify,
		in:       in,
		props:    props,
		prev:     repr.ReprLoci{Loci: repr.Empty},
	}
	h.subs.Add(
		in.Move.Subscribe(func(m input.MoveInput) {
			h.move = &m
		}),
		in.Click.Subscribe(func(c input.ClickInput) {
			h.clicks = append(h.clicks, c)
		}),
		in.Drag.Subscribe(func(d input.DragInput) {
			h.drags = append(h.drags, d)
			h.move = nil
		}),
		in.Leave.Subscribe(func(struct{}) {
			h.move = nil
			h.left = true
		}),
		in.InteractionEnd.Subscribe(func(struct{}) {
			h.dragEnded = true
		}),
	)
	return h
}

func (h *InteractionHelper) SetProps(p InteractionProps) { h.props = p }

func (h *InteractionHelper) hoverInterval() time.Duration {
	if h.props.MaxFps <= 0 {
		return 0
	}
	return time.Second / time.Duration(h.props.MaxFps)
}

// Tick resolves the queued input at time t: clicks and drags first, then
// at most one hover pick per hover interval.
func (h *InteractionHelper) Tick(t time.Duration) {
	if h.disposed {
		return
	}
	for _, c := range h.clicks {
		loci, pos, _ := h.pick(c.X, c.Y)
		h.Click.Next(ClickEvent{Current: loci, Buttons: c.Buttons, Button: c.Button, Modifiers: c.Modifiers, Position: pos})
	}
	h.clicks = h.clicks[:0]

	for _, d := range h.drags {
		if d.IsStart || !h.inDrag {
			h.inDrag = true
			h.dragStart = mgl32.Vec2{d.X - d.DX, d.Y - d.DY}
			h.dragLoci, _, _ = h.pick(h.dragStart.X(), h.dragStart.Y())
		}
		h.Drag.Next(DragEvent{
			Current: h.dragLoci, Buttons: d.Buttons, Button: d.Button, Modifiers: d.Modifiers,
			Start: h.dragStart, End: mgl32.Vec2{d.X, d.Y},
		})
	}
	h.drags = h.drags[:0]
	if h.dragEnded {
		h.dragEnded, h.inDrag = false, false
	}

	if h.left {
		h.left = false
		if !h.prev.IsEmpty() {
			h.prev = repr.ReprLoci{Loci: repr.Empty}
			h.Hover.Next(HoverEvent{Current: h.prev, Modifiers: h.in.Modifiers()})
		}
	}

	if h.move == nil || h.inDrag {
		return
	}
	if h.hovered && t-h.lastHover < h.hoverInterval() {
		return
	}
	m := *h.move
	h.move = nil
	h.lastHover, h.hovered = t, true
	loci, pos, _ := h.pick(m.X, m.Y)
	if repr.LociEqual(loci.Loci, h.prev.Loci) && loci.Repr == h.prev.Repr {
		return
	}
	h.prev = loci
	h.Hover.Next(HoverEvent{Current: loci, Buttons: m.Buttons, Modifiers: m.Modifiers, Position: pos})
}

func (h *InteractionHelper) pick(x, y float32) (repr.ReprLoci, mgl32.Vec3, bool) {
	loci, pos, ok := h.identify(x, y)
	if !ok {
		return repr.ReprLoci{Loci: repr.Empty}, mgl32.Vec3{}, false
	}
	return loci, pos, true
}

// IsDragging reports whether a drag started and has not ended.
func (h *InteractionHelper) IsDragging() bool { return h.inDrag }

func (h *InteractionHelper) Dispose() {
	if h.disposed {
		return
	}
	h.disposed = true
	h.subs.Unsubscribe()
	h.Hover.Close()
	h.Click.Close()
	h.Drag.Close()
}
