package passes

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// PickData is the result of identifying one pixel.
type PickData struct {
	ID core.PickingID
	// Point is the hit in drawing buffer pixels with a bottom-left origin;
	// Z is the window depth.
	Point mgl32.Vec3
}

// PickPass renders object, instance and group ids plus packed depth at a
// reduced resolution.
type PickPass struct {
	ctx    gpu.Context
	target gpu.RenderTarget
	scale  float32
}

func NewPickPass(ctx gpu.Context, w, h int, scale float32) *PickPass {
	p := &PickPass{ctx: ctx, scale: clampScale(scale)}
	pw, ph := p.scaled(w), p.scaled(h)
	p.target = ctx.CreateRenderTarget(pw, ph, gpu.TargetOptions{Label: "pick", Attachments: 4, Depth: true})
	return p
}

func clampScale(s float32) float32 {
	if s <= 0 || s > 1 {
		return 1
	}
	return s
}

func (p *PickPass) scaled(v int) int {
	return max(int(math32.Ceil(float32(v)*p.scale)), 1)
}

func (p *PickPass) Scale() float32 { return p.scale }

func (p *PickPass) SetScale(s float32, w, h int) {
	p.scale = clampScale(s)
	p.SetSize(w, h)
}

func (p *PickPass) SetSize(w, h int) { ensureSize(p.target, p.scaled(w), p.scaled(h)) }

func (p *PickPass) Target() gpu.RenderTarget { return p.target }

// viewport scales the camera viewport into pick target pixels.
func (p *PickPass) viewport(vp core.Viewport) core.Viewport {
	return core.Viewport{
		X:      int(float32(vp.X) * p.scale),
		Y:      int(float32(vp.Y) * p.scale),
		Width:  p.scaled(vp.Width),
		Height: p.scaled(vp.Height),
	}
}

func (p *PickPass) Render(rc RenderContext) {
	r := rc.Renderer
	r.SetJitter(mgl32.Vec2{})
	r.Update(rc.Camera)
	bindTo(p.ctx, r, p.target, p.viewport(rc.Camera.Viewport()))
	r.ClearTo(mgl32.Vec4{1, 1, 1, 1})
	r.RenderPick(rc.Scene.Primitives())
	r.RenderPick(rc.Scene.Volumes())
	if len(rc.Helpers) > 0 {
		r.ClearDepth()
		for _, g := range rc.Helpers {
			r.RenderPick(g)
		}
	}
}

func (p *PickPass) Dispose() { p.target.Destroy() }

// PickHelper caches the pick buffers until marked dirty and resolves window
// coordinates to picking ids.
type PickHelper struct {
	ctx     gpu.Context
	pass    *PickPass
	padding int
	dirty   bool

	w, h    int
	buffers [4][]float32
}

func NewPickHelper(ctx gpu.Context, pass *PickPass, padding int) *PickHelper {
	return &PickHelper{ctx: ctx, pass: pass, padding: max(padding, 0), dirty: true}
}

// Dirty invalidates the cached buffers; the next Identify renders again.
func (h *PickHelper) Dirty()           { h.dirty = true }
func (h *PickHelper) IsDirty() bool    { return h.dirty }
func (h *PickHelper) SetPadding(p int) { h.padding = max(p, 0) }
func (h *PickHelper) Pass() *PickPass  { return h.pass }

func (h *PickHelper) sync(rc RenderContext) bool {
	h.pass.Render(rc)
	h.w, h.h = h.pass.target.Size()
	for i := range h.buffers {
		if len(h.buffers[i]) != h.w*h.h*4 {
			h.buffers[i] = make([]float32, h.w*h.h*4)
		}
		if err := h.pass.target.ReadFloatPixels(i, 0, 0, h.w, h.h, h.buffers[i]); err != nil {
			return false
		}
	}
	h.dirty = false
	return true
}

func (h *PickHelper) idAt(attachment, x, y int) int {
	if x < 0 || y < 0 || x >= h.w || y >= h.h {
		return -1
	}
	b := h.buffers[attachment][(y*h.w+x)*4:]
	return core.UnpackRGBToInt(b[0], b[1], b[2])
}

func (h *PickHelper) depthAt(x, y int) float32 {
	b := h.buffers[3][(y*h.w+x)*4:]
	return core.UnpackDepth(b[0], b[1], b[2])
}

// Identify resolves the window position (x, y), in drawing buffer pixels
// with a top-left origin, to the nearest pick hit within the padding.
func (h *PickHelper) Identify(rc RenderContext, x, y int) (PickData, bool) {
	if h.ctx.IsContextLost() {
		return PickData{}, false
	}
	_, bufferHeight := h.ctx.DrawingBufferSize()
	vp := rc.Camera.Viewport()
	if !vp.ContainsWindowPoint(x, y, bufferHeight) {
		return PickData{}, false
	}
	if h.dirty && !h.sync(rc) {
		return PickData{}, false
	}

	gy := bufferHeight - y - 1
	s := h.pass.scale
	px, py := int(float32(x)*s), int(float32(gy)*s)
	pad := int(math32.Ceil(float32(h.padding) * s))
	for r := 0; r <= pad; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				qx, qy := px+dx, py+dy
				object := h.idAt(0, qx, qy)
				if object < 0 {
					continue
				}
				id := core.PickingID{
					ObjectID:   object,
					InstanceID: h.idAt(1, qx, qy),
					GroupID:    h.idAt(2, qx, qy),
				}
				point := mgl32.Vec3{float32(qx) / s, float32(qy) / s, h.depthAt(qx, qy)}
				return PickData{ID: id, Point: point}, true
			}
		}
	}
	return PickData{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
