package passes

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type hiZState int

const (
	hiZIdle hiZState = iota
	hiZCopy
	hiZMapping
	hiZMapped
)

// hiZReadbackWidth is the widest mip level read back to the CPU.
const hiZReadbackWidth = 64

// HiZPass keeps a hierarchical max-depth buffer of the opaque scene and
// answers whether a sphere is hidden behind it. The mip chain is built on
// the GPU; the readback level is copied out behind a fence and consumed on
// a later Sync, so occlusion queries use the depth of an earlier frame.
type HiZPass struct {
	ctx    gpu.Context
	levels []gpu.RenderTarget
	level  int

	state hiZState
	fence gpu.Sync

	pending     []float32
	pendingView mgl32.Mat4
	pendingProj mgl32.Mat4
	pendingVP   core.Viewport

	data       []float32
	dataW      int
	dataH      int
	view       mgl32.Mat4
	projection mgl32.Mat4
	viewport   core.Viewport
	srcW, srcH int

	Enabled bool
}

func NewHiZPass(ctx gpu.Context, w, h int) *HiZPass {
	p := &HiZPass{ctx: ctx}
	p.SetSize(w, h)
	return p
}

// SetSize rebuilds the mip chain for a source of w by h pixels. Mip 0 is
// half the source resolution.
func (p *HiZPass) SetSize(w, h int) {
	if p.srcW == w && p.srcH == h && len(p.levels) > 0 {
		return
	}
	for _, l := range p.levels {
		l.Destroy()
	}
	p.levels = nil
	p.srcW, p.srcH = w, h

	lw, lh := max(w/2, 1), max(h/2, 1)
	p.level = 0
	for {
		p.levels = append(p.levels, p.ctx.CreateRenderTarget(lw, lh, gpu.TargetOptions{Label: "hiz", Type: gpu.TextureFloat}))
		if lw <= 1 && lh <= 1 {
			break
		}
		if lw > hiZReadbackWidth {
			p.level = len(p.levels)
		}
		lw, lh = max(lw/2, 1), max(lh/2, 1)
	}
	p.level = min(p.level, len(p.levels)-1)
	p.Clear()
}

// Clear drops the readback data; occlusion tests pass until the next
// readback completes.
func (p *HiZPass) Clear() {
	if p.fence != nil {
		p.fence.Delete()
		p.fence = nil
	}
	p.state = hiZIdle
	p.data = nil
	p.pending = nil
}

// Render builds the mip chain from the depth buffer of source when no
// readback is in flight.
func (p *HiZPass) Render(source gpu.RenderTarget, cam renderer.Camera) {
	if !p.Enabled || p.state != hiZIdle || len(p.levels) == 0 {
		return
	}
	p.ctx.SetState(gpu.DrawState{ColorWrite: true})
	var src gpu.RenderTarget = source
	for i, l := range p.levels {
		p.ctx.BindRenderTarget(l)
		p.ctx.SetViewport(fullViewport(l))
		p.ctx.RunFullscreen(&gpu.FullscreenPass{Op: gpu.OpHiZDownsample, Source: src, UseDepth: i == 0})
		src = l
		if i == p.level {
			break
		}
	}
	p.pendingView = cam.View()
	p.pendingProj = cam.Projection()
	p.pendingVP = cam.Viewport()
	p.fence = p.ctx.FenceSync()
	p.state = hiZCopy
}

// Sync advances the readback state machine; call it once per tick.
func (p *HiZPass) Sync() {
	if p.state == hiZCopy {
		if !p.fence.Signaled() {
			return
		}
		p.fence.Delete()
		p.fence = nil
		p.state = hiZMapping
		l := p.levels[p.level]
		w, h := l.Size()
		buf := make([]float32, w*h*4)
		if err := l.ReadFloatPixels(0, 0, 0, w, h, buf); err != nil {
			p.state = hiZIdle
			return
		}
		p.pending = make([]float32, w*h)
		for i := range p.pending {
			p.pending[i] = buf[i*4]
		}
		p.state = hiZMapped
	}
	if p.state == hiZMapped {
		l := p.levels[p.level]
		p.dataW, p.dataH = l.Size()
		p.data, p.pending = p.pending, nil
		p.view, p.projection, p.viewport = p.pendingView, p.pendingProj, p.pendingVP
		p.state = hiZIdle
	}
}

// HasData reports whether a completed readback is available.
func (p *HiZPass) HasData() bool { return p.Enabled && p.data != nil }

// IsOccluded reports whether s lies entirely behind the recorded depth.
func (p *HiZPass) IsOccluded(s core.Sphere3D) bool {
	if !p.HasData() || s.IsEmpty() || p.viewport.Width <= 0 || p.viewport.Height <= 0 {
		return false
	}
	c := mgl32.TransformCoordinate(s.Center, p.view)
	near := c.Add(mgl32.Vec3{0, 0, s.Radius})
	if near.Z() >= 0 {
		return false
	}
	clip := p.projection.Mul4x1(near.Vec4(1))
	if clip.W() <= 0 {
		return false
	}
	depth := clip.Z()/clip.W()*0.5 + 0.5

	center := p.projection.Mul4x1(c.Vec4(1))
	if center.W() <= 0 {
		return false
	}
	ndc := center.Vec3().Mul(1 / center.W())
	vp := p.viewport
	sx := float32(vp.X) + (ndc.X()*0.5+0.5)*float32(vp.Width)
	sy := float32(vp.Y) + (ndc.Y()*0.5+0.5)*float32(vp.Height)
	// projected radius in pixels, conservative for spheres near the axis
	rp := s.Radius * p.projection.At(1, 1) / -near.Z() * float32(vp.Height) * 0.5

	kx := float32(p.dataW) / float32(max(p.srcW, 1))
	ky := float32(p.dataH) / float32(max(p.srcH, 1))
	x0 := int(math32.Floor((sx - rp) * kx))
	x1 := int(math32.Floor((sx + rp) * kx))
	y0 := int(math32.Floor((sy - rp) * ky))
	y1 := int(math32.Floor((sy + rp) * ky))
	if x0 < 0 || y0 < 0 || x1 >= p.dataW || y1 >= p.dataH {
		return false
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if depth <= p.data[y*p.dataW+x] {
				return false
			}
		}
	}
	return true
}

func (p *HiZPass) Dispose() {
	p.Clear()
	for _, l := range p.levels {
		l.Destroy()
	}
	p.levels = nil
}
