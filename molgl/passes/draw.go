package passes

import (
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// WboitPass accumulates weighted transparent color and resolves it over the
// opaque image.
type WboitPass struct {
	ctx    gpu.Context
	target gpu.RenderTarget
}

func WboitSupported(ext gpu.Extensions) bool { return floatTargetsSupported(ext) }

func NewWboitPass(ctx gpu.Context, w, h int) *WboitPass {
	return &WboitPass{
		ctx:    ctx,
		target: ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "wboit", Attachments: 2, Type: gpu.TextureFloat}),
	}
}

func (p *WboitPass) SetSize(w, h int) { ensureSize(p.target, w, h) }

// Render accumulates the transparent objects of s behind opaqueDepth and
// composites the result into dest.
func (p *WboitPass) Render(rc RenderContext, s *scene.Scene, dest gpu.RenderTarget) {
	vp := rc.Camera.Viewport()
	bindTo(p.ctx, rc.Renderer, p.target, vp)
	rc.Renderer.ClearTo(mgl32.Vec4{})
	rc.Renderer.RenderWboitTransparent(s.Primitives(), dest)
	rc.Renderer.RenderWboitTransparent(s.Volumes(), dest)

	bindTo(p.ctx, rc.Renderer, dest, vp)
	p.ctx.SetState(gpu.DrawState{ColorWrite: true, Blend: gpu.BlendAlpha})
	p.ctx.RunFullscreen(&gpu.FullscreenPass{Op: gpu.OpWboitResolve, Source: p.target, Blend: gpu.BlendAlpha})
}

func (p *WboitPass) Dispose() { p.target.Destroy() }

// DpoitPass peels transparent layers front to back and blends them under an
// accumulation target.
type DpoitPass struct {
	ctx        gpu.Context
	layers     [2]gpu.RenderTarget
	accumulate gpu.RenderTarget
}

func DpoitSupported(ext gpu.Extensions) bool {
	return floatTargetsSupported(ext) && ext.BlendMinMax && ext.DepthTexture
}

func NewDpoitPass(ctx gpu.Context, w, h int) *DpoitPass {
	p := &DpoitPass{
		ctx:        ctx,
		accumulate: ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "dpoit-accumulate", Type: gpu.TextureFloat}),
	}
	for i := range p.layers {
		p.layers[i] = ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "dpoit-layer", Type: gpu.TextureFloat, Depth: true})
	}
	return p
}

func (p *DpoitPass) SetSize(w, h int) {
	ensureSize(p.accumulate, w, h)
	for _, l := range p.layers {
		ensureSize(l, w, h)
	}
}

// Render peels up to iterations layers of s in front of the depth of dest
// and composites them over dest.
func (p *DpoitPass) Render(rc RenderContext, s *scene.Scene, dest gpu.RenderTarget, iterations int) {
	vp := rc.Camera.Viewport()
	bindTo(p.ctx, rc.Renderer, p.accumulate, vp)
	rc.Renderer.ClearTo(mgl32.Vec4{})

	var peel gpu.RenderTarget
	for i := 0; i < max(iterations, 1); i++ {
		layer := p.layers[i%2]
		bindTo(p.ctx, rc.Renderer, layer, vp)
		rc.Renderer.ClearTo(mgl32.Vec4{})
		rc.Renderer.RenderDpoitTransparent(s.Primitives(), dest, peel)
		rc.Renderer.RenderDpoitTransparent(s.Volumes(), dest, peel)

		bindTo(p.ctx, rc.Renderer, p.accumulate, vp)
		copyTo(p.ctx, layer, gpu.BlendUnder, 1)
		peel = layer
	}

	bindTo(p.ctx, rc.Renderer, dest, vp)
	copyTo(p.ctx, p.accumulate, gpu.BlendPremultiplied, 1)
}

func (p *DpoitPass) Dispose() {
	p.accumulate.Destroy()
	for _, l := range p.layers {
		l.Destroy()
	}
}

// DrawPass renders the scene into its color target with the active
// transparency mode, marking and postprocessing, then copies the result to
// a destination with the helper overlays on top.
type DrawPass struct {
	ctx   gpu.Context
	color gpu.RenderTarget

	wboit          *WboitPass
	dpoit          *DpoitPass
	marking        *MarkingPass
	postprocessing *PostprocessingPass
}

// NewDrawPass creates the pass. WBOIT and DPOIT targets are only created
// when enabled and supported.
func NewDrawPass(ctx gpu.Context, w, h int, enableWboit, enableDpoit bool) *DrawPass {
	p := &DrawPass{
		ctx:            ctx,
		color:          ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "draw-color", Type: gpu.TextureFloat, Depth: true}),
		marking:        NewMarkingPass(ctx, w, h),
		postprocessing: NewPostprocessingPass(ctx, w, h),
	}
	ext := ctx.Extensions()
	if enableWboit && WboitSupported(ext) {
		p.wboit = NewWboitPass(ctx, w, h)
	}
	if enableDpoit && DpoitSupported(ext) {
		p.dpoit = NewDpoitPass(ctx, w, h)
	}
	return p
}

// ColorTarget holds the last frame with the opaque depth buffer.
func (p *DrawPass) ColorTarget() gpu.RenderTarget { return p.color }

func (p *DrawPass) HasWboit() bool { return p.wboit != nil }
func (p *DrawPass) HasDpoit() bool { return p.dpoit != nil }

func (p *DrawPass) SetSize(w, h int) {
	ensureSize(p.color, w, h)
	p.marking.SetSize(w, h)
	p.postprocessing.SetSize(w, h)
	if p.wboit != nil {
		p.wboit.SetSize(w, h)
	}
	if p.dpoit != nil {
		p.dpoit.SetSize(w, h)
	}
}

// transparency returns the mode actually used for s.
func (p *DrawPass) transparency(s *scene.Scene) scene.Transparency {
	switch t := s.Transparency(); {
	case t == scene.TransparencyWboit && p.wboit != nil:
		return t
	case t == scene.TransparencyDpoit && p.dpoit != nil:
		return t
	}
	return scene.TransparencyBlended
}

// RenderScene draws the scene into the color target without helpers.
func (p *DrawPass) RenderScene(rc RenderContext, props Props) {
	r := rc.Renderer
	s := rc.Scene
	vp := rc.Camera.Viewport()
	r.Update(rc.Camera)
	bindTo(p.ctx, r, p.color, vp)
	r.Clear(true, props.TransparentBackground)

	switch p.transparency(s) {
	case scene.TransparencyWboit:
		r.RenderWboitOpaque(s.Primitives())
		p.wboit.Render(rc, s, p.color)
	case scene.TransparencyDpoit:
		r.RenderDpoitOpaque(s.Primitives())
		p.dpoit.Render(rc, s, p.color, props.DpoitIterations)
	default:
		r.RenderBlendedOpaque(s.Primitives())
		r.RenderBlendedTransparent(s.Primitives())
		r.RenderBlendedVolume(s.Volumes())
	}

	if props.Marking.Enabled && s.MarkerAverage() > 0 {
		p.marking.Render(rc, props.Marking, p.color)
	}
	p.postprocessing.Render(rc, props.Postprocessing, p.color)
}

// Render draws the scene and copies it into dest (nil for the drawing
// buffer) with the helpers on top.
func (p *DrawPass) Render(rc RenderContext, props Props, dest gpu.RenderTarget) {
	p.RenderScene(rc, props)
	p.Present(rc, dest)
}

// Present copies the color target into dest and draws the helpers.
func (p *DrawPass) Present(rc RenderContext, dest gpu.RenderTarget) {
	bindTo(p.ctx, rc.Renderer, dest, rc.Camera.Viewport())
	copyTo(p.ctx, p.color, gpu.BlendNone, 1)
	drawHelpers(rc)
}

func (p *DrawPass) Dispose() {
	p.color.Destroy()
	p.marking.Dispose()
	p.postprocessing.Dispose()
	if p.wboit != nil {
		p.wboit.Dispose()
	}
	if p.dpoit != nil {
		p.dpoit.Dispose()
	}
}
