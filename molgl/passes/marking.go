package passes

import (
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// MarkingPass draws highlight and select edges around marked groups.
type MarkingPass struct {
	ctx   gpu.Context
	depth gpu.RenderTarget
	mask  gpu.RenderTarget
}

func NewMarkingPass(ctx gpu.Context, w, h int) *MarkingPass {
	return &MarkingPass{
		ctx:   ctx,
		depth: ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "marking-depth", Depth: true}),
		mask:  ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "marking-mask", Depth: true}),
	}
}

func (p *MarkingPass) SetSize(w, h int) {
	ensureSize(p.depth, w, h)
	ensureSize(p.mask, w, h)
}

// MaskTarget holds highlight flags in red and select flags in green.
func (p *MarkingPass) MaskTarget() gpu.RenderTarget { return p.mask }

func (p *MarkingPass) Render(rc RenderContext, props MarkingProps, dest gpu.RenderTarget) {
	r := rc.Renderer
	vp := rc.Camera.Viewport()
	s := rc.Scene

	bindTo(p.ctx, r, p.depth, vp)
	r.ClearTo(mgl32.Vec4{1, 1, 1, 1})
	r.RenderMarkingDepth(s.Primitives())

	bindTo(p.ctx, r, p.mask, vp)
	r.ClearTo(mgl32.Vec4{})
	r.RenderMarkingMask(s.Primitives(), p.depth)

	bindTo(p.ctx, r, dest, vp)
	p.ctx.SetState(gpu.DrawState{ColorWrite: true, Blend: gpu.BlendAlpha})
	p.ctx.RunFullscreen(&gpu.FullscreenPass{
		Op:          gpu.OpMarkingEdge,
		Source:      p.mask,
		Blend:       gpu.BlendAlpha,
		Color:       props.HighlightEdgeColor.Vec3(),
		SecondColor: props.SelectEdgeColor.Vec3(),
		Radius:      max(props.EdgeScale, 1),
	})
}

func (p *MarkingPass) Dispose() {
	p.depth.Destroy()
	p.mask.Destroy()
}
