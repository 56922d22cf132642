package passes

import (
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// PostprocessingPass applies depth based occlusion and outlines and adds
// the glow of emissive objects.
type PostprocessingPass struct {
	ctx      gpu.Context
	emissive gpu.RenderTarget
}

func NewPostprocessingPass(ctx gpu.Context, w, h int) *PostprocessingPass {
	return &PostprocessingPass{
		ctx:      ctx,
		emissive: ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "emissive", Type: gpu.TextureHalfFloat, Depth: true}),
	}
}

func (p *PostprocessingPass) SetSize(w, h int) { ensureSize(p.emissive, w, h) }

// Enabled reports whether any effect of props is on.
func (p *PostprocessingPass) Enabled(props PostprocessingProps) bool {
	return props.Outline.Enabled || props.Occlusion.Enabled || props.Bloom.Enabled
}

// Render applies the enabled effects to dest in place.
func (p *PostprocessingPass) Render(rc RenderContext, props PostprocessingProps, dest gpu.RenderTarget) {
	r := rc.Renderer
	vp := rc.Camera.Viewport()

	if props.Bloom.Enabled && rc.Scene.EmissiveAverage() > 0 {
		bindTo(p.ctx, r, p.emissive, vp)
		r.ClearTo(mgl32.Vec4{0, 0, 0, 1})
		r.RenderEmissive(rc.Scene.Primitives())

		bindTo(p.ctx, r, dest, vp)
		p.ctx.SetState(gpu.DrawState{ColorWrite: true, Blend: gpu.BlendAdditive})
		p.ctx.RunFullscreen(&gpu.FullscreenPass{
			Op:       gpu.OpAddEmissive,
			Source:   p.emissive,
			Blend:    gpu.BlendAdditive,
			Strength: props.Bloom.Strength,
			Radius:   props.Bloom.Radius,
		})
	}

	bindTo(p.ctx, r, dest, vp)
	if o := props.Occlusion; o.Enabled {
		p.ctx.SetState(gpu.DrawState{ColorWrite: true, Blend: gpu.BlendAlpha})
		p.ctx.RunFullscreen(&gpu.FullscreenPass{
			Op:        gpu.OpOcclusion,
			Source:    dest,
			UseDepth:  true,
			Blend:     gpu.BlendAlpha,
			Radius:    o.Radius,
			Strength:  o.Strength,
			Threshold: o.Threshold,
		})
	}
	if o := props.Outline; o.Enabled {
		p.ctx.SetState(gpu.DrawState{ColorWrite: true, Blend: gpu.BlendAlpha})
		p.ctx.RunFullscreen(&gpu.FullscreenPass{
			Op:        gpu.OpOutline,
			Source:    dest,
			UseDepth:  true,
			Blend:     gpu.BlendAlpha,
			Radius:    max(o.Scale, 1),
			Threshold: o.Threshold * 0.01,
			Color:     o.Color.Vec3(),
		})
	}
}

func (p *PostprocessingPass) Dispose() { p.emissive.Destroy() }
