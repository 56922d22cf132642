package passes

import (
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type IlluminationProps struct {
	Enabled       bool
	MaxIterations int
	// LightSpread is the angular radius in radians the light direction is
	// jittered over between iterations.
	LightSpread float32
}

func DefaultIlluminationProps() IlluminationProps {
	return IlluminationProps{MaxIterations: 16, LightSpread: 0.25}
}

// IlluminationPass progressively refines the image by averaging frames lit
// from jittered light directions. Each Render call adds one iteration.
type IlluminationPass struct {
	ctx    gpu.Context
	target gpu.RenderTarget
	hold   gpu.RenderTarget

	iteration int
}

func IlluminationSupported(ext gpu.Extensions) bool { return floatTargetsSupported(ext) }

func NewIlluminationPass(ctx gpu.Context, w, h int) *IlluminationPass {
	return &IlluminationPass{
		ctx:    ctx,
		target: ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "illumination", Type: gpu.TextureFloat, Depth: true}),
		hold:   ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "illumination-hold", Type: gpu.TextureFloat}),
	}
}

func (p *IlluminationPass) SetSize(w, h int) {
	ensureSize(p.target, w, h)
	ensureSize(p.hold, w, h)
}

func (p *IlluminationPass) Reset()         { p.iteration = 0 }
func (p *IlluminationPass) Iteration() int { return p.iteration }

// ShouldRender reports whether another iteration is due.
func (p *IlluminationPass) ShouldRender(props IlluminationProps) bool {
	return props.Enabled && p.iteration < max(props.MaxIterations, 1)
}

// halton returns element i of the base b low discrepancy sequence.
func halton(i, b int) float32 {
	f, r := float32(1), float32(0)
	for i > 0 {
		f /= float32(b)
		r += f * float32(i%b)
		i /= b
	}
	return r
}

// jitteredLight tilts dir by up to spread radians; iteration 0 keeps it.
func jitteredLight(dir mgl32.Vec3, iteration int, spread float32) mgl32.Vec3 {
	if iteration == 0 || spread <= 0 {
		return dir
	}
	angle := halton(iteration, 2) * 2 * math32.Pi
	tilt := math32.Sqrt(halton(iteration, 3)) * spread
	n := dir.Normalize()
	axis := n.Cross(mgl32.Vec3{0, 1, 0})
	if axis.Len() < 1e-4 {
		axis = n.Cross(mgl32.Vec3{1, 0, 0})
	}
	axis = mgl32.QuatRotate(angle, n).Rotate(axis.Normalize())
	return mgl32.QuatRotate(tilt, axis).Rotate(n)
}

// Render adds one iteration and presents the running average into dest.
func (p *IlluminationPass) Render(rc RenderContext, props Props, ip IlluminationProps, dest gpu.RenderTarget) {
	r := rc.Renderer
	vp := rc.Camera.Viewport()
	if p.iteration == 0 {
		bindTo(p.ctx, r, p.hold, vp)
		r.ClearTo(mgl32.Vec4{})
	}

	base := r.Props()
	light := gpu.Light{
		Direction: jitteredLight(base.LightDirection, p.iteration, ip.LightSpread),
		Ambient:   base.AmbientIntensity,
	}
	r.SetLight(&light)
	r.Update(rc.Camera)
	bindTo(p.ctx, r, p.target, vp)
	r.Clear(true, props.TransparentBackground)
	r.RenderTracing(rc.Scene.Primitives())
	r.RenderVolume(rc.Scene.Volumes(), nil)
	r.SetLight(nil)

	bindTo(p.ctx, r, p.hold, vp)
	copyTo(p.ctx, p.target, gpu.BlendAdditive, 1)
	p.iteration++

	bindTo(p.ctx, r, dest, vp)
	copyTo(p.ctx, p.hold, gpu.BlendNone, 1/float32(p.iteration))
	drawHelpers(rc)
}

func (p *IlluminationPass) Dispose() {
	p.target.Destroy()
	p.hold.Destroy()
}
