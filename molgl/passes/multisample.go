package passes

import (
	"fmt"

	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

type MultiSampleMode int

const (
	MultiSampleOff MultiSampleMode = iota
	MultiSampleOn
	MultiSampleTemporal
)

func (m MultiSampleMode) String() string {
	switch m {
	case MultiSampleOn:
		return "on"
	case MultiSampleTemporal:
		return "temporal"
	}
	return "off"
}

func ParseMultiSampleMode(s string) (MultiSampleMode, error) {
	switch s {
	case "off", "":
		return MultiSampleOff, nil
	case "on":
		return MultiSampleOn, nil
	case "temporal":
		return MultiSampleTemporal, nil
	}
	return 0, fmt.Errorf("unknown multi-sample mode %q", s)
}

type MultiSampleProps struct {
	Mode        MultiSampleMode
	SampleLevel int
	// ReduceFlicker forces full multi-sampling for frames that follow a
	// marking change while the camera is at rest.
	ReduceFlicker bool
}

// MultiSamplePass renders jittered copies of the scene and averages them.
// In temporal mode one sample is added per call until the sample level is
// exhausted.
type MultiSamplePass struct {
	ctx  gpu.Context
	draw *DrawPass
	hold gpu.RenderTarget

	sampleIndex int
	samples     int
}

func NewMultiSamplePass(ctx gpu.Context, draw *DrawPass, w, h int) *MultiSamplePass {
	return &MultiSamplePass{
		ctx:  ctx,
		draw: draw,
		hold: ctx.CreateRenderTarget(w, h, gpu.TargetOptions{Label: "multi-sample-hold", Type: gpu.TextureFloat}),
	}
}

func (p *MultiSamplePass) SetSize(w, h int) { ensureSize(p.hold, w, h) }

// Reset restarts temporal accumulation.
func (p *MultiSamplePass) Reset() { p.sampleIndex, p.samples = 0, 0 }

// SampleIndex is the number of accumulated temporal samples.
func (p *MultiSamplePass) SampleIndex() int { return p.sampleIndex }

// Done reports whether temporal accumulation is complete for props.
func (p *MultiSamplePass) Done(props MultiSampleProps) bool {
	return p.sampleIndex >= len(JitterVectors(props.SampleLevel))
}

func (p *MultiSamplePass) accumulate(rc RenderContext, props Props, jitter mgl32.Vec2) {
	rc.Renderer.SetJitter(jitter)
	p.draw.RenderScene(rc, props)
	rc.Renderer.SetJitter(mgl32.Vec2{})
	bindTo(p.ctx, rc.Renderer, p.hold, rc.Camera.Viewport())
	copyTo(p.ctx, p.draw.ColorTarget(), gpu.BlendAdditive, 1)
	p.samples++
}

func (p *MultiSamplePass) clearHold(rc RenderContext) {
	bindTo(p.ctx, rc.Renderer, p.hold, rc.Camera.Viewport())
	rc.Renderer.ClearTo(mgl32.Vec4{})
	p.samples = 0
}

func (p *MultiSamplePass) present(rc RenderContext, dest gpu.RenderTarget) {
	bindTo(p.ctx, rc.Renderer, dest, rc.Camera.Viewport())
	copyTo(p.ctx, p.hold, gpu.BlendNone, 1/float32(max(p.samples, 1)))
	drawHelpers(rc)
}

// Render draws every sample of the level in one call.
func (p *MultiSamplePass) Render(rc RenderContext, props Props, ms MultiSampleProps, dest gpu.RenderTarget) {
	p.clearHold(rc)
	for _, j := range JitterVectors(ms.SampleLevel) {
		p.accumulate(rc, props, j)
	}
	p.present(rc, dest)
	p.sampleIndex = len(JitterVectors(ms.SampleLevel))
}

// RenderTemporal adds one sample and presents the running average. It
// reports whether accumulation is complete.
func (p *MultiSamplePass) RenderTemporal(rc RenderContext, props Props, ms MultiSampleProps, dest gpu.RenderTarget) bool {
	offsets := JitterVectors(ms.SampleLevel)
	if p.sampleIndex == 0 {
		p.clearHold(rc)
	}
	if p.sampleIndex < len(offsets) {
		p.accumulate(rc, props, offsets[p.sampleIndex])
		p.sampleIndex++
	}
	p.present(rc, dest)
	return p.sampleIndex >= len(offsets)
}

func (p *MultiSamplePass) Dispose() { p.hold.Destroy() }

// MultiSampleHelper decides per frame whether multi-sampling applies.
type MultiSampleHelper struct {
	pass *MultiSamplePass
}

func NewMultiSampleHelper(pass *MultiSamplePass) *MultiSampleHelper {
	return &MultiSampleHelper{pass: pass}
}

func (h *MultiSampleHelper) Pass() *MultiSamplePass { return h.pass }

// Update resets accumulation when the frame changed and reports whether a
// further temporal sample is due.
func (h *MultiSampleHelper) Update(changed bool, props MultiSampleProps) bool {
	if changed {
		h.pass.Reset()
	}
	return props.Mode == MultiSampleTemporal && !h.pass.Done(props)
}

// Render draws through the pass for the mode of props. It reports whether
// the multi-sample path was taken.
func (h *MultiSampleHelper) Render(rc RenderContext, props Props, ms MultiSampleProps, dest gpu.RenderTarget) bool {
	switch ms.Mode {
	case MultiSampleOn:
		h.pass.Render(rc, props, ms, dest)
		return true
	case MultiSampleTemporal:
		h.pass.RenderTemporal(rc, props, ms, dest)
		return true
	}
	return false
}
