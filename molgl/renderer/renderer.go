// Package renderer turns scene groups into draw calls. Each exported Render
// method is one pass kind; targets, clears and compositing are left to the
// passes package.
package renderer

import (
	"cmp"
	"slices"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is what the renderer reads from a camera each frame.
type Camera interface {
	View() mgl32.Mat4
	Projection() mgl32.Mat4
	Viewport() core.Viewport
	Near() float32
	Far() float32
	// Fog returns the fog range in view distance; near >= far disables it.
	Fog() (near, far float32)
}

type Props struct {
	BackgroundColor       core.Color
	PickingAlphaThreshold float32
	// LightDirection points from the scene towards the light, in view space.
	LightDirection   mgl32.Vec3
	AmbientIntensity float32

	HighlightColor    core.Color
	SelectColor       core.Color
	HighlightStrength float32
	SelectStrength    float32
	// ColorMarker tints marked groups while shading instead of relying on
	// the marking pass.
	ColorMarker bool
}

func DefaultProps() Props {
	return Props{
		BackgroundColor:       0xffffff,
		PickingAlphaThreshold: 0.5,
		LightDirection:        mgl32.Vec3{0.3, 0.4, 1},
		AmbientIntensity:      0.4,
		HighlightColor:        core.ColorFromRGB(255, 0, 255),
		SelectColor:           core.ColorFromRGB(51, 255, 25),
		HighlightStrength:     0.3,
		SelectStrength:        0.3,
		ColorMarker:           true,
	}
}

// Stats accumulates since creation.
type Stats struct {
	Calls     int
	Instances int
	// Culled counts instances outside the frustum.
	Culled int
	// Occluded counts instances rejected by the occlusion test.
	Occluded int
}

type Renderer struct {
	ctx   gpu.Context
	props Props

	view       mgl32.Mat4
	projection mgl32.Mat4
	frustum    core.Frustum
	viewport   core.Viewport
	near, far  float32
	fog        gpu.Fog
	jitter     mgl32.Vec2
	light      *gpu.Light

	occluded func(core.Sphere3D) bool
	stats    Stats
}

func New(ctx gpu.Context, props Props) *Renderer {
	return &Renderer{
		ctx:        ctx,
		props:      props,
		view:       mgl32.Ident4(),
		projection: mgl32.Ident4(),
	}
}

func (r *Renderer) Props() Props         { return r.props }
func (r *Renderer) SetProps(p Props)     { r.props = p }
func (r *Renderer) Stats() Stats         { return r.stats }
func (r *Renderer) Context() gpu.Context { return r.ctx }

// Update copies the camera matrices and derives the culling frustum.
func (r *Renderer) Update(cam Camera) {
	r.view = cam.View()
	r.projection = cam.Projection()
	r.frustum = core.ExtractFrustum(r.projection.Mul4(r.view))
	r.near, r.far = cam.Near(), cam.Far()
	fogNear, fogFar := cam.Fog()
	r.fog = gpu.Fog{
		Enabled: fogNear < fogFar,
		Near:    fogNear,
		Far:     fogFar,
		Color:   r.props.BackgroundColor.Vec3(),
	}
}

func (r *Renderer) SetViewport(v core.Viewport) {
	r.viewport = v
	r.ctx.SetViewport(v)
}

func (r *Renderer) Viewport() core.Viewport { return r.viewport }

// SetJitter offsets subsequent draws by a sub-pixel amount.
func (r *Renderer) SetJitter(j mgl32.Vec2) { r.jitter = j }

// SetLight overrides the props light until called with nil.
func (r *Renderer) SetLight(l *gpu.Light) { r.light = l }

// SetOcclusionTest installs fn to reject spheres hidden behind opaque depth;
// nil disables occlusion culling.
func (r *Renderer) SetOcclusionTest(fn func(core.Sphere3D) bool) { r.occluded = fn }

// Clear clears the bound target. toBackground clears to the background
// color, transparentBackground forces a zero alpha.
func (r *Renderer) Clear(toBackground, transparentBackground bool) {
	r.ctx.SetState(gpu.DefaultDrawState())
	var c mgl32.Vec4
	if toBackground {
		c = r.props.BackgroundColor.Vec4(1)
	}
	if transparentBackground {
		c[3] = 0
	}
	r.ctx.Clear(c, true, true)
}

// ClearDepth clears only the depth buffer of the bound target.
func (r *Renderer) ClearDepth() {
	r.ctx.SetState(gpu.DefaultDrawState())
	r.ctx.Clear(mgl32.Vec4{}, false, true)
}

// ClearTo clears color and depth of the bound target to c.
func (r *Renderer) ClearTo(c mgl32.Vec4) {
	r.ctx.SetState(gpu.DefaultDrawState())
	r.ctx.Clear(c, true, true)
}

type drawOptions struct {
	variant      gpu.Variant
	state        gpu.DrawState
	depthTexture gpu.RenderTarget
	peelDepth    gpu.RenderTarget
	filter       func(*renderable.Renderable) bool
	// backToFront orders renderables by the view depth of their bounding
	// sphere centers, farthest first.
	backToFront bool
}

// visibleInstances returns the instances of re that survive frustum and
// occlusion culling.
func (r *Renderer) visibleInstances(re *renderable.Renderable) []gpu.Instance {
	bs := re.BoundingSphere()
	if !bs.IsEmpty() {
		if !r.frustum.SphereInFrustum(bs) {
			r.stats.Culled += re.Values().InstanceCount.Get()
			return nil
		}
		if r.occluded != nil && r.occluded(bs) {
			r.stats.Occluded += re.Values().InstanceCount.Get()
			return nil
		}
	}
	all := re.AllInstances()
	spheres := re.Values().InstanceSpheres.Get()
	if len(spheres) != len(all) || len(all) == 1 {
		return all
	}
	out := all[:0]
	for i, inst := range all {
		s := spheres[i]
		switch {
		case s.IsEmpty():
		case !r.frustum.SphereInFrustum(s):
			r.stats.Culled++
			continue
		case r.occluded != nil && r.occluded(s):
			r.stats.Occluded++
			continue
		}
		out = append(out, inst)
	}
	return out
}

func (r *Renderer) light0() gpu.Light {
	if r.light != nil {
		return *r.light
	}
	return gpu.Light{Direction: r.props.LightDirection, Ambient: r.props.AmbientIntensity}
}

func (r *Renderer) render(g *scene.Group, o drawOptions) {
	r.ctx.SetState(o.state)
	p := r.props
	marking := gpu.Marking{
		InColor:           p.ColorMarker,
		HighlightColor:    p.HighlightColor.Vec3(),
		SelectColor:       p.SelectColor.Vec3(),
		HighlightStrength: p.HighlightStrength,
		SelectStrength:    p.SelectStrength,
	}
	light := r.light0()
	renderables := g.Renderables()
	if o.backToFront {
		renderables = r.sortBackToFront(renderables)
	}
	for _, re := range renderables {
		if !re.Visible() || (o.filter != nil && !o.filter(re)) {
			continue
		}
		instances := r.visibleInstances(re)
		if len(instances) == 0 {
			continue
		}
		call := re.DrawCall(instances)
		call.View = r.view
		call.Projection = r.projection
		call.Jitter = r.jitter
		call.Variant = o.variant
		call.Light = light
		call.Marking = marking
		call.Fog = r.fog
		call.PickingAlphaThreshold = p.PickingAlphaThreshold
		call.DepthTexture = o.depthTexture
		call.PeelDepth = o.peelDepth
		r.ctx.Draw(call)
		r.stats.Calls++
		r.stats.Instances += len(instances)
	}
}

// sortBackToFront returns a copy of rs ordered farthest first. The group
// keeps its material order for the opaque passes.
func (r *Renderer) sortBackToFront(rs []*renderable.Renderable) []*renderable.Renderable {
	out := slices.Clone(rs)
	slices.SortStableFunc(out, func(a, b *renderable.Renderable) int {
		return cmp.Compare(r.viewDepth(a), r.viewDepth(b))
	})
	return out
}

// viewDepth is the view space z of the bounding sphere center; the camera
// looks down -z so smaller is farther.
func (r *Renderer) viewDepth(re *renderable.Renderable) float32 {
	c := re.BoundingSphere().Center
	return r.view.Mul4x1(c.Vec4(1)).Z()
}

func isOpaque(re *renderable.Renderable) bool      { return re.Opaque() }
func isTransparent(re *renderable.Renderable) bool { return re.Transparent() }
func isVolume(re *renderable.Renderable) bool      { return re.IsVolume() }

func opaqueState() gpu.DrawState {
	return gpu.DrawState{DepthTest: true, DepthWrite: true, ColorWrite: true, Blend: gpu.BlendNone}
}

func transparentState(writeDepth bool, blend gpu.BlendMode) gpu.DrawState {
	return gpu.DrawState{DepthTest: true, DepthWrite: writeDepth, ColorWrite: true, Blend: blend}
}

// RenderPick writes object, instance and group ids plus packed depth into
// the four attachments of the bound pick target.
func (r *Renderer) RenderPick(g *scene.Group) {
	r.render(g, drawOptions{
		variant: gpu.VariantPick,
		state:   opaqueState(),
		filter: func(re *renderable.Renderable) bool {
			return re.State().Pickable && !re.State().ColorOnly
		},
	})
}

func (r *Renderer) RenderDepth(g *scene.Group) {
	r.render(g, drawOptions{variant: gpu.VariantDepth, state: opaqueState()})
}

func (r *Renderer) RenderDepthOpaque(g *scene.Group) {
	r.render(g, drawOptions{variant: gpu.VariantDepth, state: opaqueState(), filter: isOpaque})
}

// RenderDepthTransparent writes the depth of transparent objects that lie
// in front of depthTexture.
func (r *Renderer) RenderDepthTransparent(g *scene.Group, depthTexture gpu.RenderTarget) {
	r.render(g, drawOptions{
		variant:      gpu.VariantDepth,
		state:        opaqueState(),
		depthTexture: depthTexture,
		filter:       isTransparent,
	})
}

// RenderMarkingDepth writes the depth of every unmarked fragment.
func (r *Renderer) RenderMarkingDepth(g *scene.Group) {
	r.render(g, drawOptions{
		variant: gpu.VariantMarkingDepth,
		state:   opaqueState(),
		filter: func(re *renderable.Renderable) bool {
			return re.Values().MarkerAverage.Get() < 1
		},
	})
}

// RenderMarkingMask writes highlight and select flags of marked fragments
// that are not hidden behind the marking depth.
func (r *Renderer) RenderMarkingMask(g *scene.Group, markingDepth gpu.RenderTarget) {
	r.render(g, drawOptions{
		variant:      gpu.VariantMarkingMask,
		state:        opaqueState(),
		depthTexture: markingDepth,
		filter:       (*renderable.Renderable).HasMarkers,
	})
}

func (r *Renderer) RenderEmissive(g *scene.Group) {
	r.render(g, drawOptions{
		variant: gpu.VariantEmissive,
		state:   opaqueState(),
		filter:  func(re *renderable.Renderable) bool { return !re.IsVolume() },
	})
}

// RenderTracing draws every primitive with the tracing variant; the caller
// varies the light between iterations.
func (r *Renderer) RenderTracing(g *scene.Group) {
	r.render(g, drawOptions{variant: gpu.VariantTracing, state: opaqueState(), filter: isOpaque})
	r.render(g, drawOptions{
		variant: gpu.VariantTracing,
		state:   transparentState(false, gpu.BlendAlpha),
		filter:  isTransparent,
	})
}

func (r *Renderer) RenderOpaque(g *scene.Group) {
	r.render(g, drawOptions{variant: gpu.VariantColor, state: opaqueState(), filter: isOpaque})
}

// RenderBlended draws opaque objects, then transparent ones, then volumes.
func (r *Renderer) RenderBlended(g *scene.Group) {
	r.RenderBlendedOpaque(g)
	r.RenderBlendedTransparent(g)
	r.RenderBlendedVolume(g)
}

func (r *Renderer) RenderBlendedOpaque(g *scene.Group) {
	r.RenderOpaque(g)
}

func (r *Renderer) RenderBlendedTransparent(g *scene.Group) {
	r.render(g, drawOptions{
		variant: gpu.VariantColor,
		state:   transparentState(false, gpu.BlendAlpha),
		filter: func(re *renderable.Renderable) bool {
			return re.Transparent() && !re.State().WriteDepth
		},
		backToFront: true,
	})
	r.render(g, drawOptions{
		variant: gpu.VariantColor,
		state:   transparentState(true, gpu.BlendAlpha),
		filter: func(re *renderable.Renderable) bool {
			return re.Transparent() && re.State().WriteDepth
		},
		backToFront: true,
	})
}

func (r *Renderer) RenderBlendedVolume(g *scene.Group) {
	r.RenderVolume(g, nil)
}

// RenderVolume draws volumes blended over the bound target, clipped by
// depthTexture when set.
func (r *Renderer) RenderVolume(g *scene.Group, depthTexture gpu.RenderTarget) {
	r.render(g, drawOptions{
		variant:      gpu.VariantColor,
		state:        transparentState(false, gpu.BlendAlpha),
		depthTexture: depthTexture,
		filter:       isVolume,
	})
}

func (r *Renderer) RenderWboitOpaque(g *scene.Group) {
	r.RenderOpaque(g)
}

// RenderWboitTransparent accumulates transparent objects and volumes into
// the bound two-attachment target, clipped by the opaque depth.
func (r *Renderer) RenderWboitTransparent(g *scene.Group, depthTexture gpu.RenderTarget) {
	r.render(g, drawOptions{
		variant:      gpu.VariantColor,
		state:        gpu.DrawState{DepthTest: false, ColorWrite: true, Blend: gpu.BlendWboit},
		depthTexture: depthTexture,
		filter: func(re *renderable.Renderable) bool {
			return re.Transparent() || re.IsVolume()
		},
	})
}

func (r *Renderer) RenderDpoitOpaque(g *scene.Group) {
	r.RenderOpaque(g)
}

// RenderDpoitTransparent draws the nearest transparent layer behind
// peelDepth and in front of depthTexture. A nil peelDepth yields the front
// layer.
func (r *Renderer) RenderDpoitTransparent(g *scene.Group, depthTexture, peelDepth gpu.RenderTarget) {
	r.render(g, drawOptions{
		variant:      gpu.VariantColor,
		state:        opaqueState(),
		depthTexture: depthTexture,
		peelDepth:    peelDepth,
		filter: func(re *renderable.Renderable) bool {
			return re.Transparent() || re.IsVolume()
		},
	})
}
