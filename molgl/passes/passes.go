// Package passes composes renderer calls into complete frames: the draw
// pass with its transparency variants, marking and postprocessing, picking,
// the Hi-Z occlusion buffer, multi-sampling, progressive illumination and
// offscreen image export.
package passes

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/renderer"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderContext is what every pass draws.
type RenderContext struct {
	Renderer *renderer.Renderer
	Camera   renderer.Camera
	Scene    *scene.Scene
	// Helpers are overlay groups drawn on top of the scene.
	Helpers []*scene.Group
}

type MarkingProps struct {
	Enabled            bool
	EdgeScale          int
	HighlightEdgeColor core.Color
	SelectEdgeColor    core.Color
}

type OutlineProps struct {
	Enabled   bool
	Scale     int
	Threshold float32
	Color     core.Color
}

type OcclusionProps struct {
	Enabled   bool
	Radius    int
	Strength  float32
	Threshold float32
}

type BloomProps struct {
	Enabled  bool
	Strength float32
	Radius   int
}

type PostprocessingProps struct {
	Outline   OutlineProps
	Occlusion OcclusionProps
	Bloom     BloomProps
}

// Props configures one frame of the draw pass.
type Props struct {
	TransparentBackground bool
	DpoitIterations       int
	Marking               MarkingProps
	Postprocessing        PostprocessingProps
}

func DefaultProps() Props {
	return Props{
		DpoitIterations: 2,
		Marking: MarkingProps{
			Enabled:            true,
			EdgeScale:          1,
			HighlightEdgeColor: core.ColorFromRGB(255, 0, 255),
			SelectEdgeColor:    core.ColorFromRGB(51, 255, 25),
		},
		Postprocessing: PostprocessingProps{
			Outline:   OutlineProps{Scale: 1, Threshold: 0.33, Color: 0x000000},
			Occlusion: OcclusionProps{Radius: 4, Strength: 0.6, Threshold: 0.0005},
			Bloom:     BloomProps{Strength: 1, Radius: 2},
		},
	}
}

// floatTargetsSupported reports whether float accumulation targets with
// multiple attachments are available.
func floatTargetsSupported(ext gpu.Extensions) bool {
	return ext.DrawBuffers && (ext.ColorBufferFloat || ext.ColorBufferHalfFloat) &&
		(ext.TextureFloat || ext.TextureHalfFloat)
}

// ensureSize resizes t when it does not match.
func ensureSize(t gpu.RenderTarget, w, h int) {
	if tw, th := t.Size(); tw != w || th != h {
		t.SetSize(w, h)
	}
}

func fullViewport(t gpu.RenderTarget) core.Viewport {
	w, h := t.Size()
	return core.Viewport{Width: w, Height: h}
}

// copyTo composites src into the bound target over the current viewport.
func copyTo(ctx gpu.Context, src gpu.RenderTarget, blend gpu.BlendMode, weight float32) {
	ctx.SetState(gpu.DrawState{ColorWrite: true, Blend: blend})
	ctx.RunFullscreen(&gpu.FullscreenPass{Op: gpu.OpCopy, Source: src, Blend: blend, Weight: weight})
}

// drawHelpers draws the overlay groups on top of the bound target.
func drawHelpers(rc RenderContext) {
	if len(rc.Helpers) == 0 {
		return
	}
	rc.Renderer.ClearDepth()
	for _, g := range rc.Helpers {
		rc.Renderer.RenderBlended(g)
	}
}

func bindTo(ctx gpu.Context, r *renderer.Renderer, t gpu.RenderTarget, vp core.Viewport) {
	ctx.BindRenderTarget(t)
	r.SetViewport(vp)
}

// jitterVectors are sub-pixel sample offsets per sample level, in pixels.
var jitterVectors = [][]mgl32.Vec2{
	{{0, 0}},
	{{0.25, 0.25}, {-0.25, -0.25}},
	{{0.375, -0.125}, {-0.125, -0.375}, {0.125, 0.375}, {-0.375, 0.125}},
	{
		{0.0625, -0.1875}, {-0.0625, 0.1875}, {0.3125, 0.0625}, {-0.1875, -0.3125},
		{-0.3125, 0.3125}, {-0.4375, -0.0625}, {0.1875, 0.4375}, {0.4375, -0.4375},
	},
	{
		{0.0625, 0.0625}, {-0.0625, -0.1875}, {-0.1875, 0.125}, {0.25, -0.0625},
		{-0.3125, -0.125}, {0.125, 0.3125}, {0.3125, 0.1875}, {0.1875, -0.3125},
		{-0.125, 0.375}, {0, -0.4375}, {-0.25, -0.375}, {-0.375, 0.25},
		{-0.5, 0}, {0.4375, -0.25}, {0.375, 0.4375}, {-0.4375, -0.5},
	},
}

// JitterVectors returns the offsets of sample level, clamped to the table.
func JitterVectors(level int) []mgl32.Vec2 {
	return jitterVectors[min(max(level, 0), len(jitterVectors)-1)]
}
