package canvas3d

import (
	"fmt"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/controls"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/helper"
	"github.com/molcanvas/canvas3d/molgl/passes"
	"github.com/molcanvas/canvas3d/molgl/renderer"
)

type ViewportKind int

const (
	// ViewportCanvas covers the whole drawing buffer.
	ViewportCanvas ViewportKind = iota
	// ViewportStaticFrame is a rectangle in window pixels, origin top left.
	ViewportStaticFrame
	// ViewportRelativeFrame is a rectangle in fractions of the window.
	ViewportRelativeFrame
)

func (k ViewportKind) String() string {
	switch k {
	case ViewportStaticFrame:
		return "static-frame"
	case ViewportRelativeFrame:
		return "relative-frame"
	}
	return "canvas"
}

func ParseViewportKind(s string) (ViewportKind, error) {
	switch s {
	case "canvas", "":
		return ViewportCanvas, nil
	case "static-frame":
		return ViewportStaticFrame, nil
	case "relative-frame":
		return ViewportRelativeFrame, nil
	}
	return 0, fmt.Errorf("unknown viewport %q", s)
}

type ViewportProps struct {
	Kind                ViewportKind
	X, Y, Width, Height float32
}

// resolve returns the viewport in drawing buffer pixels, origin bottom
// left, for a buffer of w by h pixels and a window to buffer ratio.
func (v ViewportProps) resolve(w, h int, ratio float32) core.Viewport {
	switch v.Kind {
	case ViewportStaticFrame:
		x, y := int(v.X*ratio), int(v.Y*ratio)
		vw, vh := int(v.Width*ratio), int(v.Height*ratio)
		return core.Viewport{X: x, Y: h - vh - y, Width: vw, Height: vh}
	case ViewportRelativeFrame:
		x, y := int(v.X*float32(w)), int(v.Y*float32(h))
		vw, vh := int(v.Width*float32(w)), int(v.Height*float32(h))
		return core.Viewport{X: x, Y: h - vh - y, Width: vw, Height: vh}
	}
	return core.Viewport{Width: w, Height: h}
}

type StereoProps struct {
	Enabled bool
	camera.StereoProps
}

type CameraProps struct {
	Mode camera.Mode
	// FOV is the vertical field of view in degrees.
	FOV float32
	// ManualReset disables the automatic camera reset after commits.
	ManualReset bool
	Stereo      StereoProps
	Helper      helper.CameraHelperProps
}

type CameraFogProps struct {
	Enabled   bool
	Intensity float32
}

type CameraClippingProps struct {
	// Radius clips the scene to this percentage of its radius; 100 keeps
	// the radius from the last focus.
	Radius  float32
	Far     bool
	MinNear float32
}

type HiZProps struct {
	Enabled bool
}

type InteractionProps struct {
	// MaxFps bounds how often hover picks run.
	MaxFps int
}

// Props is the complete configuration of a canvas.
type Props struct {
	Camera                 CameraProps
	CameraFog              CameraFogProps
	CameraClipping         CameraClippingProps
	CameraResetDuration    time.Duration
	SceneRadiusFactor      float32
	TransparentBackground  bool
	DpoitIterations        int
	UserInteractionRelease time.Duration
	Viewport               ViewportProps

	MultiSample    passes.MultiSampleProps
	Postprocessing passes.PostprocessingProps
	Marking        passes.MarkingProps
	Illumination   passes.IlluminationProps
	HiZ            HiZProps

	Renderer    renderer.Props
	Trackball   controls.Props
	Interaction InteractionProps
	Debug       helper.DebugHelperProps
	Handle      helper.HandleHelperProps
}

func DefaultProps() Props {
	draw := passes.DefaultProps()
	return Props{
		Camera: CameraProps{
			Mode:   camera.Perspective,
			FOV:    45,
			Stereo: StereoProps{StereoProps: camera.DefaultStereoProps()},
			Helper: helper.DefaultCameraHelperProps(),
		},
		CameraFog:              CameraFogProps{Enabled: true, Intensity: 15},
		CameraClipping:         CameraClippingProps{Radius: 100, Far: true, MinNear: 5},
		CameraResetDuration:    250 * time.Millisecond,
		SceneRadiusFactor:      1,
		DpoitIterations:        draw.DpoitIterations,
		UserInteractionRelease: 250 * time.Millisecond,
		MultiSample:            passes.MultiSampleProps{Mode: passes.MultiSampleTemporal, SampleLevel: 2, ReduceFlicker: true},
		Postprocessing:         draw.Postprocessing,
		Marking:                draw.Marking,
		Illumination:           passes.DefaultIlluminationProps(),
		Renderer:               renderer.DefaultProps(),
		Trackball:              controls.DefaultProps(),
		Interaction:            InteractionProps{MaxFps: 30},
		Handle:                 helper.DefaultHandleHelperProps(),
	}
}

// drawProps is the per-frame configuration of the draw pass.
func (p Props) drawProps() passes.Props {
	return passes.Props{
		TransparentBackground: p.TransparentBackground,
		DpoitIterations:       p.DpoitIterations,
		Marking:               p.Marking,
		Postprocessing:        p.Postprocessing,
	}
}

// fog is the camera fog for the props.
func (p Props) fog() float32 {
	if !p.CameraFog.Enabled {
		return 0
	}
	return p.CameraFog.Intensity
}

// PartialProps updates the sections that are set.
type PartialProps struct {
	Camera                 *CameraProps
	CameraFog              *CameraFogProps
	CameraClipping         *CameraClippingProps
	CameraResetDuration    *time.Duration
	SceneRadiusFactor      *float32
	TransparentBackground  *bool
	DpoitIterations        *int
	UserInteractionRelease *time.Duration
	Viewport               *ViewportProps

	MultiSample    *passes.MultiSampleProps
	Postprocessing *passes.PostprocessingProps
	Marking        *passes.MarkingProps
	Illumination   *passes.IlluminationProps
	HiZ            *HiZProps

	Renderer    *renderer.Props
	Trackball   *controls.Props
	Interaction *InteractionProps
	Debug       *helper.DebugHelperProps
	Handle      *helper.HandleHelperProps
}

// Merge returns p with the sections of pp applied.
func (p Props) Merge(pp PartialProps) Props {
	set(&p.Camera, pp.Camera)
	set(&p.CameraFog, pp.CameraFog)
	set(&p.CameraClipping, pp.CameraClipping)
	set(&p.CameraResetDuration, pp.CameraResetDuration)
	set(&p.SceneRadiusFactor, pp.SceneRadiusFactor)
	set(&p.TransparentBackground, pp.TransparentBackground)
	set(&p.DpoitIterations, pp.DpoitIterations)
	set(&p.UserInteractionRelease, pp.UserInteractionRelease)
	set(&p.Viewport, pp.Viewport)
	set(&p.MultiSample, pp.MultiSample)
	set(&p.Postprocessing, pp.Postprocessing)
	set(&p.Marking, pp.Marking)
	set(&p.Illumination, pp.Illumination)
	set(&p.HiZ, pp.HiZ)
	set(&p.Renderer, pp.Renderer)
	set(&p.Trackball, pp.Trackball)
	set(&p.Interaction, pp.Interaction)
	set(&p.Debug, pp.Debug)
	set(&p.Handle, pp.Handle)
	return p
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// changed reports whether src is set and differs from dst.
func changed[T comparable](dst T, src *T) bool {
	return src != nil && *src != dst
}
