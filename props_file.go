package canvas3d

import (
	"fmt"
	"os"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/controls"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/passes"

	"github.com/pelletier/go-toml/v2"
)

// Props files are TOML. Enums are strings, durations are milliseconds and
// colors are 0xRRGGBB integers. Keys that are absent keep their base value.

type cameraFile struct {
	Mode          string  `toml:"mode"`
	FOV           float32 `toml:"fov"`
	ManualReset   bool    `toml:"manual_reset"`
	Stereo        bool    `toml:"stereo"`
	EyeSeparation float32 `toml:"eye_separation"`
	FocusFactor   float32 `toml:"focus_factor"`
	Helper        bool    `toml:"helper"`
	HelperSize    int     `toml:"helper_size"`
	Fog           bool    `toml:"fog"`
	FogIntensity  float32 `toml:"fog_intensity"`
	ClipRadius    float32 `toml:"clip_radius"`
	ClipFar       bool    `toml:"clip_far"`
	MinNear       float32 `toml:"min_near"`
	ResetMs       int64   `toml:"reset_ms"`
}

type viewportFile struct {
	Kind   string  `toml:"kind"`
	X      float32 `toml:"x"`
	Y      float32 `toml:"y"`
	Width  float32 `toml:"width"`
	Height float32 `toml:"height"`
}

type renderFile struct {
	TransparentBackground bool    `toml:"transparent_background"`
	Background            uint32  `toml:"background"`
	HighlightColor        uint32  `toml:"highlight_color"`
	SelectColor           uint32  `toml:"select_color"`
	ColorMarker           bool    `toml:"color_marker"`
	Ambient               float32 `toml:"ambient"`
	MultiSample           string  `toml:"multi_sample"`
	SampleLevel           int     `toml:"sample_level"`
	ReduceFlicker         bool    `toml:"reduce_flicker"`
	Marking               bool    `toml:"marking"`
	Outline               bool    `toml:"outline"`
	Occlusion             bool    `toml:"occlusion"`
	Bloom                 bool    `toml:"bloom"`
	Illumination          bool    `toml:"illumination"`
	IlluminationSteps     int     `toml:"illumination_steps"`
	HiZ                   bool    `toml:"hi_z"`
	DpoitIterations       int     `toml:"dpoit_iterations"`
}

type trackballFile struct {
	RotateSpeed  float32 `toml:"rotate_speed"`
	ZoomSpeed    float32 `toml:"zoom_speed"`
	PanSpeed     float32 `toml:"pan_speed"`
	StaticMoving bool    `toml:"static_moving"`
	Animate      string  `toml:"animate"`
	AnimateSpeed float32 `toml:"animate_speed"`
}

type debugFile struct {
	SceneSpheres    bool  `toml:"scene_spheres"`
	VisibleSpheres  bool  `toml:"visible_spheres"`
	ObjectSpheres   bool  `toml:"object_spheres"`
	InstanceSpheres bool  `toml:"instance_spheres"`
	Handle          bool  `toml:"handle"`
	HoverMaxFps     int   `toml:"hover_max_fps"`
	InteractionMs   int64 `toml:"interaction_release_ms"`
}

type propsFile struct {
	Camera    cameraFile    `toml:"camera"`
	Viewport  viewportFile  `toml:"viewport"`
	Render    renderFile    `toml:"render"`
	Trackball trackballFile `toml:"trackball"`
	Debug     debugFile     `toml:"debug"`
}

func toPropsFile(p Props) propsFile {
	return propsFile{
		Camera: cameraFile{
			Mode:          p.Camera.Mode.String(),
			FOV:           p.Camera.FOV,
			ManualReset:   p.Camera.ManualReset,
			Stereo:        p.Camera.Stereo.Enabled,
			EyeSeparation: p.Camera.Stereo.EyeSeparation,
			FocusFactor:   p.Camera.Stereo.FocusFactor,
			Helper:        p.Camera.Helper.Enabled,
			HelperSize:    p.Camera.Helper.Size,
			Fog:           p.CameraFog.Enabled,
			FogIntensity:  p.CameraFog.Intensity,
			ClipRadius:    p.CameraClipping.Radius,
			ClipFar:       p.CameraClipping.Far,
			MinNear:       p.CameraClipping.MinNear,
			ResetMs:       p.CameraResetDuration.Milliseconds(),
		},
		Viewport: viewportFile{
			Kind:   p.Viewport.Kind.String(),
			X:      p.Viewport.X,
			Y:      p.Viewport.Y,
			Width:  p.Viewport.Width,
			Height: p.Viewport.Height,
		},
		Render: renderFile{
			TransparentBackground: p.TransparentBackground,
			Background:            uint32(p.Renderer.BackgroundColor),
			HighlightColor:        uint32(p.Renderer.HighlightColor),
			SelectColor:           uint32(p.Renderer.SelectColor),
			ColorMarker:           p.Renderer.ColorMarker,
			Ambient:               p.Renderer.AmbientIntensity,
			MultiSample:           p.MultiSample.Mode.String(),
			SampleLevel:           p.MultiSample.SampleLevel,
			ReduceFlicker:         p.MultiSample.ReduceFlicker,
			Marking:               p.Marking.Enabled,
			Outline:               p.Postprocessing.Outline.Enabled,
			Occlusion:             p.Postprocessing.Occlusion.Enabled,
			Bloom:                 p.Postprocessing.Bloom.Enabled,
			Illumination:          p.Illumination.Enabled,
			IlluminationSteps:     p.Illumination.MaxIterations,
			HiZ:                   p.HiZ.Enabled,
			DpoitIterations:       p.DpoitIterations,
		},
		Trackball: trackballFile{
			RotateSpeed:  p.Trackball.RotateSpeed,
			ZoomSpeed:    p.Trackball.ZoomSpeed,
			PanSpeed:     p.Trackball.PanSpeed,
			StaticMoving: p.Trackball.StaticMoving,
			Animate:      p.Trackball.Animate.Mode.String(),
			AnimateSpeed: p.Trackball.Animate.Speed,
		},
		Debug: debugFile{
			SceneSpheres:    p.Debug.SceneBoundingSpheres,
			VisibleSpheres:  p.Debug.VisibleSceneBoundingSpheres,
			ObjectSpheres:   p.Debug.ObjectBoundingSpheres,
			InstanceSpheres: p.Debug.InstanceBoundingSpheres,
			Handle:          p.Handle.Enabled,
			HoverMaxFps:     p.Interaction.MaxFps,
			InteractionMs:   p.UserInteractionRelease.Milliseconds(),
		},
	}
}

// apply writes f over p and returns the result.
func (f propsFile) apply(p Props) (Props, error) {
	mode, err := camera.ParseMode(f.Camera.Mode)
	if err != nil {
		return p, err
	}
	kind, err := ParseViewportKind(f.Viewport.Kind)
	if err != nil {
		return p, err
	}
	ms, err := passes.ParseMultiSampleMode(f.Render.MultiSample)
	if err != nil {
		return p, err
	}
	animate, err := controls.ParseAnimateMode(f.Trackball.Animate)
	if err != nil {
		return p, err
	}

	c := f.Camera
	p.Camera.Mode = mode
	p.Camera.FOV = c.FOV
	p.Camera.ManualReset = c.ManualReset
	p.Camera.Stereo.Enabled = c.Stereo
	p.Camera.Stereo.EyeSeparation = c.EyeSeparation
	p.Camera.Stereo.FocusFactor = c.FocusFactor
	p.Camera.Helper.Enabled = c.Helper
	p.Camera.Helper.Size = c.HelperSize
	p.CameraFog = CameraFogProps{Enabled: c.Fog, Intensity: c.FogIntensity}
	p.CameraClipping = CameraClippingProps{Radius: c.ClipRadius, Far: c.ClipFar, MinNear: c.MinNear}
	p.CameraResetDuration = time.Duration(c.ResetMs) * time.Millisecond

	v := f.Viewport
	p.Viewport = ViewportProps{Kind: kind, X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}

	r := f.Render
	p.TransparentBackground = r.TransparentBackground
	p.Renderer.BackgroundColor = core.Color(r.Background)
	p.Renderer.HighlightColor = core.Color(r.HighlightColor)
	p.Renderer.SelectColor = core.Color(r.SelectColor)
	p.Renderer.ColorMarker = r.ColorMarker
	p.Renderer.AmbientIntensity = r.Ambient
	p.MultiSample = passes.MultiSampleProps{Mode: ms, SampleLevel: r.SampleLevel, ReduceFlicker: r.ReduceFlicker}
	p.Marking.Enabled = r.Marking
	p.Postprocessing.Outline.Enabled = r.Outline
	p.Postprocessing.Occlusion.Enabled = r.Occlusion
	p.Postprocessing.Bloom.Enabled = r.Bloom
	p.Illumination.Enabled = r.Illumination
	p.Illumination.MaxIterations = r.IlluminationSteps
	p.HiZ.Enabled = r.HiZ
	p.DpoitIterations = r.DpoitIterations

	t := f.Trackball
	p.Trackball.RotateSpeed = t.RotateSpeed
	p.Trackball.ZoomSpeed = t.ZoomSpeed
	p.Trackball.PanSpeed = t.PanSpeed
	p.Trackball.StaticMoving = t.StaticMoving
	p.Trackball.Animate.Mode = animate
	p.Trackball.Animate.Speed = t.AnimateSpeed

	d := f.Debug
	p.Debug.SceneBoundingSpheres = d.SceneSpheres
	p.Debug.VisibleSceneBoundingSpheres = d.VisibleSpheres
	p.Debug.ObjectBoundingSpheres = d.ObjectSpheres
	p.Debug.InstanceBoundingSpheres = d.InstanceSpheres
	p.Handle.Enabled = d.Handle
	p.Interaction.MaxFps = d.HoverMaxFps
	p.UserInteractionRelease = time.Duration(d.InteractionMs) * time.Millisecond
	return p, nil
}

// DecodeProps reads TOML props over base and returns the sections that
// differ from base.
func DecodeProps(data []byte, base Props) (PartialProps, error) {
	f := toPropsFile(base)
	if err := toml.Unmarshal(data, &f); err != nil {
		return PartialProps{}, fmt.Errorf("decode props: %w", err)
	}
	next, err := f.apply(base)
	if err != nil {
		return PartialProps{}, fmt.Errorf("decode props: %w", err)
	}
	return diffProps(base, next), nil
}

// LoadPropsFile reads the TOML props file at path over base.
func LoadPropsFile(path string, base Props) (PartialProps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PartialProps{}, fmt.Errorf("load props: %w", err)
	}
	return DecodeProps(data, base)
}

// EncodeProps writes the file representation of p.
func EncodeProps(p Props) ([]byte, error) {
	return toml.Marshal(toPropsFile(p))
}

func diffProps(prev, next Props) PartialProps {
	var pp PartialProps
	pick(&pp.Camera, prev.Camera, next.Camera)
	pick(&pp.CameraFog, prev.CameraFog, next.CameraFog)
	pick(&pp.CameraClipping, prev.CameraClipping, next.CameraClipping)
	pick(&pp.CameraResetDuration, prev.CameraResetDuration, next.CameraResetDuration)
	pick(&pp.SceneRadiusFactor, prev.SceneRadiusFactor, next.SceneRadiusFactor)
	pick(&pp.TransparentBackground, prev.TransparentBackground, next.TransparentBackground)
	pick(&pp.DpoitIterations, prev.DpoitIterations, next.DpoitIterations)
	pick(&pp.UserInteractionRelease, prev.UserInteractionRelease, next.UserInteractionRelease)
	pick(&pp.Viewport, prev.Viewport, next.Viewport)
	pick(&pp.MultiSample, prev.MultiSample, next.MultiSample)
	pick(&pp.Postprocessing, prev.Postprocessing, next.Postprocessing)
	pick(&pp.Marking, prev.Marking, next.Marking)
	pick(&pp.Illumination, prev.Illumination, next.Illumination)
	pick(&pp.HiZ, prev.HiZ, next.HiZ)
	pick(&pp.Renderer, prev.Renderer, next.Renderer)
	pick(&pp.Trackball, prev.Trackball, next.Trackball)
	pick(&pp.Interaction, prev.Interaction, next.Interaction)
	pick(&pp.Debug, prev.Debug, next.Debug)
	pick(&pp.Handle, prev.Handle, next.Handle)
	return pp
}

func pick[T comparable](dst **T, prev, next T) {
	if prev != next {
		*dst = &next
	}
}
