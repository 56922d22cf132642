package helper

import (
	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/repr"

	"github.com/go-gl/mathgl/mgl32"
)

const CameraAxesTag = "camera-axes"

var axisColors = [3]core.Color{
	core.ColorFromRGB(230, 60, 60),
	core.ColorFromRGB(60, 200, 60),
	core.ColorFromRGB(60, 90, 230),
}

type CameraHelperProps struct {
	Enabled bool
	// Size is the gizmo extent in pixels.
	Size int
	// Margin is the distance from the bottom left viewport corner in pixels.
	Margin int
}

func DefaultCameraHelperProps() CameraHelperProps {
	return CameraHelperProps{Enabled: false, Size: 64, Margin: 8}
}

// CameraHelper shows the world axes in the bottom left corner of the view.
// Its axes are pickable and markable.
type CameraHelper struct {
	*overlay
	Props CameraHelperProps

	lastTransform mgl32.Mat4
}

func NewCameraHelper(ctx gpu.Context, props CameraHelperProps) *CameraHelper {
	return &CameraHelper{overlay: newOverlay(ctx, CameraAxesTag), Props: props}
}

func (h *CameraHelper) IsEnabled() bool { return h.Props.Enabled }

func axesShape(name string, t mgl32.Mat4, radius float32) repr.Shape {
	props := geometry.DefaultProps()
	props.IgnoreLight = true
	return repr.Shape{
		Name: name,
		Geometry: &geometry.Cylinders{
			Starts: []float32{0, 0, 0, 0, 0, 0, 0, 0, 0},
			Ends:   []float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
			Groups: []float32{0, 1, 2},
		},
		Transforms: geometry.NewTransformData(t),
		Theme: geometry.Theme{
			Color: geometry.ColorTheme{
				Name:        "axes",
				Granularity: geometry.GranularityGroup,
				Color:       func(l geometry.Location) core.Color { return axisColors[l.Group%3] },
			},
			Size: geometry.SizeTheme{Name: "axes", Granularity: geometry.GranularityUniform, Uniform: radius},
		},
		Props: props,
	}
}

// Update places the gizmo for the current camera.
func (h *CameraHelper) Update(cam *camera.Camera) error {
	if !h.Props.Enabled {
		h.hide()
		return nil
	}
	vp := cam.Viewport()
	half := float32(h.Props.Size) / 2
	px := float32(vp.X+h.Props.Margin) + half
	py := float32(vp.Y+h.Props.Margin) + half
	depth := cam.Project(cam.Target()).Z()

	origin := cam.Unproject(px, py, depth)
	perPixel := cam.Unproject(px+1, py, depth).Sub(origin).Len()
	length := half * perPixel
	t := mgl32.Translate3D(origin.X(), origin.Y(), origin.Z()).Mul4(mgl32.Scale3D(length, length, length))
	if h.visible() && t == h.lastTransform {
		return nil
	}
	h.lastTransform = t
	return h.show(axesShape(CameraAxesTag, t, 0.06))
}
