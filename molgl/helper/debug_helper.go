package helper

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/repr"
	"github.com/molcanvas/canvas3d/molgl/scene"
)

const DebugTag = "debug"

type DebugHelperProps struct {
	SceneBoundingSpheres        bool
	VisibleSceneBoundingSpheres bool
	ObjectBoundingSpheres       bool
	InstanceBoundingSpheres     bool
}

func (p DebugHelperProps) any() bool {
	return p.SceneBoundingSpheres || p.VisibleSceneBoundingSpheres || p.ObjectBoundingSpheres || p.InstanceBoundingSpheres
}

// DebugHelper draws translucent bounding spheres of a scene.
type DebugHelper struct {
	*overlay
	Props DebugHelperProps

	count int
}

func NewDebugHelper(ctx gpu.Context, props DebugHelperProps) *DebugHelper {
	return &DebugHelper{overlay: newOverlay(ctx, DebugTag), Props: props}
}

func (h *DebugHelper) IsEnabled() bool { return h.Props.any() }

// SphereCount is the number of spheres drawn after the last Update.
func (h *DebugHelper) SphereCount() int { return h.count }

func (h *DebugHelper) collect(s *scene.Scene) []core.Sphere3D {
	var out []core.Sphere3D
	add := func(sp core.Sphere3D) {
		if !sp.IsEmpty() {
			out = append(out, sp)
		}
	}
	if h.Props.SceneBoundingSpheres {
		add(s.BoundingSphere())
	}
	if h.Props.VisibleSceneBoundingSpheres {
		add(s.BoundingSphereVisible())
	}
	if h.Props.ObjectBoundingSpheres || h.Props.InstanceBoundingSpheres {
		s.ForEach(func(r *renderable.Renderable) {
			if !r.Visible() {
				return
			}
			if h.Props.ObjectBoundingSpheres {
				add(r.BoundingSphere())
			}
			if h.Props.InstanceBoundingSpheres {
				for _, sp := range r.Values().InstanceSpheres.Get() {
					add(sp)
				}
			}
		})
	}
	return out
}

// Update rebuilds the spheres from the committed state of s.
func (h *DebugHelper) Update(s *scene.Scene) error {
	spheres := h.collect(s)
	h.count = len(spheres)
	if !h.Props.any() || len(spheres) == 0 {
		h.hide()
		return nil
	}
	centers := make([]float32, 0, len(spheres)*3)
	groups := make([]float32, 0, len(spheres))
	for i, sp := range spheres {
		centers = append(centers, sp.Center.X(), sp.Center.Y(), sp.Center.Z())
		groups = append(groups, float32(i))
	}
	props := geometry.DefaultProps()
	props.Alpha = 0.15
	props.Pickable = false
	props.IgnoreLight = true
	return h.show(repr.Shape{
		Name:     DebugTag,
		Geometry: &geometry.Spheres{Centers: centers, Groups: groups, Padding: maxRadius(spheres)},
		Theme: geometry.Theme{
			Color: geometry.ColorTheme{Name: "debug", Granularity: geometry.GranularityUniform, Uniform: core.ColorFromRGB(128, 128, 128)},
			Size: geometry.SizeTheme{
				Name:        "debug",
				Granularity: geometry.GranularityGroup,
				Size:        func(l geometry.Location) float32 { return spheres[l.Group].Radius },
			},
		},
		Props: props,
	})
}

func maxRadius(spheres []core.Sphere3D) float32 {
	var r float32
	for _, s := range spheres {
		r = max(r, s.Radius)
	}
	return r
}
