// Package renderable holds render objects and their GPU side counterparts.
package renderable

import (
	"sync/atomic"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/values"
)

var nextObjectID atomic.Int64

// RenderObject is one drawable unit. It is owned by the representation that
// created it; the scene only writes the counts after a commit.
type RenderObject struct {
	ID         int
	Kind       geometry.Kind
	Values     *geometry.Values
	State      *geometry.RenderableState
	MaterialID int

	DrawCount   int
	VertexCount int
	GroupCount  int
}

func CreateRenderObject(kind geometry.Kind, v *geometry.Values, state *geometry.RenderableState, materialID int) *RenderObject {
	if state == nil {
		state = &geometry.RenderableState{Visible: true, Pickable: true, AlphaFactor: 1, Opaque: true}
	}
	return &RenderObject{
		ID:         int(nextObjectID.Add(1)),
		Kind:       kind,
		Values:     v,
		State:      state,
		MaterialID: materialID,
	}
}

// Renderable is the GPU side of one RenderObject: buffers that mirror the
// object's value cells, uploaded when a cell version moved.
type Renderable struct {
	Object *RenderObject

	ctx       gpu.Context
	positions gpu.Buffer
	secondary gpu.Buffer
	elements  gpu.IndexBuffer
	groups    gpu.Buffer
	sizes     gpu.Buffer
	uvs       gpu.Buffer
	colors    gpu.Buffer
	markers   gpu.Buffer
	texture   gpu.Texture

	tracker         *values.Tracker
	geometryVersion int
	disposed        bool
}

// New allocates the buffers of o.
func New(ctx gpu.Context, o *RenderObject) *Renderable {
	v := o.Values
	r := &Renderable{
		Object:    o,
		ctx:       ctx,
		positions: ctx.CreateBuffer(v.Positions.Get()),
		secondary: ctx.CreateBuffer(v.Secondary.Get()),
		elements:  ctx.CreateIndexBuffer(v.Elements.Get()),
		groups:    ctx.CreateBuffer(v.Groups.Get()),
		sizes:     ctx.CreateBuffer(v.Sizes.Get()),
		uvs:       ctx.CreateBuffer(v.UVs.Get()),
		colors:    ctx.CreateBuffer(v.Color.Get().Data),
		markers:   ctx.CreateBuffer(markerFloats(v.Markers.Get())),
		tracker:   values.NewTracker(),
	}
	tex := v.Texture.Get()
	r.texture = ctx.CreateTexture(tex.Width, tex.Height, 1, tex.RGBA)
	for _, c := range r.cells() {
		r.tracker.Changed(c)
	}
	r.syncCounts()
	return r
}

func markerFloats(m []uint8) []float32 {
	out := make([]float32, len(m))
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func (r *Renderable) cells() []values.Versioned {
	v := r.Object.Values
	return append(v.GeometryCells(), v.Color, v.Markers)
}

func (r *Renderable) syncCounts() {
	v := r.Object.Values
	r.Object.DrawCount = v.DrawCount.Get()
	r.Object.VertexCount = v.VertexCount.Get()
	r.Object.GroupCount = v.GroupCount.Get()
}

// Update uploads every changed cell in place and reports whether anything
// was uploaded. Geometry changes bump GeometryVersion.
func (r *Renderable) Update() bool {
	if r.disposed {
		return false
	}
	v := r.Object.Values
	geometryChanged := false
	if r.tracker.Changed(v.Positions) {
		r.positions.Update(v.Positions.Get())
		geometryChanged = true
	}
	if r.tracker.Changed(v.Secondary) {
		r.secondary.Update(v.Secondary.Get())
		geometryChanged = true
	}
	if r.tracker.Changed(v.Elements) {
		r.elements.Update(v.Elements.Get())
		geometryChanged = true
	}
	if r.tracker.Changed(v.Groups) {
		r.groups.Update(v.Groups.Get())
		geometryChanged = true
	}
	if r.tracker.Changed(v.Sizes) {
		r.sizes.Update(v.Sizes.Get())
		geometryChanged = true
	}
	if r.tracker.Changed(v.UVs) {
		r.uvs.Update(v.UVs.Get())
		geometryChanged = true
	}
	if r.tracker.Changed(v.Texture) {
		tex := v.Texture.Get()
		r.texture.Update(tex.Width, tex.Height, 1, tex.RGBA)
		geometryChanged = true
	}
	if r.tracker.Changed(v.DrawCount) {
		geometryChanged = true
	}
	changed := geometryChanged
	if r.tracker.Changed(v.Color) {
		r.colors.Update(v.Color.Get().Data)
		changed = true
	}
	if r.tracker.Changed(v.Markers) {
		r.markers.Update(markerFloats(v.Markers.Get()))
		changed = true
	}
	if geometryChanged {
		r.geometryVersion++
		r.syncCounts()
	}
	return changed
}

// GeometryVersion counts geometry uploads since creation.
func (r *Renderable) GeometryVersion() int { return r.geometryVersion }

func (r *Renderable) ID() int                          { return r.Object.ID }
func (r *Renderable) MaterialID() int                  { return r.Object.MaterialID }
func (r *Renderable) State() *geometry.RenderableState { return r.Object.State }
func (r *Renderable) Values() *geometry.Values         { return r.Object.Values }
func (r *Renderable) BoundingSphere() core.Sphere3D    { return r.Object.Values.BoundingSphere.Get() }
func (r *Renderable) IsVolume() bool                   { return r.Object.Kind.IsVolume() }
func (r *Renderable) Disposed() bool                   { return r.disposed }

// Alpha is the effective alpha of the object.
func (r *Renderable) Alpha() float32 {
	return r.Object.Values.Alpha.Get() * r.Object.State.AlphaFactor
}

// Opaque reports whether the object draws in the opaque pass.
func (r *Renderable) Opaque() bool {
	return !r.IsVolume() && r.Alpha() >= 1
}

// Transparent reports whether the object draws in a transparent pass.
func (r *Renderable) Transparent() bool {
	return !r.IsVolume() && r.Alpha() < 1
}

func (r *Renderable) Visible() bool {
	s := r.Object.State
	return s.Visible && !s.Disposed && r.Alpha() > 0 && r.Object.DrawCount > 0
}

func (r *Renderable) HasMarkers() bool {
	return r.Object.Values.MarkerAverage.Get() > 0
}

func (r *Renderable) Emissive() float32 {
	return r.Object.Values.Emissive.Get()
}

func colorType(cd geometry.ColorData) gpu.ColorType {
	if cd.Texture {
		return gpu.ColorTexture
	}
	switch cd.Granularity {
	case geometry.GranularityInstance:
		return gpu.ColorInstance
	case geometry.GranularityGroup, geometry.GranularityVolume:
		return gpu.ColorGroup
	case geometry.GranularityGroupInstance, geometry.GranularityVolumeInstance:
		return gpu.ColorGroupInstance
	case geometry.GranularityVertex, geometry.GranularityVertexInstance:
		return gpu.ColorVertex
	}
	return gpu.ColorUniform
}

func topology(k geometry.Kind) gpu.Topology {
	switch k {
	case geometry.KindSpheres:
		return gpu.TopologySpheres
	case geometry.KindCylinders, geometry.KindLines:
		return gpu.TopologySegments
	case geometry.KindPoints, geometry.KindDirectVolume:
		return gpu.TopologyPoints
	}
	return gpu.TopologyTriangles
}

// DrawCall returns a call for the given instances with primitives and
// material filled in; the renderer sets camera, variant and pass uniforms.
func (r *Renderable) DrawCall(instances []gpu.Instance) *gpu.DrawCall {
	v := r.Object.Values
	cd := v.Color.Get()
	return &gpu.DrawCall{
		ObjectID:   r.Object.ID,
		GroupCount: v.GroupCount.Get(),
		Primitives: gpu.Primitives{
			Topology:   topology(r.Object.Kind),
			Positions:  r.positions,
			Secondary:  r.secondary,
			Elements:   r.elementsOrNil(),
			Groups:     r.groups,
			Sizes:      r.sizes,
			UVs:        r.uvs,
			Texture:    r.texture,
			Count:      v.DrawCount.Get(),
			SizeFactor: v.SizeFactor.Get(),
			PixelSizes: v.PixelSizes.Get(),
		},
		Material: gpu.Material{
			ColorType:   colorType(cd),
			Color:       cd.Uniform,
			Colors:      r.colors,
			Markers:     r.markers,
			Alpha:       r.Alpha(),
			Emissive:    v.Emissive.Get(),
			IgnoreLight: v.IgnoreLight.Get(),
			DoubleSided: v.DoubleSided.Get(),
		},
		Instances: instances,
	}
}

func (r *Renderable) elementsOrNil() gpu.IndexBuffer {
	if len(r.Object.Values.Elements.Get()) == 0 {
		return nil
	}
	return r.elements
}

// AllInstances returns every instance of the object.
func (r *Renderable) AllInstances() []gpu.Instance {
	ts := r.Object.Values.Transforms.Get()
	out := make([]gpu.Instance, len(ts))
	for i, m := range ts {
		out[i] = gpu.Instance{Index: i, Transform: m}
	}
	return out
}

// Dispose releases every GPU resource. It is idempotent.
func (r *Renderable) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	for _, b := range []gpu.Buffer{r.positions, r.secondary, r.groups, r.sizes, r.uvs, r.colors, r.markers} {
		b.Destroy()
	}
	r.elements.Destroy()
	r.texture.Destroy()
}
