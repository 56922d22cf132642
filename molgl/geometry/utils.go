package geometry

import (
	"fmt"
	"slices"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/values"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformData holds the instance transforms of one object.
type TransformData struct {
	Transforms []mgl32.Mat4
}

// NewTransformData defaults to a single identity instance.
func NewTransformData(transforms ...mgl32.Mat4) TransformData {
	if len(transforms) == 0 {
		transforms = []mgl32.Mat4{mgl32.Ident4()}
	}
	return TransformData{Transforms: transforms}
}

func (t TransformData) InstanceCount() int { return len(t.Transforms) }

// Utils is the per kind trait creating and updating render values.
type Utils interface {
	Kind() Kind
	CreateEmpty() Geometry
	CreateValues(g Geometry, td TransformData, theme Theme, props Props) (*Values, error)
	// UpdateValues applies appearance props in place.
	UpdateValues(v *Values, props Props)
	// UpdateGeometry replaces vertex data, uploading in place when sizes allow.
	UpdateGeometry(v *Values, g Geometry, theme Theme, props Props) error
	UpdateColors(v *Values, loc LocationIterator, theme ColorTheme)
	UpdateBoundingSphere(v *Values, g Geometry)
	CreateRenderableState(props Props) *RenderableState
	UpdateRenderableState(s *RenderableState, props Props)
}

// tessellation is the vertex data a kind produces for the renderer.
type tessellation struct {
	positions    []float32
	secondary    []float32
	elements     []uint32
	groups       []float32
	sizes        []float32
	uvs          []float32
	texture      TextureData
	drawCount    int
	vertexCount  int
	pixelSizes   bool
	colorTexture bool
}

type tessellateFunc func(g Geometry, groupSizes []float32, props Props) (tessellation, error)

type kindUtils struct {
	kind       Kind
	empty      func() Geometry
	tessellate tessellateFunc
}

var registry = map[Kind]Utils{}

func register(k Kind, empty func() Geometry, t tessellateFunc) {
	registry[k] = &kindUtils{kind: k, empty: empty, tessellate: t}
}

// UtilsFor returns the Utils of kind.
func UtilsFor(k Kind) (Utils, error) {
	u, ok := registry[k]
	if !ok {
		return nil, fmt.Errorf("utils for %v: %w", k, ErrUnknownKind)
	}
	return u, nil
}

func (u *kindUtils) Kind() Kind            { return u.kind }
func (u *kindUtils) CreateEmpty() Geometry { return u.empty() }

func (u *kindUtils) check(g Geometry) error {
	if g == nil || g.Kind() != u.kind {
		return fmt.Errorf("%v utils got geometry %v: %w", u.kind, kindOf(g), ErrUnknownKind)
	}
	return nil
}

func kindOf(g Geometry) string {
	if g == nil {
		return "<nil>"
	}
	return g.Kind().String()
}

func locationOf(g Geometry, td TransformData, t tessellation) LocationIterator {
	loc := NewLocationIterator(g.GroupCount(), td.InstanceCount())
	loc.VertexGroups = t.groups
	return loc
}

func (u *kindUtils) CreateValues(g Geometry, td TransformData, theme Theme, props Props) (*Values, error) {
	if err := u.check(g); err != nil {
		return nil, err
	}
	if len(td.Transforms) == 0 {
		td = NewTransformData()
	}
	groupSizes := CreateSizes(NewLocationIterator(g.GroupCount(), td.InstanceCount()), theme.Size)
	t, err := u.tessellate(g, groupSizes, props)
	if err != nil {
		return nil, fmt.Errorf("create %v values: %w", u.kind, err)
	}
	loc := locationOf(g, td, t)
	color := CreateColors(loc, theme.Color)
	color.Texture = t.colorTexture

	v := &Values{
		Kind:          u.kind,
		DrawCount:     values.NewCell(t.drawCount),
		VertexCount:   values.NewCell(t.vertexCount),
		GroupCount:    values.NewCell(g.GroupCount()),
		InstanceCount: values.NewCell(td.InstanceCount()),

		Positions: values.NewCell(t.positions),
		Secondary: values.NewCell(t.secondary),
		Elements:  values.NewCell(t.elements),
		Groups:    values.NewCell(t.groups),
		Sizes:     values.NewCell(t.sizes),
		UVs:       values.NewCell(t.uvs),
		Texture:   values.NewCell(t.texture),

		Transforms:              values.NewCell(td.Transforms),
		InvariantBoundingSphere: values.NewCell(core.EmptySphere()),
		BoundingSphere:          values.NewCell(core.EmptySphere()),
		InstanceSpheres:         values.NewCell([]core.Sphere3D(nil)),

		Color:         values.NewCell(color),
		Alpha:         values.NewCell(props.Alpha),
		Emissive:      values.NewCell(props.Emissive),
		Markers:       values.NewCell(make([]uint8, loc.GroupCount*loc.InstanceCount)),
		MarkerAverage: values.NewCell(float32(0)),

		SizeFactor:  values.NewCell(props.SizeFactor),
		PixelSizes:  values.NewCell(t.pixelSizes),
		DoubleSided: values.NewCell(props.DoubleSided),
		IgnoreLight: values.NewCell(props.IgnoreLight),
		IsoValue:    values.NewCell(props.IsoValue),
	}
	u.UpdateBoundingSphere(v, g)
	return v, nil
}

func (u *kindUtils) UpdateValues(v *Values, props Props) {
	values.UpdateIfChanged(v.Alpha, props.Alpha)
	values.UpdateIfChanged(v.Emissive, props.Emissive)
	values.UpdateIfChanged(v.SizeFactor, props.SizeFactor)
	values.UpdateIfChanged(v.DoubleSided, props.DoubleSided)
	values.UpdateIfChanged(v.IgnoreLight, props.IgnoreLight)
	values.UpdateIfChanged(v.IsoValue, props.IsoValue)
}

func (u *kindUtils) UpdateGeometry(v *Values, g Geometry, theme Theme, props Props) error {
	if err := u.check(g); err != nil {
		return err
	}
	td := TransformData{Transforms: v.Transforms.Get()}
	groupSizes := CreateSizes(NewLocationIterator(g.GroupCount(), td.InstanceCount()), theme.Size)
	t, err := u.tessellate(g, groupSizes, props)
	if err != nil {
		return fmt.Errorf("update %v geometry: %w", u.kind, err)
	}
	v.Positions.UpdateFunc(t.positions, slices.Equal[[]float32])
	v.Secondary.UpdateFunc(t.secondary, slices.Equal[[]float32])
	v.Elements.UpdateFunc(t.elements, slices.Equal[[]uint32])
	v.Groups.UpdateFunc(t.groups, slices.Equal[[]float32])
	v.Sizes.UpdateFunc(t.sizes, slices.Equal[[]float32])
	v.UVs.UpdateFunc(t.uvs, slices.Equal[[]float32])
	v.Texture.UpdateFunc(t.texture, func(a, b TextureData) bool {
		return a.Width == b.Width && a.Height == b.Height && slices.Equal(a.RGBA, b.RGBA)
	})
	values.UpdateIfChanged(v.DrawCount, t.drawCount)
	values.UpdateIfChanged(v.VertexCount, t.vertexCount)
	if values.UpdateIfChanged(v.GroupCount, g.GroupCount()) {
		v.Markers.Update(make([]uint8, g.GroupCount()*v.InstanceCount.Get()))
		v.MarkerAverage.Update(0)
	}
	u.UpdateColors(v, locationOf(g, td, t), theme.Color)
	u.UpdateValues(v, props)
	u.UpdateBoundingSphere(v, g)
	return nil
}

func (u *kindUtils) UpdateColors(v *Values, loc LocationIterator, theme ColorTheme) {
	next := CreateColors(loc, theme)
	next.Texture = v.Color.Get().Texture
	v.Color.UpdateFunc(next, func(a, b ColorData) bool {
		return a.Granularity == b.Granularity && a.Uniform == b.Uniform && a.Texture == b.Texture && slices.Equal(a.Data, b.Data)
	})
}

// UpdateBoundingSphere recomputes the invariant, per instance and total
// spheres; cells only move when a sphere changed.
func (u *kindUtils) UpdateBoundingSphere(v *Values, g Geometry) {
	UpdateTransformSpheres(v, g.BoundingSphere())
}

// UpdateTransformSpheres derives the instance and total spheres from the
// invariant sphere and the current transforms.
func UpdateTransformSpheres(v *Values, invariant core.Sphere3D) {
	v.InvariantBoundingSphere.UpdateFunc(invariant, core.Sphere3D.Equals)
	transforms := v.Transforms.Get()
	spheres := make([]core.Sphere3D, len(transforms))
	for i, m := range transforms {
		spheres[i] = invariant.Transform(m)
	}
	v.InstanceSpheres.UpdateFunc(spheres, func(a, b []core.Sphere3D) bool {
		return slices.EqualFunc(a, b, core.Sphere3D.Equals)
	})
	total := core.EmptySphere()
	if !invariant.IsEmpty() {
		total = core.BoundingSphereOf(spheres)
	}
	v.BoundingSphere.UpdateFunc(total, core.Sphere3D.Equals)
}

// SetTransforms replaces the instance transforms and resizes the markers.
func SetTransforms(v *Values, td TransformData) {
	v.Transforms.Update(td.Transforms)
	if values.UpdateIfChanged(v.InstanceCount, td.InstanceCount()) {
		v.Markers.Update(make([]uint8, v.GroupCount.Get()*td.InstanceCount()))
		v.MarkerAverage.Update(0)
	}
	UpdateTransformSpheres(v, v.InvariantBoundingSphere.Get())
}

func (u *kindUtils) CreateRenderableState(props Props) *RenderableState {
	s := &RenderableState{AlphaFactor: 1}
	u.UpdateRenderableState(s, props)
	return s
}

func (u *kindUtils) UpdateRenderableState(s *RenderableState, props Props) {
	s.Visible = props.Visible
	s.Pickable = props.Pickable
	s.ColorOnly = props.ColorOnly
	s.WriteDepth = props.WriteDepth
	s.Opaque = !u.kind.IsVolume() && props.Alpha*s.AlphaFactor >= 1
}
