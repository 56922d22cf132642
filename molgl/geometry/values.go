package geometry

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/values"

	"github.com/go-gl/mathgl/mgl32"
)

// TextureData is an RGBA float image.
type TextureData struct {
	Width, Height int
	RGBA          []float32
}

// ColorData is the output of CreateColors.
type ColorData struct {
	Granularity Granularity
	Uniform     mgl32.Vec3
	// Data holds rgb triplets addressed by Granularity.
	Data []float32
	// Texture samples colors from the image texture.
	Texture bool
}

// Values is the versioned GPU-bound value bag of one render object. Every
// field is an independent cell; the renderable uploads a field only when its
// version moved.
type Values struct {
	Kind Kind

	DrawCount     *values.Cell[int]
	VertexCount   *values.Cell[int]
	GroupCount    *values.Cell[int]
	InstanceCount *values.Cell[int]

	Positions *values.Cell[[]float32]
	Secondary *values.Cell[[]float32]
	Elements  *values.Cell[[]uint32]
	Groups    *values.Cell[[]float32]
	Sizes     *values.Cell[[]float32]
	UVs       *values.Cell[[]float32]
	Texture   *values.Cell[TextureData]

	Transforms              *values.Cell[[]mgl32.Mat4]
	InvariantBoundingSphere *values.Cell[core.Sphere3D]
	BoundingSphere          *values.Cell[core.Sphere3D]
	InstanceSpheres         *values.Cell[[]core.Sphere3D]

	Color         *values.Cell[ColorData]
	Alpha         *values.Cell[float32]
	Emissive      *values.Cell[float32]
	Markers       *values.Cell[[]uint8]
	MarkerAverage *values.Cell[float32]

	SizeFactor  *values.Cell[float32]
	PixelSizes  *values.Cell[bool]
	DoubleSided *values.Cell[bool]
	IgnoreLight *values.Cell[bool]
	IsoValue    *values.Cell[float32]
}

// GeometryCells are the cells whose change requires a buffer upload.
func (v *Values) GeometryCells() []values.Versioned {
	return []values.Versioned{v.Positions, v.Secondary, v.Elements, v.Groups, v.Sizes, v.UVs, v.Texture, v.DrawCount}
}

// Props are the appearance properties every kind understands.
type Props struct {
	Alpha       float32
	Emissive    float32
	SizeFactor  float32
	DoubleSided bool
	IgnoreLight bool
	IsoValue    float32

	Visible   bool
	Pickable  bool
	ColorOnly bool
	// WriteDepth forces depth writes for transparent objects.
	WriteDepth bool
}

func DefaultProps() Props {
	return Props{
		Alpha:      1,
		SizeFactor: 1,
		IsoValue:   0.5,
		Visible:    true,
		Pickable:   true,
	}
}

// RenderableState is the per-object render state owned by the collaborator
// that created the object.
type RenderableState struct {
	Visible     bool
	Pickable    bool
	ColorOnly   bool
	AlphaFactor float32
	Opaque      bool
	WriteDepth  bool
	NoClip      bool
	Disposed    bool
}
