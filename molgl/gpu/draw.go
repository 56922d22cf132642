package gpu

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Topology int

const (
	TopologyTriangles Topology = iota
	// TopologySpheres draws one ray-cast sphere impostor per position.
	TopologySpheres
	// TopologySegments draws one cylinder or line per position/secondary pair.
	TopologySegments
	TopologyPoints
)

// Primitives references the vertex streams of one renderable.
type Primitives struct {
	Topology  Topology
	Positions Buffer      // xyz per vertex or per primitive
	Secondary Buffer      // xyz segment end points
	Elements  IndexBuffer // optional triangle indices
	Groups    Buffer      // group id per vertex (triangles) or per primitive
	Sizes     Buffer      // radius or width per primitive
	UVs       Buffer      // uv per vertex, sampled from Texture
	Texture   Texture
	// Count is the number of vertices, indices or primitives to draw.
	Count      int
	SizeFactor float32
	// PixelSizes interprets Sizes as pixels instead of world units.
	PixelSizes bool
}

type ColorType int

const (
	ColorUniform ColorType = iota
	ColorInstance
	ColorGroup
	ColorGroupInstance
	ColorVertex
	ColorTexture
)

type Material struct {
	ColorType ColorType
	Color     mgl32.Vec3
	Colors    Buffer // rgb triplets addressed by ColorType
	// Markers holds one marker value per instance and group.
	Markers     Buffer
	Alpha       float32
	Emissive    float32
	IgnoreLight bool
	DoubleSided bool
}

type Variant int

const (
	VariantColor Variant = iota
	VariantPick
	VariantDepth
	VariantMarkingDepth
	VariantMarkingMask
	VariantEmissive
	VariantTracing
)

func (v Variant) String() string {
	switch v {
	case VariantColor:
		return "color"
	case VariantPick:
		return "pick"
	case VariantDepth:
		return "depth"
	case VariantMarkingDepth:
		return "markingDepth"
	case VariantMarkingMask:
		return "markingMask"
	case VariantEmissive:
		return "emissive"
	case VariantTracing:
		return "tracing"
	}
	return "unknown"
}

type Instance struct {
	Index     int
	Transform mgl32.Mat4
}

type Light struct {
	Direction mgl32.Vec3 // view space, pointing towards the light
	Ambient   float32
}

type Marking struct {
	// InColor applies highlight and select tints while shading.
	InColor           bool
	HighlightColor    mgl32.Vec3
	SelectColor       mgl32.Vec3
	HighlightStrength float32
	SelectStrength    float32
}

type Fog struct {
	Enabled   bool
	Near, Far float32
	Color     mgl32.Vec3
}

// DrawCall renders the given instances of one renderable.
type DrawCall struct {
	ObjectID   int
	GroupCount int
	Primitives Primitives
	Material   Material
	Instances  []Instance

	View       mgl32.Mat4
	Projection mgl32.Mat4
	// Jitter offsets the rasterization in pixels.
	Jitter mgl32.Vec2

	Variant Variant
	Light   Light
	Marking Marking
	Fog     Fog

	PickingAlphaThreshold float32
	// DepthTexture discards fragments behind the depth buffer of the target.
	DepthTexture RenderTarget
	// PeelDepth discards fragments at or in front of the previous peel layer.
	PeelDepth RenderTarget
}

type FullscreenOp int

const (
	// OpCopy writes Source*Weight.
	OpCopy FullscreenOp = iota
	OpWboitResolve
	// OpOutline draws Color where the depth of Source is discontinuous.
	OpOutline
	// OpOcclusion darkens pixels surrounded by nearer depth.
	OpOcclusion
	// OpMarkingEdge draws highlight (Color) and select (SecondColor) edges
	// around the marking mask in Source.
	OpMarkingEdge
	// OpHiZDownsample writes the max depth of each source footprint.
	OpHiZDownsample
	// OpAddEmissive adds a blurred Source scaled by Strength.
	OpAddEmissive
)

// FullscreenPass runs Op over the viewport of the bound target.
type FullscreenPass struct {
	Op         FullscreenOp
	Source     RenderTarget
	Attachment int
	// UseDepth samples the depth buffer of Source instead of a color attachment.
	UseDepth bool
	Blend    BlendMode

	Weight      float32
	Color       mgl32.Vec3
	SecondColor mgl32.Vec3
	Strength    float32
	Threshold   float32
	Radius      int
}
