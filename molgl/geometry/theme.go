package geometry

import (
	"github.com/molcanvas/canvas3d/molgl/core"

	"github.com/go-gl/mathgl/mgl32"
)

type Granularity int

const (
	GranularityUniform Granularity = iota
	GranularityInstance
	GranularityGroup
	GranularityGroupInstance
	GranularityVertex
	GranularityVertexInstance
	GranularityVolume
	GranularityVolumeInstance
)

// IsVertexBased reports whether values of the granularity are baked per
// vertex or voxel.
func (g Granularity) IsVertexBased() bool {
	switch g {
	case GranularityVertex, GranularityVertexInstance, GranularityVolume, GranularityVolumeInstance:
		return true
	}
	return false
}

// Location addresses one element a theme is evaluated for.
type Location struct {
	Instance int
	Group    int
	Vertex   int
}

// LocationIterator describes the element space of one object.
type LocationIterator struct {
	GroupCount    int
	InstanceCount int
	// VertexGroups maps vertex index to group; nil when the kind has no
	// per-vertex data.
	VertexGroups []float32
}

func NewLocationIterator(groupCount, instanceCount int) LocationIterator {
	return LocationIterator{GroupCount: max(groupCount, 0), InstanceCount: max(instanceCount, 1)}
}

type ColorTheme struct {
	Name        string
	Granularity Granularity
	Uniform     core.Color
	Color       func(Location) core.Color
}

type SizeTheme struct {
	Name        string
	Granularity Granularity
	Uniform     float32
	Size        func(Location) float32
}

type Theme struct {
	Color ColorTheme
	Size  SizeTheme
}

func UniformTheme(c core.Color, size float32) Theme {
	return Theme{
		Color: ColorTheme{Name: "uniform", Granularity: GranularityUniform, Uniform: c},
		Size:  SizeTheme{Name: "uniform", Granularity: GranularityUniform, Uniform: size},
	}
}

func (t ColorTheme) at(l Location) mgl32.Vec3 {
	if t.Color == nil {
		return t.Uniform.Vec3()
	}
	return t.Color(l).Vec3()
}

func (t SizeTheme) at(l Location) float32 {
	if t.Size == nil {
		if t.Uniform <= 0 {
			return 1
		}
		return t.Uniform
	}
	return t.Size(l)
}

// CreateColors evaluates theme over the elements its granularity addresses.
func CreateColors(loc LocationIterator, theme ColorTheme) ColorData {
	cd := ColorData{Granularity: theme.Granularity, Uniform: theme.Uniform.Vec3()}
	push := func(l Location) {
		c := theme.at(l)
		cd.Data = append(cd.Data, c[0], c[1], c[2])
	}
	switch theme.Granularity {
	case GranularityUniform:
		cd.Uniform = theme.at(Location{})
	case GranularityInstance:
		for i := 0; i < loc.InstanceCount; i++ {
			push(Location{Instance: i})
		}
	case GranularityGroup, GranularityVolume:
		for g := 0; g < loc.GroupCount; g++ {
			push(Location{Group: g})
		}
	case GranularityGroupInstance, GranularityVolumeInstance:
		for i := 0; i < loc.InstanceCount; i++ {
			for g := 0; g < loc.GroupCount; g++ {
				push(Location{Instance: i, Group: g})
			}
		}
	case GranularityVertex, GranularityVertexInstance:
		for v, g := range loc.VertexGroups {
			push(Location{Group: int(g), Vertex: v})
		}
	}
	return cd
}

// CreateSizes evaluates the size theme per group. Instance dependent
// granularities use the first instance.
func CreateSizes(loc LocationIterator, theme SizeTheme) []float32 {
	sizes := make([]float32, loc.GroupCount)
	for g := range sizes {
		sizes[g] = theme.at(Location{Group: g})
	}
	return sizes
}

// ThemeChangeRequiresGeometry reports whether switching from old to next
// needs the geometry of kind to be recreated instead of recoloring in place.
func ThemeChangeRequiresGeometry(kind Kind, old, next Theme) bool {
	if old.Color.Granularity.IsVertexBased() != next.Color.Granularity.IsVertexBased() {
		return true
	}
	sizeChanged := old.Size.Name != next.Size.Name || old.Size.Granularity != next.Size.Granularity || old.Size.Uniform != next.Size.Uniform
	if !sizeChanged {
		return false
	}
	// sizes are baked into vertex positions for these kinds
	switch kind {
	case KindMesh, KindText, KindDirectVolume:
		return true
	}
	return false
}
