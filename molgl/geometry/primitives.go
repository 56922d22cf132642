package geometry

import (
	"fmt"

	"github.com/molcanvas/canvas3d/molgl/core"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// groupCountOf returns fallback when no groups were given.
func groupCountOf(groups []float32, fallback int) int {
	if len(groups) == 0 {
		return fallback
	}
	n := 0
	for _, g := range groups {
		n = max(n, int(g)+1)
	}
	return n
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
	// Groups holds the group id of every vertex.
	Groups []float32
}

func (m *Mesh) Kind() Kind         { return KindMesh }
func (m *Mesh) VertexCount() int   { return len(m.Vertices) / 3 }
func (m *Mesh) GroupCount() int    { return groupCountOf(m.Groups, 1) }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

func (m *Mesh) BoundingSphere() core.Sphere3D {
	return core.BoundingSphereOfPoints(m.Vertices, 0)
}

// Spheres are impostor spheres sized by the size theme.
type Spheres struct {
	Centers []float32
	Groups  []float32
	// Padding is the largest radius, used to pad the bounding sphere.
	Padding float32
}

func (s *Spheres) Kind() Kind       { return KindSpheres }
func (s *Spheres) VertexCount() int { return len(s.Centers) / 3 }
func (s *Spheres) GroupCount() int  { return groupCountOf(s.Groups, s.VertexCount()) }

func (s *Spheres) BoundingSphere() core.Sphere3D {
	return core.BoundingSphereOfPoints(s.Centers, s.Padding)
}

// Cylinders connect start and end points.
type Cylinders struct {
	Starts  []float32
	Ends    []float32
	Groups  []float32
	Padding float32
}

func (c *Cylinders) Kind() Kind       { return KindCylinders }
func (c *Cylinders) VertexCount() int { return len(c.Starts) / 3 }
func (c *Cylinders) GroupCount() int  { return groupCountOf(c.Groups, c.VertexCount()) }

func (c *Cylinders) BoundingSphere() core.Sphere3D {
	return core.BoundingSphereOfPoints(append(append([]float32(nil), c.Starts...), c.Ends...), c.Padding)
}

// Points are screen aligned squares with pixel sizes.
type Points struct {
	Centers []float32
	Groups  []float32
}

func (p *Points) Kind() Kind       { return KindPoints }
func (p *Points) VertexCount() int { return len(p.Centers) / 3 }
func (p *Points) GroupCount() int  { return groupCountOf(p.Groups, p.VertexCount()) }

func (p *Points) BoundingSphere() core.Sphere3D {
	return core.BoundingSphereOfPoints(p.Centers, 0)
}

// Lines are segments with pixel widths.
type Lines struct {
	Starts []float32
	Ends   []float32
	Groups []float32
}

func (l *Lines) Kind() Kind       { return KindLines }
func (l *Lines) VertexCount() int { return len(l.Starts) / 3 }
func (l *Lines) GroupCount() int  { return groupCountOf(l.Groups, l.VertexCount()) }

func (l *Lines) BoundingSphere() core.Sphere3D {
	return core.BoundingSphereOfPoints(append(append([]float32(nil), l.Starts...), l.Ends...), 0)
}

type Label struct {
	Position mgl32.Vec3
	Text     string
	Group    int
}

// Text renders labels with the default glyph atlas in the xy plane. The
// theme size is the em height of a label.
type Text struct {
	Labels []Label
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) VertexCount() int {
	atlas, err := DefaultGlyphAtlas()
	if err != nil {
		return 0
	}
	n := 0
	for _, l := range t.Labels {
		n += atlas.GlyphCount(l.Text) * 4
	}
	return n
}

func (t *Text) GroupCount() int {
	n := 0
	for _, l := range t.Labels {
		n = max(n, l.Group+1)
	}
	return n
}

func (t *Text) BoundingSphere() core.Sphere3D {
	atlas, err := DefaultGlyphAtlas()
	if err != nil {
		return core.EmptySphere()
	}
	pts := make([]float32, 0, len(t.Labels)*3)
	pad := float32(0)
	for _, l := range t.Labels {
		pts = append(pts, l.Position[:]...)
		w, h := atlas.Measure(l.Text, 1)
		pad = max(pad, w, h)
	}
	return core.BoundingSphereOfPoints(pts, pad)
}

// Image is a textured quad given by its four corners in counter clockwise
// order starting bottom left.
type Image struct {
	Corners [4]mgl32.Vec3
	Texture TextureData
}

func (i *Image) Kind() Kind       { return KindImage }
func (i *Image) VertexCount() int { return 4 }
func (i *Image) GroupCount() int  { return 1 }

func (i *Image) BoundingSphere() core.Sphere3D {
	pts := make([]float32, 0, 12)
	for _, c := range i.Corners {
		pts = append(pts, c[:]...)
	}
	return core.BoundingSphereOfPoints(pts, 0)
}

type VolumeFormat string

const (
	VolumeFloat32 VolumeFormat = "float32"
	VolumeUint8   VolumeFormat = "uint8"
)

// DirectVolume is a density grid rendered by splatting voxels above the
// iso value. Every voxel is its own group.
type DirectVolume struct {
	Dims     [3]int
	Origin   mgl32.Vec3
	CellSize mgl32.Vec3
	Format   VolumeFormat
	Data     []float32
}

// NewDirectVolume validates the grid and normalizes uint8 data to [0,1].
func NewDirectVolume(dims [3]int, origin, cellSize mgl32.Vec3, format string, raw []float32) (*DirectVolume, error) {
	n := dims[0] * dims[1] * dims[2]
	if n <= 0 || len(raw) < n {
		return nil, fmt.Errorf("create direct volume: grid %v needs %d values, got %d", dims, n, len(raw))
	}
	v := &DirectVolume{Dims: dims, Origin: origin, CellSize: cellSize, Format: VolumeFormat(format)}
	switch v.Format {
	case VolumeFloat32:
		v.Data = append([]float32(nil), raw[:n]...)
	case VolumeUint8:
		v.Data = make([]float32, n)
		for i := range v.Data {
			v.Data[i] = raw[i] / 255
		}
	default:
		return nil, fmt.Errorf("create direct volume with format %q: %w", format, ErrUnknownVolumeFormat)
	}
	return v, nil
}

func (v *DirectVolume) Kind() Kind       { return KindDirectVolume }
func (v *DirectVolume) VertexCount() int { return len(v.Data) }
func (v *DirectVolume) GroupCount() int  { return len(v.Data) }

func (v *DirectVolume) BoundingSphere() core.Sphere3D {
	ext := mgl32.Vec3{
		float32(v.Dims[0]) * v.CellSize[0],
		float32(v.Dims[1]) * v.CellSize[1],
		float32(v.Dims[2]) * v.CellSize[2],
	}
	return core.Sphere3D{Center: v.Origin.Add(ext.Mul(0.5)), Radius: ext.Len() / 2}
}

func (v *DirectVolume) voxelCenter(i int) mgl32.Vec3 {
	x := i % v.Dims[0]
	y := (i / v.Dims[0]) % v.Dims[1]
	z := i / (v.Dims[0] * v.Dims[1])
	return v.Origin.Add(mgl32.Vec3{
		(float32(x) + 0.5) * v.CellSize[0],
		(float32(y) + 0.5) * v.CellSize[1],
		(float32(z) + 0.5) * v.CellSize[2],
	})
}

func (v *DirectVolume) cellExtent() float32 {
	return math32.Max(v.CellSize[0], math32.Max(v.CellSize[1], v.CellSize[2]))
}
