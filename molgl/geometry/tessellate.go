package geometry

import (
	"fmt"
)

func init() {
	register(KindMesh, func() Geometry { return &Mesh{} }, tessellateMesh)
	register(KindSpheres, func() Geometry { return &Spheres{} }, tessellateSpheres)
	register(KindCylinders, func() Geometry { return &Cylinders{} }, tessellateCylinders)
	register(KindPoints, func() Geometry { return &Points{} }, tessellatePoints)
	register(KindLines, func() Geometry { return &Lines{} }, tessellateLines)
	register(KindText, func() Geometry { return &Text{} }, tessellateText)
	register(KindImage, func() Geometry { return &Image{} }, tessellateImage)
	register(KindDirectVolume, func() Geometry {
		return &DirectVolume{Format: VolumeFloat32}
	}, tessellateDirectVolume)
}

func sizesByGroup(groups []float32, groupSizes []float32, count int) []float32 {
	sizes := make([]float32, count)
	for i := range sizes {
		g := i
		if i < len(groups) {
			g = int(groups[i])
		}
		sizes[i] = 1
		if g >= 0 && g < len(groupSizes) {
			sizes[i] = groupSizes[g]
		}
	}
	return sizes
}

func defaultGroups(groups []float32, count int) []float32 {
	if len(groups) >= count {
		return groups[:count]
	}
	out := make([]float32, count)
	copy(out, groups)
	for i := len(groups); i < count; i++ {
		out[i] = float32(i)
	}
	return out
}

func tessellateMesh(g Geometry, _ []float32, _ Props) (tessellation, error) {
	m := g.(*Mesh)
	for _, i := range m.Indices {
		if int(i) >= m.VertexCount() {
			return tessellation{}, fmt.Errorf("mesh index %d out of %d vertices", i, m.VertexCount())
		}
	}
	return tessellation{
		positions:   m.Vertices,
		elements:    m.Indices,
		groups:      make([]float32, m.VertexCount()),
		drawCount:   len(m.Indices),
		vertexCount: m.VertexCount(),
	}.withGroups(m.Groups), nil
}

func (t tessellation) withGroups(groups []float32) tessellation {
	copy(t.groups, groups)
	return t
}

func tessellateSpheres(g Geometry, groupSizes []float32, _ Props) (tessellation, error) {
	s := g.(*Spheres)
	n := s.VertexCount()
	groups := defaultGroups(s.Groups, n)
	return tessellation{
		positions:   s.Centers[:n*3],
		groups:      groups,
		sizes:       sizesByGroup(groups, groupSizes, n),
		drawCount:   n,
		vertexCount: n,
	}, nil
}

func tessellateCylinders(g Geometry, groupSizes []float32, _ Props) (tessellation, error) {
	c := g.(*Cylinders)
	n := min(len(c.Starts), len(c.Ends)) / 3
	groups := defaultGroups(c.Groups, n)
	return tessellation{
		positions:   c.Starts[:n*3],
		secondary:   c.Ends[:n*3],
		groups:      groups,
		sizes:       sizesByGroup(groups, groupSizes, n),
		drawCount:   n,
		vertexCount: n,
	}, nil
}

func tessellatePoints(g Geometry, groupSizes []float32, _ Props) (tessellation, error) {
	p := g.(*Points)
	n := p.VertexCount()
	groups := defaultGroups(p.Groups, n)
	return tessellation{
		positions:   p.Centers[:n*3],
		groups:      groups,
		sizes:       sizesByGroup(groups, groupSizes, n),
		drawCount:   n,
		vertexCount: n,
		pixelSizes:  true,
	}, nil
}

func tessellateLines(g Geometry, groupSizes []float32, _ Props) (tessellation, error) {
	l := g.(*Lines)
	n := min(len(l.Starts), len(l.Ends)) / 3
	groups := defaultGroups(l.Groups, n)
	return tessellation{
		positions:   l.Starts[:n*3],
		secondary:   l.Ends[:n*3],
		groups:      groups,
		sizes:       sizesByGroup(groups, groupSizes, n),
		drawCount:   n,
		vertexCount: n,
		pixelSizes:  true,
	}, nil
}

// tessellateText lays out one quad per glyph in the xy plane with the
// label position on the baseline. Colors come from the theme; the atlas
// only masks coverage.
func tessellateText(g Geometry, groupSizes []float32, props Props) (tessellation, error) {
	txt := g.(*Text)
	atlas, err := DefaultGlyphAtlas()
	if err != nil {
		return tessellation{}, err
	}
	var t tessellation
	for _, l := range txt.Labels {
		size := float32(1)
		if l.Group >= 0 && l.Group < len(groupSizes) {
			size = groupSizes[l.Group]
		}
		size *= props.SizeFactor
		p := l.Position
		for _, q := range atlas.layout(l.Text, size) {
			base := uint32(len(t.groups))
			corners := [4][2]float32{{q.x0, q.y0}, {q.x1, q.y0}, {q.x1, q.y1}, {q.x0, q.y1}}
			for _, c := range corners {
				t.positions = append(t.positions, p[0]+c[0], p[1]+c[1], p[2])
				t.groups = append(t.groups, float32(l.Group))
			}
			// atlas rows run top down
			t.uvs = append(t.uvs,
				q.uv[0][0], q.uv[1][1],
				q.uv[1][0], q.uv[1][1],
				q.uv[1][0], q.uv[0][1],
				q.uv[0][0], q.uv[0][1],
			)
			t.elements = append(t.elements, base, base+1, base+2, base, base+2, base+3)
		}
	}
	t.texture = atlas.Texture
	t.drawCount = len(t.elements)
	t.vertexCount = len(t.groups)
	return t, nil
}

func tessellateImage(g Geometry, _ []float32, _ Props) (tessellation, error) {
	img := g.(*Image)
	if n := img.Texture.Width * img.Texture.Height * 4; len(img.Texture.RGBA) < n {
		return tessellation{}, fmt.Errorf("image texture %dx%d needs %d values, got %d",
			img.Texture.Width, img.Texture.Height, n, len(img.Texture.RGBA))
	}
	var t tessellation
	for _, c := range img.Corners {
		t.positions = append(t.positions, c[:]...)
	}
	t.uvs = []float32{0, 0, 1, 0, 1, 1, 0, 1}
	t.elements = []uint32{0, 1, 2, 0, 2, 3}
	t.groups = make([]float32, 4)
	t.texture = img.Texture
	t.drawCount = 6
	t.vertexCount = 4
	t.colorTexture = true
	return t, nil
}

// tessellateDirectVolume splats every voxel at or above the iso value.
func tessellateDirectVolume(g Geometry, _ []float32, props Props) (tessellation, error) {
	v := g.(*DirectVolume)
	if v.Format != VolumeFloat32 && v.Format != VolumeUint8 {
		return tessellation{}, fmt.Errorf("volume format %q: %w", v.Format, ErrUnknownVolumeFormat)
	}
	var t tessellation
	size := v.cellExtent()
	for i, d := range v.Data {
		if d < props.IsoValue {
			continue
		}
		c := v.voxelCenter(i)
		t.positions = append(t.positions, c[:]...)
		t.groups = append(t.groups, float32(i))
		t.sizes = append(t.sizes, size)
	}
	t.drawCount = len(t.groups)
	t.vertexCount = len(v.Data)
	return t, nil
}
