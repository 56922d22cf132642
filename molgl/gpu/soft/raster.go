package soft

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// fragment is one covered pixel before shading.
type fragment struct {
	x, y   int
	depth  float32 // window depth in [0,1]
	viewZ  float32
	normal mgl32.Vec3
	group  int
	vertex int
	uv     mgl32.Vec2
}

// screenVertex is a vertex after projection and viewport mapping.
type screenVertex struct {
	x, y, depth float32
	viewZ       float32
}

type rasterizer struct {
	c         *Context
	call      *gpu.DrawCall
	inst      gpu.Instance
	modelView mgl32.Mat4
	x0, y0    int
	x1, y1    int
	scale     float32
}

func (c *Context) Draw(call *gpu.DrawCall) {
	if c.lost || call == nil || call.Primitives.Positions == nil {
		return
	}
	c.stats.DrawCalls++
	x0, y0, x1, y1 := c.bounds()
	if x0 >= x1 || y0 >= y1 {
		return
	}
	for _, inst := range call.Instances {
		c.stats.InstancesDrawn++
		r := rasterizer{
			c: c, call: call, inst: inst,
			modelView: call.View.Mul4(inst.Transform),
			x0: x0, y0: y0, x1: x1, y1: y1,
			scale:     core.MaxScaleOnAxis(inst.Transform),
		}
		switch call.Primitives.Topology {
		case gpu.TopologyTriangles:
			r.triangles()
		case gpu.TopologySpheres:
			r.spheres()
		case gpu.TopologySegments:
			r.segments()
		case gpu.TopologyPoints:
			r.points()
		}
	}
}

func floats(b gpu.Buffer) []float32 {
	if sb, ok := b.(*buffer); ok {
		return sb.data
	}
	return nil
}

func indices(b gpu.IndexBuffer) []uint32 {
	if sb, ok := b.(*indexBuffer); ok {
		return sb.data
	}
	return nil
}

func vec3At(data []float32, i int) (mgl32.Vec3, bool) {
	if i < 0 || i*3+2 >= len(data) {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{data[i*3], data[i*3+1], data[i*3+2]}, true
}

func scalarAt(data []float32, i int, fallback float32) float32 {
	if i < 0 || i >= len(data) {
		return fallback
	}
	return data[i]
}

func (r *rasterizer) project(view mgl32.Vec3) (screenVertex, bool) {
	clip := r.call.Projection.Mul4x1(view.Vec4(1))
	if clip.W() <= 1e-6 {
		return screenVertex{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	vp := r.c.viewport
	return screenVertex{
		x:     float32(vp.X) + (ndc.X()*0.5+0.5)*float32(vp.Width) + r.call.Jitter.X(),
		y:     float32(vp.Y) + (ndc.Y()*0.5+0.5)*float32(vp.Height) + r.call.Jitter.Y(),
		depth: ndc.Z()*0.5 + 0.5,
		viewZ: view.Z(),
	}, true
}

func (r *rasterizer) toView(p mgl32.Vec3) mgl32.Vec3 {
	return r.modelView.Mul4x1(p.Vec4(1)).Vec3()
}

// pixelRadius projects a view space radius at center to pixels.
func (r *rasterizer) pixelRadius(center mgl32.Vec3, sc screenVertex, radius float32) float32 {
	edge, ok := r.project(center.Add(mgl32.Vec3{0, radius, 0}))
	if !ok {
		return 0
	}
	return math32.Abs(edge.y - sc.y)
}

func edgeFn(ax, ay, bx, by, px, py float32) float32 {
	return (px-ax)*(by-ay) - (py-ay)*(bx-ax)
}

// fill rasterizes a screen space triangle and reports barycentric weights
// for every covered pixel center.
func (r *rasterizer) fill(a, b, c screenVertex, fn func(x, y int, w0, w1, w2 float32)) {
	area := edgeFn(a.x, a.y, b.x, b.y, c.x, c.y)
	if math32.Abs(area) < 1e-9 {
		return
	}
	minX := max(int(math32.Floor(min(a.x, b.x, c.x))), r.x0)
	maxX := min(int(math32.Ceil(max(a.x, b.x, c.x))), r.x1-1)
	minY := max(int(math32.Floor(min(a.y, b.y, c.y))), r.y0)
	maxY := min(int(math32.Ceil(max(a.y, b.y, c.y))), r.y1-1)
	const eps = -1e-6
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edgeFn(b.x, b.y, c.x, c.y, px, py) / area
			w1 := edgeFn(c.x, c.y, a.x, a.y, px, py) / area
			w2 := 1 - w0 - w1
			if w0 < eps || w1 < eps || w2 < eps {
				continue
			}
			fn(x, y, w0, w1, w2)
		}
	}
}

func (r *rasterizer) triangles() {
	p := r.call.Primitives
	pos := floats(p.Positions)
	groups := floats(p.Groups)
	uvs := floats(p.UVs)
	elements := indices(p.Elements)
	count := p.Count
	if p.Elements != nil {
		count = min(count, len(elements))
	} else {
		count = min(count, len(pos)/3)
	}
	vertexIndex := func(i int) int {
		if p.Elements != nil {
			return int(elements[i])
		}
		return i
	}
	for t := 0; t+2 < count; t += 3 {
		var idx [3]int
		var view [3]mgl32.Vec3
		var sv [3]screenVertex
		visible := true
		for k := 0; k < 3; k++ {
			idx[k] = vertexIndex(t + k)
			v, ok := vec3At(pos, idx[k])
			if !ok {
				visible = false
				break
			}
			view[k] = r.toView(v)
			if sv[k], ok = r.project(view[k]); !ok {
				visible = false
				break
			}
		}
		if !visible {
			continue
		}
		n := view[1].Sub(view[0]).Cross(view[2].Sub(view[0]))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		group := int(scalarAt(groups, idx[0], 0))
		r.fill(sv[0], sv[1], sv[2], func(x, y int, w0, w1, w2 float32) {
			f := fragment{
				x: x, y: y,
				depth:  sv[0].depth*w0 + sv[1].depth*w1 + sv[2].depth*w2,
				viewZ:  sv[0].viewZ*w0 + sv[1].viewZ*w1 + sv[2].viewZ*w2,
				normal: n,
				group:  group,
				vertex: idx[0],
			}
			if len(uvs) > 0 {
				var uv mgl32.Vec2
				for k, w := range [3]float32{w0, w1, w2} {
					if idx[k]*2+1 < len(uvs) {
						uv = uv.Add(mgl32.Vec2{uvs[idx[k]*2], uvs[idx[k]*2+1]}.Mul(w))
					}
				}
				f.uv = uv
			}
			r.c.writeFragment(r.call, r.inst.Index, f)
		})
	}
}

func (r *rasterizer) size(sizes []float32, i int) float32 {
	p := r.call.Primitives
	s := scalarAt(sizes, i, 1)
	if p.SizeFactor > 0 {
		s *= p.SizeFactor
	}
	if !p.PixelSizes {
		s *= r.scale
	}
	return s
}

func (r *rasterizer) spheres() {
	p := r.call.Primitives
	pos := floats(p.Positions)
	groups := floats(p.Groups)
	sizes := floats(p.Sizes)
	proj := r.call.Projection
	for i := 0; i < min(p.Count, len(pos)/3); i++ {
		c, _ := vec3At(pos, i)
		cv := r.toView(c)
		sc, ok := r.project(cv)
		if !ok {
			continue
		}
		radius := r.size(sizes, i)
		rpx := r.pixelRadius(cv, sc, radius)
		if rpx <= 0 {
			continue
		}
		group := int(scalarAt(groups, i, float32(i)))
		minX := max(int(math32.Floor(sc.x-rpx)), r.x0)
		maxX := min(int(math32.Ceil(sc.x+rpx)), r.x1-1)
		minY := max(int(math32.Floor(sc.y-rpx)), r.y0)
		maxY := min(int(math32.Ceil(sc.y+rpx)), r.y1-1)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				dx := (float32(x) + 0.5 - sc.x) / rpx
				dy := (float32(y) + 0.5 - sc.y) / rpx
				d2 := dx*dx + dy*dy
				if d2 > 1 {
					continue
				}
				nz := math32.Sqrt(1 - d2)
				surface := mgl32.Vec3{cv.X() + dx*radius, cv.Y() + dy*radius, cv.Z() + nz*radius}
				clip := proj.Mul4x1(surface.Vec4(1))
				if clip.W() <= 1e-6 {
					continue
				}
				r.c.writeFragment(r.call, r.inst.Index, fragment{
					x: x, y: y,
					depth:  clip.Z()/clip.W()*0.5 + 0.5,
					viewZ:  surface.Z(),
					normal: mgl32.Vec3{dx, dy, nz},
					group:  group,
					vertex: i,
				})
			}
		}
	}
}

func (r *rasterizer) segments() {
	p := r.call.Primitives
	starts := floats(p.Positions)
	ends := floats(p.Secondary)
	groups := floats(p.Groups)
	sizes := floats(p.Sizes)
	for i := 0; i < min(p.Count, len(starts)/3, len(ends)/3); i++ {
		a, _ := vec3At(starts, i)
		b, _ := vec3At(ends, i)
		av, bv := r.toView(a), r.toView(b)
		sa, okA := r.project(av)
		sb, okB := r.project(bv)
		if !okA || !okB {
			continue
		}
		width := r.size(sizes, i)
		wpx := width
		if !p.PixelSizes {
			mid := av.Add(bv).Mul(0.5)
			sm, ok := r.project(mid)
			if !ok {
				continue
			}
			wpx = r.pixelRadius(mid, sm, width)
		}
		wpx = max(wpx, 0.5)
		dx, dy := sb.x-sa.x, sb.y-sa.y
		l := math32.Sqrt(dx*dx + dy*dy)
		if l < 1e-6 {
			dx, dy, l = 1, 0, 1
		}
		nx, ny := -dy/l*wpx, dx/l*wpx
		group := int(scalarAt(groups, i, float32(i)))
		corner := func(s screenVertex, side float32) screenVertex {
			return screenVertex{x: s.x + nx*side, y: s.y + ny*side, depth: s.depth, viewZ: s.viewZ}
		}
		quad := [4]screenVertex{corner(sa, 1), corner(sa, -1), corner(sb, -1), corner(sb, 1)}
		sides := [4]float32{1, -1, -1, 1}
		for _, tri := range [2][3]int{{0, 1, 2}, {0, 2, 3}} {
			v0, v1, v2 := quad[tri[0]], quad[tri[1]], quad[tri[2]]
			s0, s1, s2 := sides[tri[0]], sides[tri[1]], sides[tri[2]]
			r.fill(v0, v1, v2, func(x, y int, w0, w1, w2 float32) {
				side := s0*w0 + s1*w1 + s2*w2
				nz := math32.Sqrt(max(0, 1-side*side))
				r.c.writeFragment(r.call, r.inst.Index, fragment{
					x: x, y: y,
					depth:  v0.depth*w0 + v1.depth*w1 + v2.depth*w2,
					viewZ:  v0.viewZ*w0 + v1.viewZ*w1 + v2.viewZ*w2,
					normal: mgl32.Vec3{side * nx / wpx, side * ny / wpx, nz},
					group:  group,
					vertex: i,
				})
			})
		}
	}
}

func (r *rasterizer) points() {
	p := r.call.Primitives
	pos := floats(p.Positions)
	groups := floats(p.Groups)
	sizes := floats(p.Sizes)
	for i := 0; i < min(p.Count, len(pos)/3); i++ {
		c, _ := vec3At(pos, i)
		cv := r.toView(c)
		sc, ok := r.project(cv)
		if !ok {
			continue
		}
		half := r.size(sizes, i) / 2
		if !p.PixelSizes {
			half = r.pixelRadius(cv, sc, half)
		}
		half = max(half, 0.5)
		group := int(scalarAt(groups, i, float32(i)))
		for y := max(int(math32.Floor(sc.y-half)), r.y0); y <= min(int(math32.Ceil(sc.y+half))-1, r.y1-1); y++ {
			for x := max(int(math32.Floor(sc.x-half)), r.x0); x <= min(int(math32.Ceil(sc.x+half))-1, r.x1-1); x++ {
				r.c.writeFragment(r.call, r.inst.Index, fragment{
					x: x, y: y,
					depth:  sc.depth,
					viewZ:  sc.viewZ,
					normal: mgl32.Vec3{0, 0, 1},
					group:  group,
					vertex: i,
				})
			}
		}
	}
}
