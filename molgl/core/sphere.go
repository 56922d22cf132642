package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Sphere3D is a bounding sphere. A zero radius sphere is considered empty.
type Sphere3D struct {
	Center mgl32.Vec3
	Radius float32
}

func EmptySphere() Sphere3D {
	return Sphere3D{}
}

func (s Sphere3D) IsEmpty() bool {
	return s.Radius <= 0
}

// Overlaps reports whether the two spheres intersect or touch.
func (s Sphere3D) Overlaps(b Sphere3D) bool {
	return s.Center.Sub(b.Center).Len() <= s.Radius+b.Radius
}

// Includes reports whether b lies completely inside s.
func (s Sphere3D) Includes(b Sphere3D) bool {
	const eps = 1e-4
	return s.Center.Sub(b.Center).Len()+b.Radius <= s.Radius*(1+eps)+eps
}

func (s Sphere3D) Expand(delta float32) Sphere3D {
	return Sphere3D{Center: s.Center, Radius: s.Radius + delta}
}

func (s Sphere3D) Equals(b Sphere3D) bool {
	return s.Radius == b.Radius && s.Center == b.Center
}

// Transform maps the sphere by m, scaling the radius by the largest axis scale.
func (s Sphere3D) Transform(m mgl32.Mat4) Sphere3D {
	return Sphere3D{
		Center: mgl32.TransformCoordinate(s.Center, m),
		Radius: s.Radius * MaxScaleOnAxis(m),
	}
}

func (s Sphere3D) Box() Box3D {
	r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	return Box3D{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// MaxScaleOnAxis returns the largest scale factor of the upper 3x3 part of m.
func MaxScaleOnAxis(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().LenSqr()
	sy := m.Col(1).Vec3().LenSqr()
	sz := m.Col(2).Vec3().LenSqr()
	return math32.Sqrt(math32.Max(sx, math32.Max(sy, sz)))
}

// boundary directions: the three axes, the six face diagonals and the four
// space diagonals.
var boundaryDirections = func() []mgl32.Vec3 {
	dirs := []mgl32.Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{1, 1, 0}, {1, -1, 0}, {1, 0, 1}, {1, 0, -1}, {0, 1, 1}, {0, 1, -1},
		{1, 1, 1}, {-1, 1, 1}, {1, -1, 1}, {1, 1, -1},
	}
	for i := range dirs {
		dirs[i] = dirs[i].Normalize()
	}
	return dirs
}()

// BoundaryHelper computes a bounding sphere for a set of spheres in two
// passes. The first pass (IncludeSphere) records extrema along fixed
// directions, FinishedIncludeStep picks the widest pair as the initial
// sphere, and the second pass (RadiusSphere) grows the radius until every
// input is enclosed.
type BoundaryHelper struct {
	minDist   []float32
	maxDist   []float32
	minSphere []Sphere3D
	maxSphere []Sphere3D
	center    mgl32.Vec3
	radius    float32
	count     int
}

func NewBoundaryHelper() *BoundaryHelper {
	n := len(boundaryDirections)
	h := &BoundaryHelper{
		minDist:   make([]float32, n),
		maxDist:   make([]float32, n),
		minSphere: make([]Sphere3D, n),
		maxSphere: make([]Sphere3D, n),
	}
	h.Reset()
	return h
}

func (h *BoundaryHelper) Reset() {
	for i := range h.minDist {
		h.minDist[i] = math32.Inf(1)
		h.maxDist[i] = math32.Inf(-1)
	}
	h.center = mgl32.Vec3{}
	h.radius = 0
	h.count = 0
}

func (h *BoundaryHelper) IncludeSphere(s Sphere3D) {
	for i, d := range boundaryDirections {
		p := s.Center.Dot(d)
		if p-s.Radius < h.minDist[i] {
			h.minDist[i] = p - s.Radius
			h.minSphere[i] = s
		}
		if p+s.Radius > h.maxDist[i] {
			h.maxDist[i] = p + s.Radius
			h.maxSphere[i] = s
		}
	}
	h.count++
}

func (h *BoundaryHelper) IncludePoint(p mgl32.Vec3) {
	h.IncludeSphere(Sphere3D{Center: p})
}

func (h *BoundaryHelper) FinishedIncludeStep() {
	if h.count == 0 {
		return
	}
	best := 0
	for i := range boundaryDirections {
		if h.maxDist[i]-h.minDist[i] > h.maxDist[best]-h.minDist[best] {
			best = i
		}
	}
	d := boundaryDirections[best]
	p1 := h.minSphere[best].Center.Sub(d.Mul(h.minSphere[best].Radius))
	p2 := h.maxSphere[best].Center.Add(d.Mul(h.maxSphere[best].Radius))
	h.center = p1.Add(p2).Mul(0.5)
	h.radius = p2.Sub(p1).Len() / 2
}

func (h *BoundaryHelper) RadiusSphere(s Sphere3D) {
	d := s.Center.Sub(h.center).Len() + s.Radius
	if d > h.radius {
		h.radius = d
	}
}

func (h *BoundaryHelper) RadiusPoint(p mgl32.Vec3) {
	h.RadiusSphere(Sphere3D{Center: p})
}

func (h *BoundaryHelper) Sphere() Sphere3D {
	if h.count == 0 {
		return EmptySphere()
	}
	return Sphere3D{Center: h.center, Radius: h.radius}
}

// BoundingSphereOf returns a sphere enclosing all given spheres.
func BoundingSphereOf(spheres []Sphere3D) Sphere3D {
	if len(spheres) == 0 {
		return EmptySphere()
	}
	h := NewBoundaryHelper()
	for _, s := range spheres {
		h.IncludeSphere(s)
	}
	h.FinishedIncludeStep()
	for _, s := range spheres {
		h.RadiusSphere(s)
	}
	return h.Sphere()
}

// BoundingSphereOfPoints returns a sphere enclosing the xyz triples in
// positions, each padded by pad.
func BoundingSphereOfPoints(positions []float32, pad float32) Sphere3D {
	n := len(positions) / 3
	if n == 0 {
		return EmptySphere()
	}
	h := NewBoundaryHelper()
	for i := 0; i < n; i++ {
		h.IncludeSphere(Sphere3D{Center: mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}, Radius: pad})
	}
	h.FinishedIncludeStep()
	for i := 0; i < n; i++ {
		h.RadiusSphere(Sphere3D{Center: mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}, Radius: pad})
	}
	return h.Sphere()
}
