package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Box3D struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b Box3D) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box3D) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Frustum holds the planes Left, Right, Bottom, Top, Near, Far in
// Ax+By+Cz+D=0 form with normals pointing inside.
type Frustum [6]mgl32.Vec4

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var planes Frustum

	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0)
	planes[1] = r3.Sub(r0)
	planes[2] = r3.Add(r1)
	planes[3] = r3.Sub(r1)
	// OpenGL-style -1..1 depth
	planes[4] = r3.Add(r2)
	planes[5] = r3.Sub(r2)

	for i := 0; i < 6; i++ {
		length := math32.Sqrt(planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2])
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}

	return planes
}

// AABBInFrustum checks if an AABB is visible within the frustum.
func (f Frustum) AABBInFrustum(aabb Box3D) bool {
	for i := 0; i < 6; i++ {
		plane := f[i]
		// most inside corner; if it is behind the plane the whole box is
		var p mgl32.Vec3
		for k := 0; k < 3; k++ {
			if plane[k] > 0 {
				p[k] = aabb.Max[k]
			} else {
				p[k] = aabb.Min[k]
			}
		}
		dist := plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3]
		if dist < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) SphereInFrustum(s Sphere3D) bool {
	for i := 0; i < 6; i++ {
		p := f[i]
		if p[0]*s.Center[0]+p[1]*s.Center[1]+p[2]*s.Center[2]+p[3] < -s.Radius {
			return false
		}
	}
	return true
}
