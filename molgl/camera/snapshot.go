package camera

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Mode int

const (
	Perspective Mode = iota
	Orthographic
)

func (m Mode) String() string {
	if m == Orthographic {
		return "orthographic"
	}
	return "perspective"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "perspective", "":
		return Perspective, nil
	case "orthographic":
		return Orthographic, nil
	}
	return 0, fmt.Errorf("unknown camera mode %q", s)
}

// Snapshot is the authoritative camera state. Matrices are derived from it
// by Camera.Update.
type Snapshot struct {
	Mode Mode

	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// Radius is the radius of the region of interest around Target.
	Radius float32
	// RadiusMax is the radius of the whole scene; it bounds the far plane
	// unless ClipFar is set.
	RadiusMax float32
	// FOV is the vertical field of view in radians.
	FOV float32
	// Fog is the fog depth in percent of the far range; 0 disables fog.
	Fog     float32
	ClipFar bool
	MinNear float32
}

func DefaultSnapshot() Snapshot {
	return Snapshot{
		Mode:      Perspective,
		Position:  mgl32.Vec3{0, 0, 100},
		Target:    mgl32.Vec3{},
		Up:        mgl32.Vec3{0, 1, 0},
		Radius:    0,
		RadiusMax: 10,
		FOV:       math32.Pi / 4,
		Fog:       50,
		ClipFar:   true,
		MinNear:   5,
	}
}

func (s Snapshot) Equals(o Snapshot) bool { return s == o }

// Direction is the unit vector from Target towards Position.
func (s Snapshot) Direction() mgl32.Vec3 {
	d := s.Position.Sub(s.Target)
	if d.Len() < 1e-6 {
		return mgl32.Vec3{0, 0, 1}
	}
	return d.Normalize()
}

func (s Snapshot) Distance() float32 { return s.Position.Sub(s.Target).Len() }

// interpolate blends a towards b by t in [0,1]. The view direction and up
// vector rotate along the shortest arc; scalars blend linearly.
func interpolate(a, b Snapshot, t float32) Snapshot {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	out := b
	out.Target = lerp3(a.Target, b.Target, t)
	dist := lerp(a.Distance(), b.Distance(), t)
	out.Position = out.Target.Add(slerpDir(a.Direction(), b.Direction(), t).Mul(dist))
	out.Up = slerpDir(safeNormalize(a.Up), safeNormalize(b.Up), t)
	out.Radius = lerp(a.Radius, b.Radius, t)
	out.RadiusMax = lerp(a.RadiusMax, b.RadiusMax, t)
	out.FOV = lerp(a.FOV, b.FOV, t)
	out.Fog = lerp(a.Fog, b.Fog, t)
	out.MinNear = lerp(a.MinNear, b.MinNear, t)
	return out
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func lerp3(a, b mgl32.Vec3, t float32) mgl32.Vec3 { return a.Add(b.Sub(a).Mul(t)) }

func slerpDir(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	if a.Dot(b) < -0.9999 {
		// opposite directions: rotate about any perpendicular axis
		axis := a.Cross(mgl32.Vec3{0, 1, 0})
		if axis.Len() < 1e-4 {
			axis = a.Cross(mgl32.Vec3{1, 0, 0})
		}
		return mgl32.QuatRotate(math32.Pi*t, axis.Normalize()).Rotate(a)
	}
	q := mgl32.QuatBetweenVectors(a, b)
	return mgl32.QuatSlerp(mgl32.QuatIdent(), q, t).Rotate(a).Normalize()
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-6 {
		return mgl32.Vec3{0, 1, 0}
	}
	return v.Normalize()
}

func tanHalf(fov float32) float32 { return math32.Tan(fov / 2) }
