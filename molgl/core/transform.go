package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed pose composed as translate * rotate * scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// WithUniformScale returns t scaled by s on every axis.
func (t Transform) WithUniformScale(s float32) Transform {
	t.Scale = mgl32.Vec3{s, s, s}
	return t
}

func (t Transform) Matrix() mgl32.Mat4 {
	p, s := t.Position, t.Scale
	return mgl32.Translate3D(p.X(), p.Y(), p.Z()).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s.X(), s.Y(), s.Z()))
}

// Inverse composes the inverted parts in reverse order. A zero scale axis
// yields a non-finite matrix.
func (t Transform) Inverse() mgl32.Mat4 {
	p, s := t.Position, t.Scale
	return mgl32.Scale3D(1/s.X(), 1/s.Y(), 1/s.Z()).
		Mul4(t.Rotation.Normalize().Conjugate().Mat4()).
		Mul4(mgl32.Translate3D(-p.X(), -p.Y(), -p.Z()))
}
