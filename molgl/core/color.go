package core

import "github.com/go-gl/mathgl/mgl32"

// Color is packed 0xRRGGBB.
type Color uint32

func ColorFromRGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func ColorFromVec3(v mgl32.Vec3) Color {
	c := func(f float32) uint8 {
		return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
	}
	return ColorFromRGB(c(v[0]), c(v[1]), c(v[2]))
}

func (c Color) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{
		float32((c>>16)&0xff) / 255,
		float32((c>>8)&0xff) / 255,
		float32(c&0xff) / 255,
	}
}

func (c Color) Vec4(alpha float32) mgl32.Vec4 {
	return c.Vec3().Vec4(alpha)
}
