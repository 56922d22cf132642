package soft

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	depthEpsilon = 1e-5
	// coverageCutoff discards masked fragments below this texture alpha.
	coverageCutoff = 0.5
)

// sampleDepth reads the depth buffer of t at the pixel matching (x, y) of
// the bound target.
func (c *Context) sampleDepth(t gpu.RenderTarget, x, y int) float32 {
	st := c.targetOf(t)
	if st.w == c.bound.w && st.h == c.bound.h {
		return st.depthAt(x, y)
	}
	return st.depthAt(x*st.w/c.bound.w, y*st.h/c.bound.h)
}

func (c *Context) markerAt(call *gpu.DrawCall, instance, group int) uint8 {
	data := floats(call.Material.Markers)
	if len(data) == 0 {
		return 0
	}
	return uint8(scalarAt(data, instance*max(call.GroupCount, 1)+group, 0))
}

func (c *Context) baseColor(call *gpu.DrawCall, instance int, f fragment) (mgl32.Vec3, float32) {
	m := call.Material
	data := floats(m.Colors)
	alpha := m.Alpha
	var (
		col mgl32.Vec3
		ok  bool
	)
	switch m.ColorType {
	case gpu.ColorInstance:
		col, ok = vec3At(data, instance)
	case gpu.ColorGroup:
		col, ok = vec3At(data, f.group)
	case gpu.ColorGroupInstance:
		col, ok = vec3At(data, instance*max(call.GroupCount, 1)+f.group)
	case gpu.ColorVertex:
		col, ok = vec3At(data, f.vertex)
	case gpu.ColorTexture:
		if tex, isSoft := call.Primitives.Texture.(*texture); isSoft {
			s := tex.sample(f.uv.X(), f.uv.Y())
			col, ok = mgl32.Vec3{s[0], s[1], s[2]}, true
			alpha *= s[3]
		}
	}
	if !ok {
		col = m.Color
	}
	return col, alpha
}

// coverage is the texture alpha of calls whose color does not come from
// their texture, such as glyph quads. Calls without a texture return 1.
func coverage(call *gpu.DrawCall, f fragment) float32 {
	if call.Material.ColorType == gpu.ColorTexture {
		return 1
	}
	tex, isSoft := call.Primitives.Texture.(*texture)
	if !isSoft {
		return 1
	}
	return tex.sample(f.uv.X(), f.uv.Y())[3]
}

func (c *Context) lit(call *gpu.DrawCall, col mgl32.Vec3, n mgl32.Vec3) mgl32.Vec3 {
	if call.Material.IgnoreLight {
		return col
	}
	if n.Z() < 0 {
		n = n.Mul(-1)
	}
	l := call.Light.Direction
	if l.Len() == 0 {
		l = mgl32.Vec3{0, 0, 1}
	}
	diffuse := max(0, n.Dot(l.Normalize()))
	ambient := call.Light.Ambient
	return col.Mul(ambient + (1-ambient)*diffuse)
}

func mix(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func smoothstep(e0, e1, x float32) float32 {
	if e1 <= e0 {
		return 0
	}
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// writeFragment shades f for the call variant, applies depth discards and
// tests, and blends the result into the bound target.
func (c *Context) writeFragment(call *gpu.DrawCall, instance int, f fragment) {
	t := c.bound
	if f.depth < 0 || f.depth > 1 || coverage(call, f) < coverageCutoff {
		return
	}
	if call.DepthTexture != nil && f.depth > c.sampleDepth(call.DepthTexture, f.x, f.y)+depthEpsilon {
		return
	}
	if call.PeelDepth != nil && f.depth <= c.sampleDepth(call.PeelDepth, f.x, f.y)+depthEpsilon {
		return
	}
	i := t.index(f.x, f.y)
	if c.state.DepthTest && t.depth != nil && f.depth > t.depth[i] {
		return
	}

	marker := c.markerAt(call, instance, f.group)
	var out [4]mgl32.Vec4
	n := 1

	switch call.Variant {
	case gpu.VariantPick:
		_, alpha := c.baseColor(call, instance, f)
		if alpha < call.PickingAlphaThreshold {
			return
		}
		for k, v := range []int{call.ObjectID, instance, f.group} {
			rgb := core.PackIntToRGB(v)
			out[k] = mgl32.Vec4{rgb[0], rgb[1], rgb[2], 1}
		}
		d := core.PackDepth(f.depth)
		out[3] = mgl32.Vec4{d[0], d[1], d[2], 1}
		n = 4
	case gpu.VariantDepth:
		d := core.PackDepth(f.depth)
		out[0] = mgl32.Vec4{d[0], d[1], d[2], 1}
	case gpu.VariantMarkingDepth:
		if marker != 0 {
			return
		}
		d := core.PackDepth(f.depth)
		out[0] = mgl32.Vec4{d[0], d[1], d[2], 1}
	case gpu.VariantMarkingMask:
		if marker == 0 {
			return
		}
		out[0] = mgl32.Vec4{float32(marker & 1), float32(marker >> 1 & 1), 0, 1}
	case gpu.VariantEmissive:
		col, _ := c.baseColor(call, instance, f)
		e := call.Material.Emissive
		out[0] = col.Mul(e).Vec4(1)
	default:
		col, alpha := c.baseColor(call, instance, f)
		col = c.lit(call, col, f.normal)
		if call.Marking.InColor && call.Variant == gpu.VariantColor {
			if marker&2 != 0 {
				col = mix(col, call.Marking.SelectColor, call.Marking.SelectStrength)
			}
			if marker&1 != 0 {
				col = mix(col, call.Marking.HighlightColor, call.Marking.HighlightStrength)
			}
		}
		col = col.Add(col.Mul(call.Material.Emissive))
		if call.Fog.Enabled {
			col = mix(col, call.Fog.Color, smoothstep(call.Fog.Near, call.Fog.Far, -f.viewZ))
		}
		out[0] = col.Vec4(alpha)
	}

	if c.state.DepthWrite && t.depth != nil {
		t.depth[i] = f.depth
	}
	if !c.state.ColorWrite {
		return
	}
	if c.state.Blend == gpu.BlendWboit {
		c.blendWboit(t, i, out[0], f.depth)
		return
	}
	for k := 0; k < min(n, len(t.colors)); k++ {
		c.blend(t, k, i, out[k])
	}
}

func (c *Context) blend(t *target, attachment, i int, src mgl32.Vec4) {
	dst := t.colors[attachment][i*4 : i*4+4]
	d := mgl32.Vec4{dst[0], dst[1], dst[2], dst[3]}
	var r mgl32.Vec4
	switch c.state.Blend {
	case gpu.BlendAlpha:
		a := src.W()
		r = mgl32.Vec4{
			src.X()*a + d.X()*(1-a),
			src.Y()*a + d.Y()*(1-a),
			src.Z()*a + d.Z()*(1-a),
			a + d.W()*(1-a),
		}
	case gpu.BlendPremultiplied:
		r = src.Add(d.Mul(1 - src.W()))
	case gpu.BlendAdditive:
		r = src.Add(d)
	case gpu.BlendUnder:
		k := (1 - d.W()) * src.W()
		r = mgl32.Vec4{d.X() + k*src.X(), d.Y() + k*src.Y(), d.Z() + k*src.Z(), d.W() + k}
	default:
		r = src
	}
	if t.clamped() {
		for j := range r {
			r[j] = clamp01(r[j])
		}
	}
	copy(dst, r[:])
}

// blendWboit accumulates weighted premultiplied color into attachment 0 and
// the coverage 1-prod(1-a) into the red channel of attachment 1.
func (c *Context) blendWboit(t *target, i int, src mgl32.Vec4, depth float32) {
	a := src.W()
	w := math32.Pow(min(1, a*10)+0.01, 3) * 1e8 * math32.Pow(1-depth*0.9, 3)
	w = min(max(w, 1e-2), 3e3)
	acc := t.colors[0][i*4 : i*4+4]
	acc[0] += src.X() * a * w
	acc[1] += src.Y() * a * w
	acc[2] += src.Z() * a * w
	acc[3] += a * w
	if len(t.colors) > 1 {
		cov := t.colors[1][i*4 : i*4+4]
		cov[0] = 1 - (1-cov[0])*(1-a)
		cov[3] = 1
	}
}
