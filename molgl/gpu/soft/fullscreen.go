package soft

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// source samples a render target relative to the viewport of the bound target.
type source struct {
	t          *target
	attachment int
	depth      bool
	vp         core.Viewport
}

// texel maps the bound pixel (x, y) to the nearest source pixel.
func (s source) texel(x, y int) (int, int) {
	vw, vh := max(s.vp.Width, 1), max(s.vp.Height, 1)
	return (x - s.vp.X) * s.t.w / vw, (y - s.vp.Y) * s.t.h / vh
}

func (s source) color(x, y int) mgl32.Vec4 {
	p := s.t.pixel(s.attachment, x, y)
	return mgl32.Vec4{p[0], p[1], p[2], p[3]}
}

// depthAt returns the depth at source pixel (x, y), either from the depth
// buffer or unpacked from the color attachment.
func (s source) depthAt(x, y int) float32 {
	if s.depth {
		return s.t.depthAt(x, y)
	}
	p := s.t.pixel(s.attachment, x, y)
	return core.UnpackDepth(p[0], p[1], p[2])
}

func (c *Context) RunFullscreen(p *gpu.FullscreenPass) {
	if c.lost || p == nil {
		return
	}
	c.stats.FullscreenPasses++
	if p.Source == nil {
		return
	}
	src := source{t: c.targetOf(p.Source), attachment: p.Attachment, depth: p.UseDepth, vp: c.viewport}
	if src.attachment >= len(src.t.colors) {
		src.attachment = 0
	}
	if p.Op == gpu.OpHiZDownsample {
		c.hiZDownsample(src)
		return
	}

	prev := c.state.Blend
	c.state.Blend = p.Blend
	defer func() { c.state.Blend = prev }()

	t := c.bound
	x0, y0, x1, y1 := c.bounds()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sx, sy := src.texel(x, y)
			out, ok := c.fullscreenFragment(p, src, sx, sy)
			if !ok {
				continue
			}
			c.blend(t, 0, t.index(x, y), out)
		}
	}
}

func (c *Context) fullscreenFragment(p *gpu.FullscreenPass, src source, x, y int) (mgl32.Vec4, bool) {
	switch p.Op {
	case gpu.OpCopy:
		w := p.Weight
		if w == 0 {
			w = 1
		}
		if src.depth {
			d := core.PackDepth(src.depthAt(x, y))
			return mgl32.Vec4{d[0], d[1], d[2], 1}, true
		}
		return src.color(x, y).Mul(w), true

	case gpu.OpWboitResolve:
		acc := src.color(x, y)
		cov := float32(0)
		if len(src.t.colors) > 1 {
			cov = src.t.pixel(1, x, y)[0]
		}
		if cov <= 0 {
			return mgl32.Vec4{}, false
		}
		a := max(acc.W(), 1e-5)
		return mgl32.Vec4{acc.X() / a, acc.Y() / a, acc.Z() / a, cov}, true

	case gpu.OpOutline:
		d := src.depthAt(x, y)
		r := max(p.Radius, 1)
		for _, o := range [4][2]int{{r, 0}, {-r, 0}, {0, r}, {0, -r}} {
			n := src.depthAt(x+o[0], y+o[1])
			// outline pixels belong to the nearer side of the discontinuity
			if n-d > p.Threshold && d < 1 {
				return p.Color.Vec4(1), true
			}
			if d-n > p.Threshold && d >= 1 {
				return p.Color.Vec4(1), true
			}
		}
		return mgl32.Vec4{}, false

	case gpu.OpOcclusion:
		d := src.depthAt(x, y)
		if d >= 1 {
			return mgl32.Vec4{}, false
		}
		r := max(p.Radius, 1)
		occluded, total := 0, 0
		for j := -r; j <= r; j += max(r/2, 1) {
			for i := -r; i <= r; i += max(r/2, 1) {
				if i == 0 && j == 0 {
					continue
				}
				total++
				if d-src.depthAt(x+i, y+j) > p.Threshold {
					occluded++
				}
			}
		}
		if occluded == 0 {
			return mgl32.Vec4{}, false
		}
		a := p.Strength * float32(occluded) / float32(total)
		return mgl32.Vec4{0, 0, 0, min(a, 1)}, true

	case gpu.OpMarkingEdge:
		m := src.color(x, y)
		if m.X() > 0 || m.Y() > 0 {
			return mgl32.Vec4{}, false
		}
		r := max(p.Radius, 1)
		var highlight, selected bool
		for j := -r; j <= r; j++ {
			for i := -r; i <= r; i++ {
				n := src.color(x+i, y+j)
				highlight = highlight || n.X() > 0
				selected = selected || n.Y() > 0
			}
		}
		switch {
		case highlight:
			return p.Color.Vec4(1), true
		case selected:
			return p.SecondColor.Vec4(1), true
		}
		return mgl32.Vec4{}, false

	case gpu.OpAddEmissive:
		r := max(p.Radius, 0)
		var sum mgl32.Vec3
		count := 0
		for j := -r; j <= r; j++ {
			for i := -r; i <= r; i++ {
				sum = sum.Add(src.color(x+i, y+j).Vec3())
				count++
			}
		}
		glow := sum.Mul(p.Strength / float32(count))
		if glow.Len() == 0 {
			return mgl32.Vec4{}, false
		}
		return glow.Vec4(0), true
	}
	return mgl32.Vec4{}, false
}

// hiZDownsample writes into the red channel of the bound target the
// farthest source depth covered by each pixel.
func (c *Context) hiZDownsample(src source) {
	t := c.bound
	x0, y0, x1, y1 := c.bounds()
	for y := y0; y < y1; y++ {
		sy0, sy1 := y*src.t.h/t.h, max((y+1)*src.t.h/t.h, y*src.t.h/t.h+1)
		for x := x0; x < x1; x++ {
			sx0, sx1 := x*src.t.w/t.w, max((x+1)*src.t.w/t.w, x*src.t.w/t.w+1)
			far := float32(0)
			for sy := sy0; sy < min(sy1, src.t.h); sy++ {
				for sx := sx0; sx < min(sx1, src.t.w); sx++ {
					var d float32
					if src.depth {
						d = src.t.depthAt(sx, sy)
					} else {
						d = src.t.pixel(src.attachment, sx, sy)[0]
					}
					far = max(far, d)
				}
			}
			i := t.index(x, y)
			copy(t.colors[0][i*4:i*4+4], []float32{far, 0, 0, 1})
		}
	}
}
