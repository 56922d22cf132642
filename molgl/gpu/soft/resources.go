package soft

import (
	"fmt"

	"github.com/molcanvas/canvas3d/molgl/gpu"
)

type resource interface {
	reset()
}

type buffer struct {
	ctx  *Context
	id   int
	data []float32
}

func (b *buffer) ID() int     { return b.id }
func (b *buffer) Length() int { return len(b.data) }

func (b *buffer) Update(data []float32) bool {
	realloc := len(data) > cap(b.data)
	if realloc {
		b.data = make([]float32, len(data))
		b.ctx.stats.BufferAllocations++
	}
	b.data = b.data[:len(data)]
	copy(b.data, data)
	return realloc
}

func (b *buffer) Destroy() {
	if b.ctx.unregister(b.id) {
		b.ctx.stats.Buffers--
	}
}

func (b *buffer) reset() {
	b.data = append(make([]float32, 0, cap(b.data)), b.data...)
	b.ctx.stats.BufferAllocations++
}

type indexBuffer struct {
	ctx  *Context
	id   int
	data []uint32
}

func (b *indexBuffer) ID() int     { return b.id }
func (b *indexBuffer) Length() int { return len(b.data) }

func (b *indexBuffer) Update(data []uint32) bool {
	realloc := len(data) > cap(b.data)
	if realloc {
		b.data = make([]uint32, len(data))
		b.ctx.stats.BufferAllocations++
	}
	b.data = b.data[:len(data)]
	copy(b.data, data)
	return realloc
}

func (b *indexBuffer) Destroy() {
	if b.ctx.unregister(b.id) {
		b.ctx.stats.Buffers--
	}
}

func (b *indexBuffer) reset() {
	b.data = append(make([]uint32, 0, cap(b.data)), b.data...)
	b.ctx.stats.BufferAllocations++
}

type texture struct {
	ctx     *Context
	id      int
	w, h, d int
	data    []float32 // rgba
}

func (t *texture) ID() int               { return t.id }
func (t *texture) Size() (int, int, int) { return t.w, t.h, t.d }
func (t *texture) reset()                {}

func (t *texture) Destroy() {
	if t.ctx.unregister(t.id) {
		t.ctx.stats.Textures--
	}
}

func (t *texture) Update(w, h, d int, data []float32) bool {
	realloc := w != t.w || h != t.h || d != t.d
	t.w, t.h, t.d = w, h, max(d, 1)
	t.data = append(t.data[:0], data...)
	return realloc
}

func (t *texture) sample(u, v float32) [4]float32 {
	if t.w == 0 || t.h == 0 || len(t.data) < t.w*t.h*4 {
		return [4]float32{1, 1, 1, 1}
	}
	x := clampInt(int(u*float32(t.w)), 0, t.w-1)
	y := clampInt(int(v*float32(t.h)), 0, t.h-1)
	i := (y*t.w + x) * 4
	return [4]float32{t.data[i], t.data[i+1], t.data[i+2], t.data[i+3]}
}

// target stores RGBA float attachments and an optional depth buffer.
type target struct {
	ctx    *Context
	id     int
	label  string
	opts   gpu.TargetOptions
	w, h   int
	colors [][]float32
	depth  []float32
}

func newTarget(ctx *Context, id, w, h int, opts gpu.TargetOptions) *target {
	if opts.Attachments < 1 {
		opts.Attachments = 1
	}
	t := &target{ctx: ctx, id: id, label: opts.Label, opts: opts}
	t.SetSize(w, h)
	return t
}

func (t *target) ID() int              { return t.id }
func (t *target) Label() string        { return t.label }
func (t *target) Size() (int, int)     { return t.w, t.h }
func (t *target) Attachments() int     { return t.opts.Attachments }
func (t *target) clamped() bool        { return t.opts.Type == gpu.TextureUint8 }
func (t *target) inside(x, y int) bool { return x >= 0 && y >= 0 && x < t.w && y < t.h }
func (t *target) index(x, y int) int   { return y*t.w + x }

func (t *target) SetSize(w, h int) {
	w, h = max(w, 1), max(h, 1)
	if w == t.w && h == t.h && t.colors != nil {
		return
	}
	t.w, t.h = w, h
	t.reset()
}

func (t *target) reset() {
	t.colors = make([][]float32, t.opts.Attachments)
	for i := range t.colors {
		t.colors[i] = make([]float32, t.w*t.h*4)
	}
	t.depth = nil
	if t.opts.Depth {
		t.depth = make([]float32, t.w*t.h)
		for i := range t.depth {
			t.depth[i] = 1
		}
	}
}

func (t *target) Destroy() {
	if t.ctx.unregister(t.id) {
		t.ctx.stats.RenderTargets--
	}
}

func (t *target) pixel(attachment, x, y int) [4]float32 {
	x = clampInt(x, 0, t.w-1)
	y = clampInt(y, 0, t.h-1)
	c := t.colors[attachment]
	i := t.index(x, y) * 4
	return [4]float32{c[i], c[i+1], c[i+2], c[i+3]}
}

func (t *target) depthAt(x, y int) float32 {
	if t.depth == nil {
		return 1
	}
	return t.depth[t.index(clampInt(x, 0, t.w-1), clampInt(y, 0, t.h-1))]
}

func (t *target) ReadFloatPixels(attachment, x, y, w, h int, dst []float32) error {
	if attachment < 0 || attachment >= len(t.colors) {
		return fmt.Errorf("read pixels from %q: attachment %d out of range", t.label, attachment)
	}
	if len(dst) < w*h*4 {
		return fmt.Errorf("read pixels from %q: destination holds %d values, need %d", t.label, len(dst), w*h*4)
	}
	t.ctx.stats.PixelReads++
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			p := [4]float32{}
			if t.inside(x+i, y+j) {
				p = t.pixel(attachment, x+i, y+j)
			}
			copy(dst[(j*w+i)*4:], p[:])
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
