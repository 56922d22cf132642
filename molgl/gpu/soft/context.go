// Package soft is a headless software implementation of gpu.Context. It
// rasterizes triangles, sphere impostors, segments and points into float
// render targets and is used by tests and offscreen image export.
package soft

import (
	"fmt"
	"time"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

type Options struct {
	Width, Height int
	// FenceLatency is the number of status polls a fence stays unsignaled.
	FenceLatency   int
	MaxTextureSize int
	// Extensions overrides the advertised extensions when set.
	Extensions *gpu.Extensions
}

type Context struct {
	opts Options
	ext  gpu.Extensions

	lost     bool
	lostC    *event.Subject[time.Time]
	restored *event.Subject[time.Time]

	resources map[int]resource
	nextID    int
	stats     gpu.Stats

	drawing        *target
	bound          *target
	viewport       core.Viewport
	scissor        core.Viewport
	scissorEnabled bool
	state          gpu.DrawState
}

var _ gpu.Context = (*Context)(nil)

func New(opts Options) *Context {
	if opts.Width <= 0 {
		opts.Width = 1
	}
	if opts.Height <= 0 {
		opts.Height = 1
	}
	if opts.MaxTextureSize <= 0 {
		opts.MaxTextureSize = 4096
	}
	ext := gpu.Extensions{
		TextureFloat:         true,
		TextureHalfFloat:     true,
		ColorBufferFloat:     true,
		ColorBufferHalfFloat: true,
		DepthTexture:         true,
		DrawBuffers:          true,
		FragDepth:            true,
		BlendMinMax:          true,
		FenceSync:            true,
		LoseContext:          true,
	}
	if opts.Extensions != nil {
		ext = *opts.Extensions
	}
	c := &Context{
		opts:      opts,
		ext:       ext,
		lostC:     event.NewSubject[time.Time](),
		restored:  event.NewSubject[time.Time](),
		resources: make(map[int]resource),
		state:     gpu.DefaultDrawState(),
	}
	c.drawing = newTarget(c, 0, opts.Width, opts.Height, gpu.TargetOptions{Label: "drawing-buffer", Attachments: 1, Depth: true})
	c.bound = c.drawing
	c.viewport = core.Viewport{Width: opts.Width, Height: opts.Height}
	return c
}

func (c *Context) Extensions() gpu.Extensions { return c.ext }
func (c *Context) Stats() gpu.Stats           { return c.stats }
func (c *Context) IsContextLost() bool        { return c.lost }
func (c *Context) MaxTextureSize() int        { return c.opts.MaxTextureSize }

func (c *Context) ContextLost() *event.Subject[time.Time]     { return c.lostC }
func (c *Context) ContextRestored() *event.Subject[time.Time] { return c.restored }

func (c *Context) LoseContextExtension() gpu.LoseContext {
	if !c.ext.LoseContext {
		return nil
	}
	return loseContext{c}
}

type loseContext struct{ c *Context }

// LoseContext marks the context lost and notifies observers.
func (l loseContext) LoseContext() {
	if l.c.lost {
		return
	}
	l.c.lost = true
	l.c.lostC.Next(time.Now())
}

// RestoreContext notifies observers; the context stays lost until
// HandleContextRestored ran.
func (l loseContext) RestoreContext() {
	if !l.c.lost {
		return
	}
	l.c.restored.Next(time.Now())
}

func (c *Context) HandleContextRestored(extra func()) {
	c.drawing.reset()
	for _, r := range c.resources {
		r.reset()
	}
	c.bound = c.drawing
	c.state = gpu.DefaultDrawState()
	c.scissorEnabled = false
	if extra != nil {
		extra()
	}
	c.lost = false
}

func (c *Context) DrawingBufferSize() (int, int) { return c.drawing.Size() }

func (c *Context) SetDrawingBufferSize(w, h int) {
	c.drawing.SetSize(w, h)
}

func (c *Context) register(r resource) int {
	c.nextID++
	c.resources[c.nextID] = r
	return c.nextID
}

func (c *Context) unregister(id int) bool {
	if _, ok := c.resources[id]; !ok {
		return false
	}
	delete(c.resources, id)
	return true
}

func (c *Context) CreateBuffer(data []float32) gpu.Buffer {
	b := &buffer{ctx: c, data: append([]float32(nil), data...)}
	b.id = c.register(b)
	c.stats.Buffers++
	c.stats.BufferAllocations++
	return b
}

func (c *Context) CreateIndexBuffer(data []uint32) gpu.IndexBuffer {
	b := &indexBuffer{ctx: c, data: append([]uint32(nil), data...)}
	b.id = c.register(b)
	c.stats.Buffers++
	c.stats.BufferAllocations++
	return b
}

func (c *Context) CreateTexture(w, h, d int, data []float32) gpu.Texture {
	t := &texture{ctx: c}
	t.Update(w, h, d, data)
	t.id = c.register(t)
	c.stats.Textures++
	return t
}

func (c *Context) CreateRenderTarget(w, h int, opts gpu.TargetOptions) gpu.RenderTarget {
	if opts.Type == gpu.TextureFloat && !c.ext.ColorBufferFloat {
		opts.Type = gpu.TextureHalfFloat
	}
	if opts.Type == gpu.TextureHalfFloat && !c.ext.ColorBufferHalfFloat {
		opts.Type = gpu.TextureUint8
	}
	t := newTarget(c, 0, w, h, opts)
	t.id = c.register(t)
	c.stats.RenderTargets++
	return t
}

func (c *Context) targetOf(t gpu.RenderTarget) *target {
	if t == nil {
		return nil
	}
	st, ok := t.(*target)
	if !ok || st.ctx != c {
		panic(fmt.Sprintf("soft: render target %q belongs to another context", t.Label()))
	}
	return st
}

func (c *Context) BindRenderTarget(t gpu.RenderTarget) {
	if t == nil {
		c.bound = c.drawing
		return
	}
	c.bound = c.targetOf(t)
}

func (c *Context) SetViewport(v core.Viewport) { c.viewport = v }

func (c *Context) SetScissor(v core.Viewport, enabled bool) {
	c.scissor = v
	c.scissorEnabled = enabled
}

func (c *Context) SetState(s gpu.DrawState) { c.state = s }

// bounds returns the pixel rectangle writes are limited to.
func (c *Context) bounds() (x0, y0, x1, y1 int) {
	t := c.bound
	x0, y0 = max(c.viewport.X, 0), max(c.viewport.Y, 0)
	x1, y1 = min(c.viewport.X+c.viewport.Width, t.w), min(c.viewport.Y+c.viewport.Height, t.h)
	if c.scissorEnabled {
		x0, y0 = max(x0, c.scissor.X), max(y0, c.scissor.Y)
		x1, y1 = min(x1, c.scissor.X+c.scissor.Width), min(y1, c.scissor.Y+c.scissor.Height)
	}
	return
}

func (c *Context) Clear(color mgl32.Vec4, clearColor, clearDepth bool) {
	if c.lost {
		return
	}
	t := c.bound
	x0, y0, x1, y1 := c.bounds()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := t.index(x, y)
			if clearColor {
				for _, att := range t.colors {
					copy(att[i*4:i*4+4], color[:])
				}
			}
			if clearDepth && t.depth != nil {
				t.depth[i] = 1
			}
		}
	}
}

func (c *Context) ReadPixels(x, y, w, h int, dst []uint8) error {
	if c.lost {
		return fmt.Errorf("read pixels: context lost")
	}
	if len(dst) < w*h*4 {
		return fmt.Errorf("read pixels: destination holds %d bytes, need %d", len(dst), w*h*4)
	}
	c.stats.PixelReads++
	t := c.bound
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			o := (j*w + i) * 4
			if !t.inside(x+i, y+j) {
				clear(dst[o : o+4])
				continue
			}
			p := t.pixel(0, x+i, y+j)
			for k := 0; k < 4; k++ {
				dst[o+k] = uint8(clamp01(p[k])*255 + 0.5)
			}
		}
	}
	return nil
}

type fence struct {
	remaining int
	deleted   bool
}

func (f *fence) Signaled() bool {
	if f.deleted || f.remaining <= 0 {
		return true
	}
	f.remaining--
	return false
}

func (f *fence) Delete() { f.deleted = true }

func (c *Context) FenceSync() gpu.Sync {
	return &fence{remaining: c.opts.FenceLatency}
}

func (c *Context) Flush() {}

func (c *Context) Destroy() {
	for id := range c.resources {
		delete(c.resources, id)
	}
	c.stats.Buffers, c.stats.Textures, c.stats.RenderTargets = 0, 0, 0
	c.lostC.Close()
	c.restored.Close()
}
