// Package gpu defines the rendering context the engine draws through. The
// contract mirrors a WebGL2-class device: render targets with optional float
// attachments, vertex data buffers, draw calls per render variant,
// fullscreen composite passes, fence sync objects and an optional extension
// to simulate context loss.
package gpu

import (
	"time"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/event"

	"github.com/go-gl/mathgl/mgl32"
)

type Extensions struct {
	TextureFloat         bool
	TextureHalfFloat     bool
	ColorBufferFloat     bool
	ColorBufferHalfFloat bool
	DepthTexture         bool
	DrawBuffers          bool
	FragDepth            bool
	BlendMinMax          bool
	FenceSync            bool
	LoseContext          bool
}

// Stats counts live resources and cumulative work since creation.
type Stats struct {
	Buffers       int
	Textures      int
	RenderTargets int

	BufferAllocations int
	DrawCalls         int
	InstancesDrawn    int
	FullscreenPasses  int
	PixelReads        int
}

// Context is the single GPU context of one drawing surface.
type Context interface {
	Extensions() Extensions
	Stats() Stats

	IsContextLost() bool
	// LoseContextExtension returns nil when the host cannot simulate loss.
	LoseContextExtension() LoseContext
	ContextLost() *event.Subject[time.Time]
	ContextRestored() *event.Subject[time.Time]
	// HandleContextRestored recreates every live resource, runs extra and
	// clears the lost flag.
	HandleContextRestored(extra func())

	DrawingBufferSize() (width, height int)
	SetDrawingBufferSize(width, height int)
	MaxTextureSize() int

	CreateBuffer(data []float32) Buffer
	CreateIndexBuffer(data []uint32) IndexBuffer
	CreateTexture(width, height, depth int, data []float32) Texture
	CreateRenderTarget(width, height int, opts TargetOptions) RenderTarget

	// BindRenderTarget binds t for drawing; nil binds the drawing buffer.
	BindRenderTarget(t RenderTarget)
	SetViewport(v core.Viewport)
	SetScissor(v core.Viewport, enabled bool)
	SetState(s DrawState)
	Clear(color mgl32.Vec4, clearColor, clearDepth bool)
	Draw(call *DrawCall)
	RunFullscreen(p *FullscreenPass)
	// ReadPixels reads RGBA8 rows bottom-up from the first attachment of the
	// bound target.
	ReadPixels(x, y, width, height int, dst []uint8) error

	FenceSync() Sync
	Flush()
	Destroy()
}

// LoseContext simulates context loss; only exposed in debug mode.
type LoseContext interface {
	LoseContext()
	RestoreContext()
}

// Sync is a fence inserted after submitted GPU work.
type Sync interface {
	Signaled() bool
	Delete()
}

type Buffer interface {
	ID() int
	Length() int
	// Update uploads data in place; it reports whether the storage had to be
	// reallocated.
	Update(data []float32) bool
	Destroy()
}

type IndexBuffer interface {
	ID() int
	Length() int
	Update(data []uint32) bool
	Destroy()
}

type Texture interface {
	ID() int
	Size() (width, height, depth int)
	Update(width, height, depth int, data []float32) bool
	Destroy()
}

type TextureType int

const (
	TextureUint8 TextureType = iota
	TextureHalfFloat
	TextureFloat
)

type TargetOptions struct {
	Label       string
	Attachments int
	Type        TextureType
	Depth       bool
}

type RenderTarget interface {
	ID() int
	Label() string
	Size() (width, height int)
	SetSize(width, height int)
	Attachments() int
	// ReadFloatPixels reads RGBA rows bottom-up from attachment.
	ReadFloatPixels(attachment, x, y, width, height int, dst []float32) error
	Destroy()
}

type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
	BlendPremultiplied
	BlendAdditive
	// BlendWboit accumulates weighted color into attachment 0 and coverage
	// into attachment 1.
	BlendWboit
	// BlendUnder composites front to back under the premultiplied target.
	BlendUnder
)

type DrawState struct {
	DepthTest  bool
	DepthWrite bool
	ColorWrite bool
	Blend      BlendMode
}

func DefaultDrawState() DrawState {
	return DrawState{DepthTest: true, DepthWrite: true, ColorWrite: true}
}
