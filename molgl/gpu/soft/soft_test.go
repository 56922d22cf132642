package soft

import (
	"testing"
	"time"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sphereCall(c *Context, variant gpu.Variant) *gpu.DrawCall {
	return &gpu.DrawCall{
		ObjectID:   5,
		GroupCount: 1,
		Primitives: gpu.Primitives{
			Topology:  gpu.TopologySpheres,
			Positions: c.CreateBuffer([]float32{0, 0, 0}),
			Groups:    c.CreateBuffer([]float32{0}),
			Sizes:     c.CreateBuffer([]float32{1}),
			Count:     1,
		},
		Material:   gpu.Material{Color: mgl32.Vec3{1, 0, 0}, Alpha: 1, IgnoreLight: true},
		Instances:  []gpu.Instance{{Index: 0, Transform: mgl32.Ident4()}},
		View:       mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		Projection: mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100),
		Variant:    variant,
	}
}

func TestDrawSphereColor(t *testing.T) {
	c := New(Options{Width: 32, Height: 32})
	c.Clear(mgl32.Vec4{0, 0, 0, 1}, true, true)
	c.Draw(sphereCall(c, gpu.VariantColor))

	px := make([]uint8, 4)
	require.NoError(t, c.ReadPixels(16, 16, 1, 1, px))
	assert.Equal(t, []uint8{255, 0, 0, 255}, px)

	require.NoError(t, c.ReadPixels(0, 0, 1, 1, px))
	assert.Equal(t, []uint8{0, 0, 0, 255}, px, "corner stays background")
	assert.Equal(t, 1, c.Stats().DrawCalls)
}

func TestPickVariantWritesIDs(t *testing.T) {
	c := New(Options{Width: 16, Height: 16})
	pick := c.CreateRenderTarget(16, 16, gpu.TargetOptions{Label: "pick", Attachments: 4, Depth: true})
	c.BindRenderTarget(pick)
	c.Clear(mgl32.Vec4{1, 1, 1, 1}, true, true)
	c.Draw(sphereCall(c, gpu.VariantPick))

	buf := make([]float32, 4)
	require.NoError(t, pick.ReadFloatPixels(0, 8, 8, 1, 1, buf))
	assert.Equal(t, 5, core.UnpackRGBToInt(buf[0], buf[1], buf[2]))
	require.NoError(t, pick.ReadFloatPixels(1, 8, 8, 1, 1, buf))
	assert.Equal(t, 0, core.UnpackRGBToInt(buf[0], buf[1], buf[2]))
	require.NoError(t, pick.ReadFloatPixels(3, 8, 8, 1, 1, buf))
	assert.Less(t, core.UnpackDepth(buf[0], buf[1], buf[2]), float32(1))

	require.NoError(t, pick.ReadFloatPixels(0, 0, 0, 1, 1, buf))
	assert.Equal(t, -1, core.UnpackRGBToInt(buf[0], buf[1], buf[2]))
}

func TestDepthTestKeepsNearest(t *testing.T) {
	c := New(Options{Width: 16, Height: 16})
	c.Clear(mgl32.Vec4{}, true, true)
	near := sphereCall(c, gpu.VariantColor)
	near.Material.Color = mgl32.Vec3{0, 1, 0}
	near.Instances[0].Transform = mgl32.Translate3D(0, 0, 1)
	c.Draw(near)
	c.Draw(sphereCall(c, gpu.VariantColor))

	px := make([]uint8, 4)
	require.NoError(t, c.ReadPixels(8, 8, 1, 1, px))
	assert.Equal(t, uint8(255), px[1])
	assert.Equal(t, uint8(0), px[0])
}

func TestFenceLatency(t *testing.T) {
	c := New(Options{FenceLatency: 2})
	f := c.FenceSync()
	assert.False(t, f.Signaled())
	assert.False(t, f.Signaled())
	assert.True(t, f.Signaled())

	g := c.FenceSync()
	g.Delete()
	assert.True(t, g.Signaled())
}

func TestBufferUpdateInPlace(t *testing.T) {
	c := New(Options{})
	b := c.CreateBuffer(make([]float32, 8))
	allocs := c.Stats().BufferAllocations
	assert.False(t, b.Update(make([]float32, 4)))
	assert.Equal(t, allocs, c.Stats().BufferAllocations)
	assert.True(t, b.Update(make([]float32, 16)))
	assert.Equal(t, allocs+1, c.Stats().BufferAllocations)
	b.Destroy()
	b.Destroy()
	assert.Equal(t, 0, c.Stats().Buffers)
}

func TestLoseAndRestore(t *testing.T) {
	c := New(Options{Width: 8, Height: 8})
	var lost, restored int
	c.ContextLost().Subscribe(func(time.Time) { lost++ })
	c.ContextRestored().Subscribe(func(time.Time) { restored++ })

	ext := c.LoseContextExtension()
	require.NotNil(t, ext)
	ext.LoseContext()
	ext.LoseContext()
	assert.True(t, c.IsContextLost())
	assert.Equal(t, 1, lost)

	c.Draw(sphereCall(c, gpu.VariantColor))
	assert.Equal(t, 0, c.Stats().DrawCalls)
	assert.Error(t, c.ReadPixels(0, 0, 1, 1, make([]uint8, 4)))

	ext.RestoreContext()
	assert.Equal(t, 1, restored)
	assert.True(t, c.IsContextLost(), "lost until handled")

	var extra bool
	c.HandleContextRestored(func() { extra = true })
	assert.True(t, extra)
	assert.False(t, c.IsContextLost())
}

func TestNoLoseContextExtension(t *testing.T) {
	c := New(Options{Extensions: &gpu.Extensions{TextureFloat: true}})
	assert.Nil(t, c.LoseContextExtension())
	rt := c.CreateRenderTarget(4, 4, gpu.TargetOptions{Type: gpu.TextureFloat})
	assert.Equal(t, 1, rt.Attachments())
}

func TestHiZDownsample(t *testing.T) {
	c := New(Options{Width: 4, Height: 4})
	c.Clear(mgl32.Vec4{}, true, true)
	c.drawing.depth[0] = 0.25
	c.drawing.depth[1] = 0.5
	c.drawing.depth[4] = 0.1
	c.drawing.depth[5] = 0.2

	mip := c.CreateRenderTarget(2, 2, gpu.TargetOptions{Label: "hiz", Type: gpu.TextureFloat})
	c.BindRenderTarget(mip)
	c.SetViewport(core.Viewport{Width: 2, Height: 2})
	src := c.CreateRenderTarget(4, 4, gpu.TargetOptions{Depth: true})
	copy(c.targetOf(src).depth, c.drawing.depth)
	c.RunFullscreen(&gpu.FullscreenPass{Op: gpu.OpHiZDownsample, Source: src, UseDepth: true})

	buf := make([]float32, 8)
	require.NoError(t, mip.ReadFloatPixels(0, 0, 0, 2, 1, buf))
	assert.InDelta(t, 0.5, buf[0], 1e-6)
	assert.InDelta(t, 1, buf[4], 1e-6)
}

func TestWboitResolve(t *testing.T) {
	c := New(Options{Width: 4, Height: 4})
	c.Clear(mgl32.Vec4{0, 0, 0, 1}, true, true)
	acc := c.CreateRenderTarget(4, 4, gpu.TargetOptions{Attachments: 2, Type: gpu.TextureFloat})
	c.BindRenderTarget(acc)
	c.Clear(mgl32.Vec4{}, true, false)
	c.SetState(gpu.DrawState{DepthTest: false, ColorWrite: true, Blend: gpu.BlendWboit})
	call := sphereCall(c, gpu.VariantColor)
	call.Material.Alpha = 0.5
	call.Projection = mgl32.Perspective(mgl32.DegToRad(10), 1, 0.1, 100)
	c.Draw(call)

	c.BindRenderTarget(nil)
	c.SetState(gpu.DrawState{ColorWrite: true})
	c.RunFullscreen(&gpu.FullscreenPass{Op: gpu.OpWboitResolve, Source: acc, Blend: gpu.BlendAlpha})

	px := make([]uint8, 4)
	require.NoError(t, c.ReadPixels(2, 2, 1, 1, px))
	assert.InDelta(t, 128, int(px[0]), 2)
	assert.Equal(t, uint8(0), px[1])
}
