package renderer

import (
	"testing"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCamera struct {
	vp core.Viewport
}

func (c fixedCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}
func (c fixedCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(45), c.vp.Aspect(), 1, 100)
}
func (c fixedCamera) Viewport() core.Viewport { return c.vp }
func (c fixedCamera) Near() float32           { return 1 }
func (c fixedCamera) Far() float32            { return 100 }
func (c fixedCamera) Fog() (float32, float32) { return 0, 0 }

func addSphere(t *testing.T, s *scene.Scene, color core.Color, center mgl32.Vec3, props geometry.Props) *renderable.RenderObject {
	t.Helper()
	u, err := geometry.UtilsFor(geometry.KindSpheres)
	require.NoError(t, err)
	v, err := u.CreateValues(&geometry.Spheres{Centers: []float32{center.X(), center.Y(), center.Z()}},
		geometry.NewTransformData(), geometry.UniformTheme(color, 2), props)
	require.NoError(t, err)
	o := renderable.CreateRenderObject(geometry.KindSpheres, v, u.CreateRenderableState(props), 0)
	s.Add(o)
	require.True(t, s.Commit(0))
	return o
}

func setup(t *testing.T) (*soft.Context, *scene.Scene, *Renderer) {
	t.Helper()
	ctx := soft.New(soft.Options{Width: 32, Height: 32})
	props := DefaultProps()
	props.BackgroundColor = 0x000000
	r := New(ctx, props)
	cam := fixedCamera{vp: core.Viewport{Width: 32, Height: 32}}
	r.SetViewport(cam.Viewport())
	r.Update(cam)
	return ctx, scene.Create(ctx), r
}

func pixel(t *testing.T, ctx gpu.Context, x, y int) []uint8 {
	t.Helper()
	px := make([]uint8, 4)
	require.NoError(t, ctx.ReadPixels(x, y, 1, 1, px))
	return px
}

func TestRenderBlendedDrawsOpaqueSphere(t *testing.T) {
	ctx, s, r := setup(t)
	props := geometry.DefaultProps()
	props.IgnoreLight = true
	addSphere(t, s, core.ColorFromRGB(255, 0, 0), mgl32.Vec3{}, props)

	ctx.BindRenderTarget(nil)
	r.Clear(true, false)
	r.RenderBlended(s.Primitives())

	assert.Equal(t, []uint8{255, 0, 0, 255}, pixel(t, ctx, 16, 16))
	assert.Equal(t, []uint8{0, 0, 0, 255}, pixel(t, ctx, 0, 0))
	assert.Equal(t, 1, r.Stats().Calls)
}

func TestFrustumAndOcclusionCulling(t *testing.T) {
	_, s, r := setup(t)
	addSphere(t, s, 0xffffff, mgl32.Vec3{500, 0, 0}, geometry.DefaultProps())
	r.RenderBlended(s.Primitives())
	assert.Equal(t, 0, r.Stats().Calls)
	assert.Equal(t, 1, r.Stats().Culled)

	addSphere(t, s, 0xffffff, mgl32.Vec3{}, geometry.DefaultProps())
	r.SetOcclusionTest(func(core.Sphere3D) bool { return true })
	r.RenderOpaque(s.Primitives())
	assert.Equal(t, 1, r.Stats().Occluded)
	assert.Equal(t, 0, r.Stats().Calls)

	r.SetOcclusionTest(nil)
	r.RenderOpaque(s.Primitives())
	assert.Equal(t, 1, r.Stats().Calls)
}

func TestRenderPickSkipsUnpickable(t *testing.T) {
	ctx, s, r := setup(t)
	props := geometry.DefaultProps()
	props.Pickable = false
	addSphere(t, s, 0xffffff, mgl32.Vec3{}, props)

	pick := ctx.CreateRenderTarget(32, 32, gpu.TargetOptions{Label: "pick", Attachments: 4, Depth: true})
	ctx.BindRenderTarget(pick)
	r.ClearTo(mgl32.Vec4{1, 1, 1, 1})
	r.RenderPick(s.Primitives())
	assert.Equal(t, 0, r.Stats().Calls)

	buf := make([]float32, 4)
	require.NoError(t, pick.ReadFloatPixels(0, 16, 16, 1, 1, buf))
	assert.Equal(t, -1, core.UnpackRGBToInt(buf[0], buf[1], buf[2]))
}

func TestTransparentGoesThroughBlendedPass(t *testing.T) {
	ctx, s, r := setup(t)
	props := geometry.DefaultProps()
	props.Alpha = 0.5
	props.IgnoreLight = true
	addSphere(t, s, core.ColorFromRGB(255, 255, 255), mgl32.Vec3{}, props)

	ctx.BindRenderTarget(nil)
	r.Clear(true, false)
	r.RenderOpaque(s.Primitives())
	assert.Equal(t, 0, r.Stats().Calls)
	r.RenderBlendedTransparent(s.Primitives())
	assert.Equal(t, 1, r.Stats().Calls)
	assert.InDelta(t, 128, int(pixel(t, ctx, 16, 16)[0]), 2)
}

func TestBlendedTransparentDrawsBackToFront(t *testing.T) {
	ctx, s, r := setup(t)
	props := geometry.DefaultProps()
	props.Alpha = 0.5
	props.IgnoreLight = true
	// the near sphere is added first so group order alone would draw it
	// beneath the far one
	addSphere(t, s, core.ColorFromRGB(255, 0, 0), mgl32.Vec3{0, 0, 2}, props)
	addSphere(t, s, core.ColorFromRGB(0, 0, 255), mgl32.Vec3{0, 0, -2}, props)

	ctx.BindRenderTarget(nil)
	r.Clear(true, false)
	r.RenderBlendedTransparent(s.Primitives())
	require.Equal(t, 2, r.Stats().Calls)

	px := pixel(t, ctx, 16, 16)
	assert.Greater(t, px[0], px[2])
	assert.InDelta(t, 128, int(px[0]), 3)
	assert.InDelta(t, 64, int(px[2]), 3)
}
