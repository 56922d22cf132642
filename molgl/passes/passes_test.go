package passes

import (
	"testing"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/renderer"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 32

type testCamera struct {
	vp core.Viewport
}

func (c testCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}
func (c testCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(45), c.vp.Aspect(), 1, 100)
}
func (c testCamera) Viewport() core.Viewport { return c.vp }
func (c testCamera) Near() float32           { return 1 }
func (c testCamera) Far() float32            { return 100 }
func (c testCamera) Fog() (float32, float32) { return 0, 0 }

type fixture struct {
	ctx *soft.Context
	s   *scene.Scene
	rc  RenderContext
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, soft.Options{Width: size, Height: size})
}

func newFixtureWith(t *testing.T, opts soft.Options) *fixture {
	t.Helper()
	ctx := soft.New(opts)
	props := renderer.DefaultProps()
	props.BackgroundColor = 0x000000
	props.ColorMarker = false
	s := scene.Create(ctx)
	return &fixture{
		ctx: ctx,
		s:   s,
		rc: RenderContext{
			Renderer: renderer.New(ctx, props),
			Camera:   testCamera{vp: core.Viewport{Width: size, Height: size}},
			Scene:    s,
		},
	}
}

func (f *fixture) sphere(t *testing.T, color core.Color, center mgl32.Vec3, radius float32, props geometry.Props) *renderable.RenderObject {
	t.Helper()
	u, err := geometry.UtilsFor(geometry.KindSpheres)
	require.NoError(t, err)
	props.IgnoreLight = true
	v, err := u.CreateValues(&geometry.Spheres{Centers: []float32{center.X(), center.Y(), center.Z()}},
		geometry.NewTransformData(), geometry.UniformTheme(color, radius), props)
	require.NoError(t, err)
	o := renderable.CreateRenderObject(geometry.KindSpheres, v, u.CreateRenderableState(props), 0)
	f.s.Add(o)
	require.True(t, f.s.Commit(0))
	return o
}

func (f *fixture) pixel(t *testing.T, x, y int) []uint8 {
	t.Helper()
	f.ctx.BindRenderTarget(nil)
	px := make([]uint8, 4)
	require.NoError(t, f.ctx.ReadPixels(x, y, 1, 1, px))
	return px
}

func TestDrawPassBlended(t *testing.T) {
	f := newFixture(t)
	f.sphere(t, core.ColorFromRGB(255, 0, 0), mgl32.Vec3{}, 2, geometry.DefaultProps())

	p := NewDrawPass(f.ctx, size, size, false, false)
	p.Render(f.rc, DefaultProps(), nil)
	assert.Equal(t, []uint8{255, 0, 0, 255}, f.pixel(t, 16, 16))
	assert.Equal(t, []uint8{0, 0, 0, 255}, f.pixel(t, 1, 1))
}

func TestDrawPassTransparencyModes(t *testing.T) {
	for _, mode := range []scene.Transparency{scene.TransparencyBlended, scene.TransparencyWboit, scene.TransparencyDpoit} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t)
			props := geometry.DefaultProps()
			props.Alpha = 0.5
			f.sphere(t, core.ColorFromRGB(255, 255, 255), mgl32.Vec3{}, 2, props)
			f.s.SetTransparency(mode)

			p := NewDrawPass(f.ctx, size, size, true, true)
			require.True(t, p.HasWboit())
			require.True(t, p.HasDpoit())
			p.Render(f.rc, DefaultProps(), nil)
			assert.InDelta(t, 128, int(f.pixel(t, 16, 16)[0]), 3)
			assert.Equal(t, uint8(0), f.pixel(t, 1, 1)[0])
		})
	}
}

func TestDrawPassFallsBackWithoutFloatTargets(t *testing.T) {
	ctx := soft.New(soft.Options{Width: size, Height: size, Extensions: &gpu.Extensions{}})
	p := NewDrawPass(ctx, size, size, true, true)
	assert.False(t, p.HasWboit())
	assert.False(t, p.HasDpoit())

	s := scene.Create(ctx)
	s.SetTransparency(scene.TransparencyWboit)
	assert.Equal(t, scene.TransparencyBlended, p.transparency(s))
}

func TestMarkingMask(t *testing.T) {
	f := newFixture(t)
	o := f.sphere(t, core.ColorFromRGB(255, 255, 255), mgl32.Vec3{}, 2, geometry.DefaultProps())
	m := o.Values.Markers.Get()
	geometry.ApplyMarkerRange(m, 0, len(m), geometry.MarkerActionSelect)
	o.Values.Markers.Update(m)
	o.Values.MarkerAverage.Update(geometry.MarkerAverage(m))
	f.s.Update(nil, true)
	require.True(t, f.s.Commit(0))

	p := NewDrawPass(f.ctx, size, size, false, false)
	p.Render(f.rc, DefaultProps(), nil)

	buf := make([]float32, 4)
	require.NoError(t, p.marking.MaskTarget().ReadFloatPixels(0, 16, 16, 1, 1, buf))
	assert.Equal(t, []float32{0, 1, 0, 1}, buf)
}

func TestPickHelperIdentify(t *testing.T) {
	f := newFixture(t)
	o := f.sphere(t, 0xffffff, mgl32.Vec3{}, 2, geometry.DefaultProps())

	h := NewPickHelper(f.ctx, NewPickPass(f.ctx, size, size, 0.5), 0)
	d, ok := h.Identify(f.rc, 16, 16)
	require.True(t, ok)
	assert.Equal(t, core.PickingID{ObjectID: o.ID, InstanceID: 0, GroupID: 0}, d.ID)
	assert.Greater(t, d.Point.Z(), float32(0))
	assert.Less(t, d.Point.Z(), float32(1))
	assert.False(t, h.IsDirty())

	_, ok = h.Identify(f.rc, 0, 0)
	assert.False(t, ok)
	_, ok = h.Identify(f.rc, -5, 40)
	assert.False(t, ok)

	reads := f.ctx.Stats().PixelReads
	_, ok = h.Identify(f.rc, 15, 15)
	assert.True(t, ok)
	assert.Equal(t, reads, f.ctx.Stats().PixelReads, "clean buffers are reused")
}

func TestPickHelperPadding(t *testing.T) {
	f := newFixture(t)
	f.sphere(t, 0xffffff, mgl32.Vec3{3, 0, 0}, 0.5, geometry.DefaultProps())

	h := NewPickHelper(f.ctx, NewPickPass(f.ctx, size, size, 1), 0)
	_, ok := h.Identify(f.rc, 16, 16)
	assert.False(t, ok)

	h = NewPickHelper(f.ctx, NewPickPass(f.ctx, size, size, 1), size)
	_, ok = h.Identify(f.rc, 16, 16)
	assert.True(t, ok)
}

func TestPickHelperContextLost(t *testing.T) {
	f := newFixture(t)
	f.sphere(t, 0xffffff, mgl32.Vec3{}, 2, geometry.DefaultProps())
	h := NewPickHelper(f.ctx, NewPickPass(f.ctx, size, size, 1), 0)
	f.ctx.LoseContextExtension().LoseContext()
	_, ok := h.Identify(f.rc, 16, 16)
	assert.False(t, ok)
}

func TestHiZOcclusion(t *testing.T) {
	f := newFixtureWith(t, soft.Options{Width: size, Height: size, FenceLatency: 1})
	f.sphere(t, 0xffffff, mgl32.Vec3{}, 2, geometry.DefaultProps())

	draw := NewDrawPass(f.ctx, size, size, false, false)
	draw.Render(f.rc, DefaultProps(), nil)

	hiz := NewHiZPass(f.ctx, size, size)
	behind := core.Sphere3D{Center: mgl32.Vec3{0, 0, -20}, Radius: 0.5}
	front := core.Sphere3D{Center: mgl32.Vec3{0, 0, 5}, Radius: 0.5}

	hiz.Render(draw.ColorTarget(), f.rc.Camera)
	assert.False(t, hiz.HasData(), "disabled pass does nothing")

	hiz.Enabled = true
	hiz.Render(draw.ColorTarget(), f.rc.Camera)
	hiz.Sync()
	assert.False(t, hiz.HasData(), "fence not yet signaled")
	assert.False(t, hiz.IsOccluded(behind))
	hiz.Sync()
	require.True(t, hiz.HasData())

	assert.True(t, hiz.IsOccluded(behind))
	assert.False(t, hiz.IsOccluded(front))
	assert.False(t, hiz.IsOccluded(core.Sphere3D{Center: mgl32.Vec3{20, 0, -20}, Radius: 0.5}))

	hiz.Clear()
	assert.False(t, hiz.IsOccluded(behind))
}

func TestMultiSampleTemporal(t *testing.T) {
	f := newFixture(t)
	f.sphere(t, core.ColorFromRGB(255, 0, 0), mgl32.Vec3{}, 2, geometry.DefaultProps())
	draw := NewDrawPass(f.ctx, size, size, false, false)
	h := NewMultiSampleHelper(NewMultiSamplePass(f.ctx, draw, size, size))
	ms := MultiSampleProps{Mode: MultiSampleTemporal, SampleLevel: 1}

	assert.True(t, h.Update(true, ms))
	rendered := 0
	for h.Update(false, ms) {
		require.True(t, h.Render(f.rc, DefaultProps(), ms, nil))
		rendered++
		require.Less(t, rendered, 10)
	}
	assert.Equal(t, 2, rendered)
	assert.Equal(t, []uint8{255, 0, 0, 255}, f.pixel(t, 16, 16))

	assert.True(t, h.Update(true, ms), "a change restarts accumulation")
	assert.False(t, h.Update(false, MultiSampleProps{Mode: MultiSampleOn}))
	assert.False(t, h.Render(f.rc, DefaultProps(), MultiSampleProps{}, nil))

	_, err := ParseMultiSampleMode("sometimes")
	assert.Error(t, err)
}

func TestIlluminationIterations(t *testing.T) {
	f := newFixture(t)
	f.sphere(t, core.ColorFromRGB(255, 255, 255), mgl32.Vec3{}, 2, geometry.DefaultProps())
	p := NewIlluminationPass(f.ctx, size, size)
	ip := IlluminationProps{Enabled: true, MaxIterations: 3, LightSpread: 0.3}

	n := 0
	for p.ShouldRender(ip) {
		p.Render(f.rc, DefaultProps(), ip, nil)
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, uint8(255), f.pixel(t, 16, 16)[0])
	assert.Greater(t, f.rc.Renderer.Stats().Calls, 0)

	p.Reset()
	assert.True(t, p.ShouldRender(ip))
	assert.False(t, p.ShouldRender(IlluminationProps{}))
}

func TestJitteredLightStaysWithinSpread(t *testing.T) {
	dir := mgl32.Vec3{0, 0, 1}
	assert.Equal(t, dir, jitteredLight(dir, 0, 0.3))
	for i := 1; i < 20; i++ {
		j := jitteredLight(dir, i, 0.3)
		assert.InDelta(t, 1, j.Len(), 1e-4)
		assert.GreaterOrEqual(t, j.Dot(dir), float32(0.95))
	}
}

func TestImagePass(t *testing.T) {
	f := newFixture(t)
	f.sphere(t, core.ColorFromRGB(255, 0, 0), mgl32.Vec3{}, 2, geometry.DefaultProps())
	source := func(w, h int) RenderContext {
		rc := f.rc
		rc.Camera = testCamera{vp: core.Viewport{Width: w, Height: h}}
		return rc
	}
	p := NewImagePass(f.ctx, source, ImageProps{Supersample: 2}, DefaultProps(), false, false)

	img, err := p.GetImageData(16, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	c := img.RGBAAt(8, 8)
	assert.Greater(t, c.R, uint8(200))
	assert.Less(t, c.G, uint8(40))
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)

	_, err = p.GetImageData(5000, 10)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	f.ctx.LoseContextExtension().LoseContext()
	_, err = p.GetImageData(8, 8)
	assert.ErrorIs(t, err, ErrContextLost)
}
