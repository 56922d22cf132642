package canvas3d

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/input"
	"github.com/molcanvas/canvas3d/molgl/passes"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/repr"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 64

var syncTick = TickOptions{IsSynchronous: true}

type testCanvas struct {
	*Canvas3D
	gl *soft.Context
	in *input.Observer
}

func newTestCanvas(t *testing.T, opts ...Option) *testCanvas {
	t.Helper()
	return newTestCanvasWith(t, soft.Options{Width: testSize, Height: testSize}, opts...)
}

func newTestCanvasWith(t *testing.T, glOpts soft.Options, opts ...Option) *testCanvas {
	t.Helper()
	gl := soft.New(glOpts)
	in := input.NewObserver()
	in.SetSize(testSize, testSize)
	mode := NewMode()
	mode.Debug = true
	ctx, err := NewContext(gl, in, WithContextMode(mode), WithContextLogger(NewNopLogger()))
	require.NoError(t, err)
	props := DefaultProps()
	props.CameraFog.Enabled = false
	base := []Option{WithProps(props), WithLogger(NewNopLogger())}
	c, err := New(ctx, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Dispose()
		ctx.Dispose()
	})
	return &testCanvas{Canvas3D: c, gl: gl, in: in}
}

func (c *testCanvas) pixel(t *testing.T, x, y int) []uint8 {
	t.Helper()
	c.gl.BindRenderTarget(nil)
	px := make([]uint8, 4)
	require.NoError(t, c.gl.ReadPixels(x, y, 1, 1, px))
	return px
}

func sphereRepr(t *testing.T, center mgl32.Vec3, radius float32) *repr.ShapeRepresentation {
	t.Helper()
	props := geometry.DefaultProps()
	props.IgnoreLight = true
	r, err := repr.NewShapeRepresentation(repr.Shape{
		Name:       "sphere",
		Geometry:   &geometry.Spheres{Centers: []float32{center.X(), center.Y(), center.Z()}, Padding: radius},
		Transforms: geometry.NewTransformData(),
		Theme:      geometry.UniformTheme(core.ColorFromRGB(255, 0, 0), radius),
		Props:      props,
	})
	require.NoError(t, err)
	return r
}

// claimAll resolves every picking id to Every.
type claimAll struct {
	id      int
	label   string
	updated *event.Subject[int]
}

func newClaimAll(label string) *claimAll {
	return &claimAll{id: repr.NextID(), label: label, updated: event.NewSubject[int]()}
}

func (r *claimAll) ID() int                                    { return r.id }
func (r *claimAll) Label() string                              { return r.label }
func (r *claimAll) RenderObjects() []*renderable.RenderObject  { return nil }
func (r *claimAll) GetLoci(core.PickingID) repr.Loci           { return repr.Every }
func (r *claimAll) Mark(repr.Loci, geometry.MarkerAction) bool { return false }
func (r *claimAll) Updated() *event.Subject[int]               { return r.updated }
func (r *claimAll) Destroy()                                   {}

func TestNewWithoutContext(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, ErrNoTarget))
}

func TestRenderEmptyScene(t *testing.T) {
	c := newTestCanvas(t)
	assert.True(t, c.Render(true), "forced draw clears the buffer")
	assert.False(t, c.Render(false))
	px := c.pixel(t, 32, 32)
	for _, v := range px[:3] {
		assert.Greater(t, v, uint8(250))
	}
}

func TestAddCommitDraw(t *testing.T) {
	c := newTestCanvas(t)
	var commits, draws int
	c.Notifications.Commited.Subscribe(func(time.Duration) { commits++ })
	c.Notifications.DidDraw.Subscribe(func(time.Duration) { draws++ })

	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	assert.Equal(t, 1, commits)
	assert.GreaterOrEqual(t, draws, 1)
	assert.Equal(t, 1, c.Notifications.ReprCount.Value())
	assert.Equal(t, 0, c.Notifications.CommitQueueSize.Value())
	assert.False(t, c.Camera().IsAnimating(), "first reset is immediate")
	assert.Greater(t, c.Camera().State().RadiusMax, float32(0))

	px := c.pixel(t, 32, 32)
	assert.Greater(t, px[0], uint8(200))
	assert.Less(t, px[1], uint8(60))
}

func TestForcedDrawSurvivesPendingFence(t *testing.T) {
	props := DefaultProps()
	props.CameraFog.Enabled = false
	props.Camera.ManualReset = true
	props.MultiSample.Mode = passes.MultiSampleOff
	c := newTestCanvasWith(t, soft.Options{Width: testSize, Height: testSize, FenceLatency: 2}, WithProps(props))

	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)
	// leave a fresh fence behind so the commit below hits it
	drawn := false
	for i := 0; i < 5 && !drawn; i++ {
		drawn = c.Render(true)
	}
	require.True(t, drawn)
	before := c.Stats().Draws

	c.Add(sphereRepr(t, mgl32.Vec3{3, 0, 0}, 2))
	for i := 1; i <= 30; i++ {
		c.Tick(time.Duration(i)*time.Millisecond, syncTick)
	}
	assert.Equal(t, 2, c.Scene().Count())
	assert.Greater(t, c.Stats().Draws, before, "commit of the second sphere must reach the screen")
}

func TestAddIsIdempotent(t *testing.T) {
	c := newTestCanvas(t)
	r := sphereRepr(t, mgl32.Vec3{}, 5)
	c.Add(r)
	c.Tick(0, syncTick)
	allocs := c.gl.Stats().BufferAllocations

	c.Add(r)
	c.Tick(time.Millisecond, syncTick)
	assert.Equal(t, allocs, c.gl.Stats().BufferAllocations)
	assert.Equal(t, 1, c.Scene().Count())
	assert.Len(t, c.Reprs(), 1)
}

func TestReprUpdatedResyncsObjects(t *testing.T) {
	c := newTestCanvas(t)
	r := sphereRepr(t, mgl32.Vec3{}, 5)
	c.Add(r)
	c.Tick(0, syncTick)
	first := r.Object()

	s := r.Shape()
	s.Geometry = &geometry.Points{Centers: []float32{0, 0, 0}}
	require.NoError(t, r.Update(s))
	require.NotSame(t, first, r.Object())
	c.Tick(time.Millisecond, syncTick)

	assert.False(t, c.Scene().Has(first))
	assert.True(t, c.Scene().Has(r.Object()))
	assert.Equal(t, 1, c.Scene().Count())
}

func TestRemoveAndClear(t *testing.T) {
	c := newTestCanvas(t)
	a, b := sphereRepr(t, mgl32.Vec3{}, 2), sphereRepr(t, mgl32.Vec3{10, 0, 0}, 2)
	c.Add(a)
	c.Add(b)
	c.Tick(0, syncTick)
	require.Equal(t, 2, c.Scene().Count())

	c.Remove(a)
	c.Tick(time.Millisecond, syncTick)
	assert.Equal(t, 1, c.Scene().Count())
	assert.Equal(t, []repr.Representation{b}, c.Reprs())

	c.Clear()
	assert.Zero(t, c.Scene().Count())
	assert.Empty(t, c.Reprs())
	assert.Equal(t, 0, c.Notifications.ReprCount.Value())
}

func TestCommitIsTimeBoxed(t *testing.T) {
	var now time.Time
	clock := func() time.Time {
		now = now.Add(100 * time.Millisecond)
		return now
	}
	c := newTestCanvas(t, WithSceneOptions(scene.WithClock(clock)))
	var commits int
	c.Notifications.Commited.Subscribe(func(time.Duration) { commits++ })
	for i := 0; i < 10; i++ {
		c.Add(sphereRepr(t, mgl32.Vec3{float32(i), 0, 0}, 0.5))
	}

	c.Tick(0, TickOptions{})
	assert.Zero(t, commits)
	assert.Greater(t, c.Notifications.CommitQueueSize.Value(), 0)

	ticks := 1
	for commits == 0 && ticks < 20 {
		c.Tick(time.Duration(ticks)*time.Millisecond, TickOptions{})
		ticks++
	}
	assert.Equal(t, 1, commits)
	assert.Greater(t, ticks, 2)
	assert.Equal(t, 10, c.Scene().Count())
	assert.Equal(t, 0, c.Notifications.CommitQueueSize.Value())
}

func TestCameraResetLatestWins(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	long, zero := time.Second, time.Duration(0)
	target := mgl32.Vec3{1, 2, 3}
	c.RequestCameraReset(CameraResetOptions{Duration: &long})
	c.RequestCameraReset(CameraResetOptions{
		Duration: &zero,
		Snapshot: func(s camera.Snapshot) camera.Snapshot {
			s.Target = target
			return s
		},
	})
	c.Tick(10*time.Millisecond, syncTick)

	assert.False(t, c.Camera().IsAnimating())
	assert.Equal(t, target, c.Camera().State().Target)
}

func TestCameraResetAnimates(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	c.RequestCameraReset(CameraResetOptions{
		Snapshot: func(s camera.Snapshot) camera.Snapshot {
			s.Target = mgl32.Vec3{4, 0, 0}
			return s
		},
	})
	c.Tick(10*time.Millisecond, syncTick)
	assert.True(t, c.Camera().IsAnimating())

	c.Tick(time.Second, syncTick)
	assert.False(t, c.Camera().IsAnimating())
	assert.Equal(t, mgl32.Vec3{4, 0, 0}, c.Camera().State().Target)
}

func TestContextLossAndRestore(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	var draws int
	c.Notifications.DidDraw.Subscribe(func(time.Duration) { draws++ })

	restore, err := c.Context().SimulateContextLoss()
	require.NoError(t, err)
	assert.True(t, c.Context().IsContextLost())
	assert.False(t, c.Render(true))
	_, ok := c.Identify(32, 32)
	assert.False(t, ok)

	restore()
	assert.False(t, c.Context().IsContextLost())
	assert.Equal(t, 2, draws, "restore forces two draws")

	c.Draw(DrawOptions{Force: true})
	c.Draw(DrawOptions{Force: true})
	assert.Equal(t, 4, draws)
	px := c.pixel(t, 32, 32)
	assert.Greater(t, px[0], uint8(200))
	assert.Less(t, px[1], uint8(60))
}

func TestPickRoundTrip(t *testing.T) {
	c := newTestCanvas(t)
	r := sphereRepr(t, mgl32.Vec3{}, 5)
	c.Add(r)
	c.Tick(0, syncTick)

	pd, ok := c.Identify(32, 32)
	require.True(t, ok)
	assert.Equal(t, r.Object().ID, pd.ID.ObjectID)

	l := c.GetLoci(pd.ID)
	assert.Equal(t, repr.Representation(r), l.Repr)
	assert.False(t, l.IsEmpty())

	_, ok = c.Identify(1, 1)
	assert.False(t, ok, "background")
}

func TestGetLociFirstMatchWins(t *testing.T) {
	var errOut bytes.Buffer
	c := newTestCanvas(t, WithLogger(NewDefaultLoggerTo("test", false, &bytes.Buffer{}, &errOut)))
	a, b := newClaimAll("a"), newClaimAll("b")
	c.Add(a)
	c.Add(b)

	l := c.GetLoci(core.PickingID{ObjectID: 7})
	assert.Equal(t, repr.Representation(a), l.Repr)
	assert.Contains(t, errOut.String(), "keeping the first")
}

func TestMarksCoalesce(t *testing.T) {
	c := newTestCanvas(t)
	r := sphereRepr(t, mgl32.Vec3{}, 5)
	c.Add(r)
	c.Tick(0, syncTick)

	o := r.Object()
	loci := repr.ReprLoci{
		Loci: repr.GroupLoci{ObjectID: o.ID, Elements: []repr.GroupElement{{Instance: 0, Groups: []int{0}}}},
		Repr: r,
	}
	before := c.Scene().Stats().UpdateCalls
	for i := 0; i < 5; i++ {
		c.Mark(loci, geometry.MarkerActionToggle)
	}
	c.Draw(DrawOptions{})

	assert.LessOrEqual(t, c.Scene().Stats().UpdateCalls-before, 1)
	assert.Equal(t, []uint8{geometry.MarkerSelect}, o.Values.Markers.Get())
}

func TestMarkWithoutChangeDoesNotUpdate(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	before := c.Scene().Stats().UpdateCalls
	c.Mark(repr.ReprLoci{Loci: repr.Every}, geometry.MarkerActionClear)
	c.Draw(DrawOptions{})
	assert.Equal(t, before, c.Scene().Stats().UpdateCalls)
}

func TestPauseSuppressesDraw(t *testing.T) {
	c := newTestCanvas(t)
	c.Animate()
	assert.True(t, c.IsRunning())

	c.Pause(true)
	assert.False(t, c.IsRunning())
	assert.False(t, c.Render(true))

	c.Resume()
	assert.True(t, c.Render(true))
}

func TestResize(t *testing.T) {
	c := newTestCanvas(t)
	var resized int
	c.Notifications.Resized.Subscribe(func(struct{}) { resized++ })

	c.in.SetSize(128, 32)
	assert.True(t, c.Render(false))
	assert.Equal(t, 1, resized)
	w, h := c.gl.DrawingBufferSize()
	assert.Equal(t, []int{128, 32}, []int{w, h})
	assert.Equal(t, core.Viewport{Width: 128, Height: 32}, c.Camera().Viewport())
}

func TestViewportFrame(t *testing.T) {
	c := newTestCanvas(t)
	vp := ViewportProps{Kind: ViewportRelativeFrame, X: 0.5, Y: 0, Width: 0.5, Height: 0.5}
	require.True(t, c.SetProps(PartialProps{Viewport: &vp}, false))
	assert.Equal(t, core.Viewport{X: 32, Y: 32, Width: 32, Height: 32}, c.Camera().Viewport())
}

func TestSetProps(t *testing.T) {
	c := newTestCanvas(t)
	cp := c.Props().Camera
	cp.FOV = 60
	cp.Mode = camera.Orthographic
	assert.True(t, c.SetProps(PartialProps{Camera: &cp}, false))
	assert.InDelta(t, mgl32.DegToRad(60), c.Camera().State().FOV, 1e-6)
	assert.Equal(t, camera.Orthographic, c.Camera().State().Mode)

	assert.False(t, c.SetProps(PartialProps{Camera: &cp}, false), "no change")

	fog := CameraFogProps{Enabled: true, Intensity: 20}
	assert.True(t, c.SetProps(PartialProps{CameraFog: &fog}, true))
	assert.Equal(t, float32(20), c.Camera().State().Fog)
}

func TestPropsIsACopy(t *testing.T) {
	c := newTestCanvas(t)
	p := c.Props()
	assert.Equal(t, float32(45), p.Camera.FOV)
	assert.Equal(t, DefaultProps().Renderer.LightDirection, p.Renderer.LightDirection)
	assert.Equal(t, DefaultProps().Camera.Stereo.EyeSeparation, p.Camera.Stereo.EyeSeparation)

	p.Camera.FOV = 90
	assert.Equal(t, float32(45), c.Props().Camera.FOV)
}

func TestStereoRender(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	cp := c.Props().Camera
	cp.Stereo.Enabled = true
	c.SetProps(PartialProps{Camera: &cp}, false)
	assert.True(t, c.Render(false))
	assert.Equal(t, 32, c.StereoCamera().Left.Viewport().Width)
	assert.Equal(t, 32, c.StereoCamera().Right.Viewport().X)
}

func TestHoverAndClick(t *testing.T) {
	c := newTestCanvas(t)
	r := sphereRepr(t, mgl32.Vec3{}, 5)
	c.Add(r)
	c.Tick(0, syncTick)

	var hovers []HoverEvent
	var clicks []ClickEvent
	c.Interaction().Hover.Subscribe(func(e HoverEvent) { hovers = append(hovers, e) })
	c.Interaction().Click.Subscribe(func(e ClickEvent) { clicks = append(clicks, e) })

	c.in.PointerMove(32, 32)
	c.Tick(time.Second, TickOptions{})
	require.Len(t, hovers, 1)
	assert.Equal(t, repr.Representation(r), hovers[0].Current.Repr)

	c.in.PointerDown(32, 32, input.ButtonPrimary)
	c.in.PointerUp(32, 32, input.ButtonPrimary)
	c.Tick(2*time.Second, TickOptions{})
	require.Len(t, clicks, 1)
	assert.Equal(t, repr.Representation(r), clicks[0].Current.Repr)
	assert.Equal(t, input.ButtonPrimary, clicks[0].Button)
}

func TestConsoleStatsProvider(t *testing.T) {
	c := newTestCanvas(t)
	var got []ConsoleStats
	unregister := c.Context().Mode().RegisterStatsProvider(func(s ConsoleStats) { got = append(got, s) })
	defer unregister()

	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Stats.ReprCount)
	assert.Equal(t, c.ID().String(), got[0].Canvas)
	assert.Contains(t, got[0].Timings, "commit")
}

func TestImagePass(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Tick(0, syncTick)

	img, err := c.ImagePass(passes.ImageProps{}).GetImageData(16, 8)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestDisposeIsIdempotent(t *testing.T) {
	c := newTestCanvas(t)
	c.Add(sphereRepr(t, mgl32.Vec3{}, 5))
	c.Dispose()
	c.Dispose()
	assert.True(t, c.IsDisposed())
	assert.False(t, c.Render(true))
	c.Tick(0, syncTick)
	assert.Empty(t, c.Reprs())
}
