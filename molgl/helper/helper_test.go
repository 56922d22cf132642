package helper

import (
	"testing"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/repr"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCamera() *camera.Camera {
	s := camera.DefaultSnapshot()
	s.Position = mgl32.Vec3{0, 0, 20}
	s.Radius = 10
	return camera.New(s, core.Viewport{Width: 128, Height: 128})
}

func TestCameraHelper(t *testing.T) {
	ctx := soft.New(soft.Options{Width: 128, Height: 128})
	h := NewCameraHelper(ctx, DefaultCameraHelperProps())
	cam := testCamera()

	require.NoError(t, h.Update(cam))
	assert.Zero(t, h.Scene().Count(), "disabled helper draws nothing")

	h.Props.Enabled = true
	require.NoError(t, h.Update(cam))
	require.Equal(t, 1, h.Scene().Count())
	version := h.repr.Version()
	require.NoError(t, h.Update(cam))
	assert.Equal(t, version, h.repr.Version(), "unchanged camera keeps the gizmo")

	id := core.PickingID{ObjectID: h.repr.Object().ID, GroupID: 1}
	l := h.GetLoci(id)
	assert.True(t, repr.LociEqual(repr.DataLoci{Tag: CameraAxesTag, Indices: []int{1}}, l))
	assert.True(t, h.GetLoci(core.PickingID{ObjectID: -1}).IsEmpty())

	assert.True(t, h.Mark(l, geometry.MarkerActionHighlight))
	assert.Equal(t, []uint8{0, geometry.MarkerHighlight, 0}, h.repr.Object().Values.Markers.Get())
	assert.False(t, h.Mark(repr.DataLoci{Tag: HandleTag, Indices: []int{0}}, geometry.MarkerActionHighlight))
	h.SyncMarkers()
	assert.Equal(t, 0, h.Scene().CommitQueueSize())
	assert.InDelta(t, 1.0/3, h.Scene().MarkerAverage(), 1e-6)

	cam.Orbit(0.5, 0)
	cam.Update()
	require.NoError(t, h.Update(cam))
	assert.Greater(t, h.repr.Version(), version)

	h.Props.Enabled = false
	require.NoError(t, h.Update(cam))
	assert.Zero(t, h.Scene().Count())
	h.Dispose()
}

func TestHandleHelper(t *testing.T) {
	ctx := soft.New(soft.Options{Width: 64, Height: 64})
	h := NewHandleHelper(ctx, HandleHelperProps{Enabled: true, Scale: 2})
	h.SetPose(mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent())
	require.NoError(t, h.Update())
	require.Equal(t, 1, h.Scene().Count())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, h.Position())

	bs := h.Scene().BoundingSphere()
	assert.False(t, bs.IsEmpty())
	assert.Greater(t, bs.Center.X(), float32(1))

	assert.True(t, h.Mark(repr.Every, geometry.MarkerActionSelect))
	assert.False(t, h.Mark(repr.DataLoci{Tag: CameraAxesTag, Indices: []int{0}}, geometry.MarkerActionSelect))
	h.Dispose()
	assert.Zero(t, h.Scene().Count())
}

func TestDebugHelper(t *testing.T) {
	ctx := soft.New(soft.Options{Width: 64, Height: 64})
	main := scene.Create(ctx)
	u, err := geometry.UtilsFor(geometry.KindSpheres)
	require.NoError(t, err)
	v, err := u.CreateValues(&geometry.Spheres{Centers: []float32{0, 0, 0, 4, 0, 0}},
		geometry.NewTransformData(), geometry.UniformTheme(0xffffff, 1), geometry.DefaultProps())
	require.NoError(t, err)
	main.Add(renderable.CreateRenderObject(geometry.KindSpheres, v, u.CreateRenderableState(geometry.DefaultProps()), 0))
	require.True(t, main.Commit(0))

	h := NewDebugHelper(ctx, DebugHelperProps{})
	assert.False(t, h.IsEnabled())
	require.NoError(t, h.Update(main))
	assert.Zero(t, h.SphereCount())

	h.Props = DebugHelperProps{SceneBoundingSpheres: true, ObjectBoundingSpheres: true, InstanceBoundingSpheres: true}
	require.NoError(t, h.Update(main))
	assert.Equal(t, 3, h.SphereCount())
	require.Equal(t, 1, h.Scene().Count())
	r := h.Scene().Renderables()[0]
	assert.False(t, r.State().Pickable)
	assert.True(t, r.Transparent())

	h.Props = DebugHelperProps{}
	require.NoError(t, h.Update(main))
	assert.Zero(t, h.Scene().Count())
}
