package canvas3d

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/controls"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/passes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSetsOnlyGivenSections(t *testing.T) {
	base := DefaultProps()
	fog := CameraFogProps{Enabled: false, Intensity: 3}
	radius := float32(2)
	got := base.Merge(PartialProps{CameraFog: &fog, SceneRadiusFactor: &radius})

	assert.Equal(t, fog, got.CameraFog)
	assert.Equal(t, float32(2), got.SceneRadiusFactor)
	assert.Equal(t, base.Camera, got.Camera)
	assert.Equal(t, base.Renderer, got.Renderer)
	assert.Equal(t, float32(1), base.SceneRadiusFactor, "receiver is unchanged")
	assert.Zero(t, got.fog())
}

func TestViewportResolve(t *testing.T) {
	tests := []struct {
		name  string
		props ViewportProps
		ratio float32
		want  core.Viewport
	}{
		{"canvas", ViewportProps{}, 1, core.Viewport{Width: 100, Height: 80}},
		{"static", ViewportProps{Kind: ViewportStaticFrame, X: 10, Y: 20, Width: 30, Height: 40}, 1, core.Viewport{X: 10, Y: 20, Width: 30, Height: 40}},
		{"static scaled", ViewportProps{Kind: ViewportStaticFrame, X: 5, Y: 0, Width: 10, Height: 10}, 2, core.Viewport{X: 10, Y: 60, Width: 20, Height: 20}},
		{"relative", ViewportProps{Kind: ViewportRelativeFrame, X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5}, 1, core.Viewport{X: 50, Y: 0, Width: 50, Height: 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.props.resolve(100, 80, tt.ratio))
		})
	}
}

func TestParseViewportKind(t *testing.T) {
	for _, k := range []ViewportKind{ViewportCanvas, ViewportStaticFrame, ViewportRelativeFrame} {
		got, err := ParseViewportKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseViewportKind("window")
	assert.Error(t, err)
}

const propsTOML = `
[camera]
mode = "orthographic"
fov = 60
reset_ms = 500

[render]
background = 0x000000
multi_sample = "on"
hi_z = true

[trackball]
animate = "spin"
`

func TestDecodeProps(t *testing.T) {
	base := DefaultProps()
	pp, err := DecodeProps([]byte(propsTOML), base)
	require.NoError(t, err)

	require.NotNil(t, pp.Camera)
	assert.Equal(t, camera.Orthographic, pp.Camera.Mode)
	assert.Equal(t, float32(60), pp.Camera.FOV)
	assert.Equal(t, base.Camera.Stereo, pp.Camera.Stereo)
	require.NotNil(t, pp.CameraResetDuration)
	assert.Equal(t, 500*time.Millisecond, *pp.CameraResetDuration)
	require.NotNil(t, pp.Renderer)
	assert.Equal(t, core.Color(0), pp.Renderer.BackgroundColor)
	assert.Equal(t, base.Renderer.SelectColor, pp.Renderer.SelectColor)
	require.NotNil(t, pp.MultiSample)
	assert.Equal(t, passes.MultiSampleOn, pp.MultiSample.Mode)
	require.NotNil(t, pp.HiZ)
	assert.True(t, pp.HiZ.Enabled)
	require.NotNil(t, pp.Trackball)
	assert.Equal(t, controls.AnimateSpin, pp.Trackball.Animate.Mode)

	assert.Nil(t, pp.CameraFog)
	assert.Nil(t, pp.Viewport)
	assert.Nil(t, pp.Debug)
}

func TestDecodePropsErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":      "[camera\nfov = 1",
		"camera mode": "[camera]\nmode = \"fisheye\"",
		"viewport":    "[viewport]\nkind = \"window\"",
		"multisample": "[render]\nmulti_sample = \"max\"",
		"animate":     "[trackball]\nanimate = \"bounce\"",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProps([]byte(src), DefaultProps())
			assert.Error(t, err)
		})
	}
}

func TestEncodedDefaultsDecodeToNoChange(t *testing.T) {
	data, err := EncodeProps(DefaultProps())
	require.NoError(t, err)
	pp, err := DecodeProps(data, DefaultProps())
	require.NoError(t, err)
	assert.Equal(t, PartialProps{}, pp)
}

func TestLoadPropsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.toml")
	require.NoError(t, os.WriteFile(path, []byte("[debug]\nhandle = true\nhover_max_fps = 10\n"), 0o644))

	pp, err := LoadPropsFile(path, DefaultProps())
	require.NoError(t, err)
	require.NotNil(t, pp.Handle)
	assert.True(t, pp.Handle.Enabled)
	require.NotNil(t, pp.Interaction)
	assert.Equal(t, 10, pp.Interaction.MaxFps)

	_, err = LoadPropsFile(filepath.Join(t.TempDir(), "missing.toml"), DefaultProps())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
