package canvas3d

import (
	"errors"
	"testing"
	"time"

	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/input"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, w, h int, opts ...ContextOption) (*Canvas3DContext, *soft.Context) {
	t.Helper()
	gl := soft.New(soft.Options{Width: 1, Height: 1})
	in := input.NewObserver()
	in.SetSize(w, h)
	ctx, err := NewContext(gl, in, append([]ContextOption{WithContextLogger(NewNopLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(ctx.Dispose)
	return ctx, gl
}

func TestNewContextWithoutTarget(t *testing.T) {
	_, err := NewContext(nil, nil)
	assert.True(t, errors.Is(err, ErrNoTarget))
}

func TestContextPixelRatio(t *testing.T) {
	tests := []struct {
		name   string
		mode   ResolutionMode
		dpr    float32
		scale  float32
		buffer [2]int
	}{
		{"auto low density", ResolutionAuto, 1, 1, [2]int{50, 40}},
		{"auto high density", ResolutionAuto, 2, 1, [2]int{50, 40}},
		{"scaled", ResolutionScaled, 2, 1, [2]int{100, 80}},
		{"scaled half", ResolutionScaled, 2, 0.5, [2]int{50, 40}},
		{"native", ResolutionNative, 2, 2, [2]int{100, 80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := DefaultContextProps()
			props.ResolutionMode = tt.mode
			props.PixelScale = tt.scale
			ctx, gl := newTestContext(t, 50, 40, WithContextProps(props), WithDevicePixelRatio(tt.dpr))
			w, h := gl.DrawingBufferSize()
			assert.Equal(t, tt.buffer, [2]int{w, h})
			assert.Equal(t, float32(tt.buffer[0])/50, ctx.PixelRatio())
		})
	}
}

func TestContextHandleResize(t *testing.T) {
	ctx, gl := newTestContext(t, 50, 40)
	ctx.Input.SetSize(30, 20)
	ctx.HandleResize()
	w, h := gl.DrawingBufferSize()
	assert.Equal(t, [2]int{30, 20}, [2]int{w, h})
	cw, _ := ctx.Passes.Draw.ColorTarget().Size()
	assert.Equal(t, 30, cw)
}

func TestContextSetProps(t *testing.T) {
	ctx, _ := newTestContext(t, 32, 32)
	var changed int
	ctx.Changed.Subscribe(func(struct{}) { changed++ })

	ctx.SetProps(PartialContextProps{})
	assert.Zero(t, changed, "no change")

	scale := float32(0.5)
	ctx.SetProps(PartialContextProps{PickScale: &scale})
	assert.Equal(t, 1, changed)
	assert.Equal(t, float32(0.5), ctx.Passes.Pick.Scale())

	draw := ctx.Passes.Draw
	wboit := true
	ctx.SetProps(PartialContextProps{EnableWboit: &wboit})
	assert.NotSame(t, draw, ctx.Passes.Draw, "passes are recreated")
	assert.True(t, ctx.Passes.Draw.HasWboit())

	tr := scene.TransparencyWboit
	ctx.SetProps(PartialContextProps{Transparency: &tr})
	assert.Equal(t, scene.TransparencyWboit, ctx.Props().Transparency)
	assert.Equal(t, 3, changed)

	ctx.SetDevicePixelRatio(1)
	assert.Equal(t, 3, changed)
}

func TestContextLossNeedsDebugMode(t *testing.T) {
	ctx, _ := newTestContext(t, 32, 32)
	_, err := ctx.SimulateContextLoss()
	assert.Error(t, err)

	mode := NewMode()
	mode.Debug = true
	ctx, _ = newTestContext(t, 32, 32, WithContextMode(mode))
	var restored []time.Time
	ctx.ContextRestored.Subscribe(func(t time.Time) { restored = append(restored, t) })

	restore, err := ctx.SimulateContextLoss()
	require.NoError(t, err)
	assert.True(t, ctx.IsContextLost())
	restore()
	assert.False(t, ctx.IsContextLost())
	assert.Len(t, restored, 1)
}

func TestContextDispose(t *testing.T) {
	ctx, _ := newTestContext(t, 32, 32)
	ctx.Dispose()
	ctx.Dispose()
	assert.True(t, ctx.IsDisposed())

	_, err := New(ctx)
	assert.True(t, errors.Is(err, ErrNoTarget))
}

func TestParseResolutionMode(t *testing.T) {
	for _, m := range []ResolutionMode{ResolutionAuto, ResolutionScaled, ResolutionNative} {
		got, err := ParseResolutionMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseResolutionMode("retina")
	assert.Error(t, err)
}
