package canvas3d

import (
	"bytes"
	"testing"

	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/input"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerTo("canvas", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	l.Infof("ready")
	l.Warnf("slow")
	l.Errorf("broken: %v", "x")

	assert.Contains(t, out.String(), "[canvas] DEBUG: shown 2")
	assert.Contains(t, out.String(), "[canvas] INFO: ready")
	assert.Contains(t, errOut.String(), "[canvas] WARN: slow")
	assert.Contains(t, errOut.String(), "[canvas] ERROR: broken: x")
	assert.NotContains(t, out.String(), "WARN")
}

func TestDefaultLoggerWithoutPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLoggerTo("", false, &out, &out)
	l.Infof("plain")
	assert.Contains(t, out.String(), "INFO: plain")
	assert.NotContains(t, out.String(), "[")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.SetDebug(true)
	assert.False(t, l.DebugEnabled())
	l.Errorf("dropped")
}

func TestScopedLoggerSharesSinkAndLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	root := NewDefaultLoggerTo("canvas3d:1a2b", false, &out, &errOut)
	commit := root.With("commit")
	assert.Equal(t, "canvas3d:1a2b/commit", commit.Scope())

	commit.Infof("took %s", "3ms")
	commit.Debugf("hidden")
	assert.Contains(t, out.String(), "[canvas3d:1a2b/commit] INFO: took 3ms")
	assert.NotContains(t, out.String(), "hidden")

	root.SetDebug(true)
	assert.True(t, commit.DebugEnabled())
	commit.Debugf("shown")
	assert.Contains(t, out.String(), "[canvas3d:1a2b/commit] DEBUG: shown")

	assert.Equal(t, "plain", NewDefaultLoggerTo("", false, &out, &out).With("plain").Scope())
}

func TestLevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerTo("canvas", true, &out, &errOut)
	l.SetLevel(LevelWarn)
	assert.False(t, l.DebugEnabled())

	l.Infof("dropped")
	l.Warnf("kept")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "[canvas] WARN: kept")

	l.SetDebug(false)
	assert.Equal(t, LevelWarn, l.Level(), "disabling debug never lowers a raised level")
	l.SetDebug(true)
	assert.Equal(t, LevelDebug, l.Level())
}

func TestLevelForMode(t *testing.T) {
	m := NewMode()
	assert.Equal(t, LevelInfo, LevelForMode(m))
	assert.Equal(t, LevelInfo, LevelForMode(nil))

	m.Production = true
	assert.Equal(t, LevelWarn, LevelForMode(m))
	m.Timing = true
	assert.Equal(t, LevelInfo, LevelForMode(m))
	m.Debug = true
	assert.Equal(t, LevelDebug, LevelForMode(m))

	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestCanvasLogsUnderContextScope(t *testing.T) {
	var out bytes.Buffer
	gl := soft.New(soft.Options{Width: testSize, Height: testSize})
	in := input.NewObserver()
	in.SetSize(testSize, testSize)
	mode := NewMode()
	mode.Debug = true
	ctx, err := NewContext(gl, in, WithContextMode(mode), WithContextLogger(NewDefaultLoggerTo("ctx", true, &out, &out)))
	require.NoError(t, err)
	defer ctx.Dispose()
	c, err := New(ctx)
	require.NoError(t, err)
	defer c.Dispose()

	c.Add(sphereRepr(t, mgl32.Vec3{}, 1))
	assert.Contains(t, out.String(), "[ctx/canvas3d:")
	assert.Contains(t, out.String(), "DEBUG: add repr")
}
