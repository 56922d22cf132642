package values

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellVersioning(t *testing.T) {
	c := NewCell(1.5)
	assert.Equal(t, 0, c.Version())

	c.Update(1.5)
	assert.Equal(t, 1, c.Version(), "Update always bumps the version")

	assert.False(t, UpdateIfChanged(c, 1.5))
	assert.Equal(t, 1, c.Version())

	assert.True(t, UpdateIfChanged(c, 2.0))
	assert.Equal(t, 2, c.Version())
	assert.Equal(t, 2.0, c.Get())
}

func TestCellUpdateFunc(t *testing.T) {
	c := NewCell([]float32{1, 2, 3})
	assert.False(t, c.UpdateFunc([]float32{1, 2, 3}, slices.Equal[[]float32]))
	assert.True(t, c.UpdateFunc([]float32{1, 2}, slices.Equal[[]float32]))
	assert.Equal(t, 1, c.Version())
}

func TestTracker(t *testing.T) {
	a := NewCell(0)
	b := NewCell("x")
	tr := NewTracker()

	assert.True(t, tr.Changed(a))
	assert.True(t, tr.Changed(b))
	assert.False(t, tr.Changed(a))

	a.Update(1)
	assert.True(t, tr.Changed(a))
	assert.False(t, tr.Changed(b))
	assert.NotEqual(t, a.ID(), b.ID())
}
