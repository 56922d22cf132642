package canvas3d

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerScopes(t *testing.T) {
	p := NewProfiler()
	var now time.Time
	p.now = func() time.Time {
		now = now.Add(5 * time.Millisecond)
		return now
	}

	p.BeginScope("render")
	p.EndScope("render")
	p.BeginScope("commit")
	p.EndScope("commit")
	p.EndScope("never-begun")
	p.SetCount("reprs", 3)
	p.SetCount("buffers", 7)

	assert.Equal(t, 5*time.Millisecond, p.Scope("render"))
	assert.Equal(t, 3, p.Count("reprs"))
	assert.Zero(t, p.Scope("never-begun"))

	s := p.GetStatsString()
	assert.Less(t, strings.Index(s, "render"), strings.Index(s, "commit"), "scopes keep first-use order")
	assert.Less(t, strings.Index(s, "buffers"), strings.Index(s, "reprs"), "counts are sorted")
	assert.Contains(t, s, "5.00 ms")

	p.Reset()
	assert.Zero(t, p.Scope("render"))
	assert.Contains(t, p.GetStatsString(), "render")
}
