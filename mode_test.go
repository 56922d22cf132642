package canvas3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsProviders(t *testing.T) {
	m := NewMode()
	var a, b int
	unregisterA := m.RegisterStatsProvider(func(ConsoleStats) { a++ })
	m.RegisterStatsProvider(func(ConsoleStats) { b++ })
	assert.Equal(t, 2, m.ProviderCount())

	m.publish(ConsoleStats{Canvas: "x"})
	unregisterA()
	unregisterA()
	m.publish(ConsoleStats{Canvas: "x"})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, m.ProviderCount())
}

func TestZeroModeAcceptsProviders(t *testing.T) {
	var m Mode
	called := false
	m.RegisterStatsProvider(func(ConsoleStats) { called = true })
	m.publish(ConsoleStats{})
	assert.True(t, called)
}
