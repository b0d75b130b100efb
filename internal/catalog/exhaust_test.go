package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExhaustLoopTerminatesOnStability(t *testing.T) {
	loop := newExhaustLoop(500, 3)

	counts := []int{10, 25, 40, 40, 40, 40}
	var done bool
	for i, c := range counts {
		done = loop.Observe(c, false)
		if i < len(counts)-1 {
			assert.False(t, done, "loop must not terminate at observation %d", i+1)
		}
	}

	assert.True(t, done, "loop must terminate after the third consecutive no-change round")
	assert.Equal(t, 6, loop.iterations)
}

func TestExhaustLoopClickResetsStability(t *testing.T) {
	loop := newExhaustLoop(500, 3)

	assert.False(t, loop.Observe(40, false))
	assert.False(t, loop.Observe(40, false))
	assert.False(t, loop.Observe(40, false))
	// A click counts as interaction even with no growth yet.
	assert.False(t, loop.Observe(40, true))
	assert.False(t, loop.Observe(40, false))
	assert.False(t, loop.Observe(40, false))
	assert.True(t, loop.Observe(40, false))
}

func TestExhaustLoopGrowthResetsStability(t *testing.T) {
	loop := newExhaustLoop(500, 3)

	loop.Observe(10, false)
	loop.Observe(10, false)
	loop.Observe(10, false)
	assert.False(t, loop.Observe(12, false), "growth must reset the stable counter")
	assert.False(t, loop.Observe(12, false))
	assert.False(t, loop.Observe(12, false))
	assert.True(t, loop.Observe(12, false))
}

func TestExhaustLoopIterationCap(t *testing.T) {
	loop := newExhaustLoop(5, 3)

	done := false
	// Growing every round never stabilizes; the cap must still end it.
	for i := 1; !done && i < 100; i++ {
		done = loop.Observe(i*10, true)
	}

	assert.True(t, done)
	assert.Equal(t, 5, loop.iterations)
}
