package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLCGKnownSequence(t *testing.T) {
	g := NewLCG(7)
	g.Draw()
	// x' = (7*1664525 + 1013904223) mod 2^32
	assert.Equal(t, uint32(1025555898), g.State())
}

func TestLCGDeterministic(t *testing.T) {
	a := NewLCG(42)
	b := NewLCG(42)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, a.Draw(), b.Draw(), "draw %d diverged", i)
	}
}

func TestLCGRange(t *testing.T) {
	g := NewLCG(123)
	for i := 0; i < 10000; i++ {
		v := g.Draw()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestLCGSnapshotRestore(t *testing.T) {
	g := NewLCG(99)
	g.Draw()
	g.Draw()
	state := g.State()
	next := g.Draw()

	resumed := NewLCG(0)
	resumed.Restore(state)
	assert.Equal(t, next, resumed.Draw())
}

func TestLCGSeedsDiverge(t *testing.T) {
	a := NewLCG(1)
	b := NewLCG(2)
	assert.NotEqual(t, a.Draw(), b.Draw())
}
