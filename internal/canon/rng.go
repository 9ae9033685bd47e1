package canon

// LCG is the engine's seeded pseudo-random generator: the 32-bit linear
// congruential recurrence x' = (1664525*x + 1013904223) mod 2^32.
//
// The algorithm is part of the engine's compatibility contract. Event IDs
// derive from the draw sequence, so the recurrence is spelled out here
// rather than delegated to math/rand, whose stream is an implementation
// detail of the Go release.
//
// The zero value is a generator seeded with 0. LCG is NOT safe for
// concurrent use; each world owns exactly one.
type LCG struct {
	state uint32
}

// NewLCG returns a generator seeded with the given value.
// The same seed always produces the same draw sequence.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Draw advances the generator and returns a value in [0, 1).
func (g *LCG) Draw() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / (1 << 32)
}

// State returns the current internal state, for world-state snapshots.
func (g *LCG) State() uint32 {
	return g.state
}

// Restore sets the internal state, resuming a previously snapshotted stream.
func (g *LCG) Restore(state uint32) {
	g.state = state
}
