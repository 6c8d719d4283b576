package engine

// Stream is the deterministic random stream carried inside State. All
// randomness in a tick is drawn from here, never from ambient process
// state, so a (seed, actions) pair fully determines the state sequence.
//
// The generator is splitmix64. Cursor counts draws since Seed; it travels
// with snapshots so a restored stream resumes at the exact position.
type Stream struct {
	State  uint64
	Cursor uint64
}

// DrawLimit bounds the number of draws per episode. Exceeding it is an
// engine fault: a single episode drawing this much indicates a runaway
// tick loop, not legitimate use.
const DrawLimit = 1 << 32

func NewStream(seed int64) Stream {
	return Stream{State: uint64(seed)}
}

func (s *Stream) Next() uint64 {
	s.State += 0x9E3779B97F4A7C15
	z := s.State
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	s.Cursor++
	return z ^ (z >> 31)
}

// Float64 returns a draw in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Next()>>11) / (1 << 53)
}

func (s *Stream) Exhausted() bool {
	return s.Cursor >= DrawLimit
}
