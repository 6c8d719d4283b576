// Package engine implements the deterministic football simulation core:
// full game state, a seeded random stream carried inside that state, and a
// pure per-tick advance. For a fixed seed and action sequence the state
// sequence is bit-identical across runs, processes and goroutines.
package engine

import "fmt"

// Build tags the engine's state layout and tick semantics. Snapshots
// carry it; restoring against a different build is a version mismatch,
// never a silent reinterpretation.
const Build = "pitchcraft-sim/1"

// Config holds the immutable per-episode parameters, resolved from a
// scenario before the engine is built.
type Config struct {
	// Formations are absolute kickoff positions, one entry per player.
	LeftFormation  []Vec2
	RightFormation []Vec2

	// How many players of each team are agent-controlled. Controlled
	// players are the leading entries of the formation order.
	LeftAgents  int
	RightAgents int

	BallStart     Vec2
	DurationTicks int
	EndOnScore    bool

	// Deterministic suppresses the policy noise draws of uncontrolled
	// players. The RNG stream is seeded either way; this only changes how
	// often it is consumed.
	Deterministic bool

	// Reversed swaps the left/right roles at the representation boundary:
	// the engine is constructed from the mirrored scenario and processes
	// teams in the opposite order, so a reversed run is the exact point
	// reflection of a normal one.
	Reversed bool
}

type Engine struct {
	cfg Config

	// Kickoff positions after resolving Reversed.
	leftStart  []Vec2
	rightStart []Vec2
	ballStart  Vec2
	order      [2]int
}

func New(cfg Config) (*Engine, error) {
	if len(cfg.LeftFormation) == 0 || len(cfg.RightFormation) == 0 {
		return nil, fmt.Errorf("engine: both teams need at least one player")
	}
	if cfg.LeftAgents < 0 || cfg.LeftAgents > len(cfg.LeftFormation) {
		return nil, fmt.Errorf("engine: left agents %d out of range [0, %d]", cfg.LeftAgents, len(cfg.LeftFormation))
	}
	if cfg.RightAgents < 0 || cfg.RightAgents > len(cfg.RightFormation) {
		return nil, fmt.Errorf("engine: right agents %d out of range [0, %d]", cfg.RightAgents, len(cfg.RightFormation))
	}
	if cfg.DurationTicks <= 0 {
		return nil, fmt.Errorf("engine: duration %d must be positive", cfg.DurationTicks)
	}
	for _, p := range append(append([]Vec2(nil), cfg.LeftFormation...), cfg.RightFormation...) {
		if !inBounds(p) {
			return nil, fmt.Errorf("engine: formation position (%v, %v) outside pitch", p.X, p.Y)
		}
	}

	e := &Engine{cfg: cfg, order: [2]int{TeamLeft, TeamRight}}
	if cfg.Reversed {
		e.leftStart = mirrorFormation(cfg.RightFormation)
		e.rightStart = mirrorFormation(cfg.LeftFormation)
		e.ballStart = cfg.BallStart.Neg()
		e.order = [2]int{TeamRight, TeamLeft}
	} else {
		e.leftStart = append([]Vec2(nil), cfg.LeftFormation...)
		e.rightStart = append([]Vec2(nil), cfg.RightFormation...)
		e.ballStart = cfg.BallStart
	}
	return e, nil
}

func mirrorFormation(f []Vec2) []Vec2 {
	out := make([]Vec2, len(f))
	for i, p := range f {
		out[i] = p.Neg()
	}
	return out
}

func (e *Engine) Config() Config { return e.cfg }

// Agents returns the per-team controlled player counts in engine
// orientation (after Reversed resolution).
func (e *Engine) Agents() (left, right int) {
	if e.cfg.Reversed {
		return e.cfg.RightAgents, e.cfg.LeftAgents
	}
	return e.cfg.LeftAgents, e.cfg.RightAgents
}

// Reset builds the kickoff state. All subsequent randomness derives from
// seed through the stream stored in the returned state.
func (e *Engine) Reset(seed int64) *State {
	st := &State{
		StepsLeft: e.cfg.DurationTicks,
		Rng:       NewStream(seed),
		Owner:     Possession{Team: NoTeam},
	}
	st.Left = Team{Players: playersAt(e.leftStart)}
	st.Right = Team{Players: playersAt(e.rightStart)}
	st.Ball = Ball{Pos: e.ballStart}

	e.contendPossession(st)
	st.KickoffTeam = st.Owner.Team
	for _, ti := range e.order {
		e.updateActive(st, ti)
	}
	return st
}

func playersAt(starts []Vec2) []Player {
	out := make([]Player, len(starts))
	for i, p := range starts {
		out[i] = Player{Pos: p}
	}
	return out
}
