package engine

// Pitch geometry in normalized coordinates. The playing surface spans
// x in [-PitchHalfX, PitchHalfX] and y in [-PitchHalfY, PitchHalfY];
// goals sit on the x boundaries with |y| <= GoalHalfWidth. Positions may
// drift up to BoundsMargin past the boundary during a bounce; anything
// beyond that is an engine fault, not normal operation.
const (
	PitchHalfX    = 1.0
	PitchHalfY    = 0.42
	GoalHalfWidth = 0.044
	BoundsMargin  = 0.05
)

// NoTeam marks the ball as loose. TeamLeft and TeamRight index Score and
// the two team slices everywhere.
const (
	NoTeam    = -1
	TeamLeft  = 0
	TeamRight = 1
)

// Player is one team member's mutable per-tick record.
type Player struct {
	Pos Vec2 `json:"pos"`
	// Dir is the movement actually performed last tick (velocity).
	Dir Vec2 `json:"dir"`
	// MoveDir is the commanded direction; sticky until release_direction.
	MoveDir     Vec2    `json:"move_dir"`
	TiredFactor float64 `json:"tired_factor"`
	Sprinting   bool    `json:"sprinting"`
	// KickCooldown blocks immediate re-possession after a kick.
	KickCooldown int `json:"kick_cooldown,omitempty"`
}

// Team is an ordered player sequence plus the index of the active
// (ball-nearest) player.
type Team struct {
	Players []Player `json:"players"`
	Active  int      `json:"active"`
}

// Ball carries a 3D position: x/y on the pitch plane, Z height for lobbed
// balls. Mirroring negates x/y only.
type Ball struct {
	Pos Vec2    `json:"pos"`
	Z   float64 `json:"z"`
	Vel Vec2    `json:"vel"`
	VZ  float64 `json:"vz"`
}

// Possession identifies the player currently on the ball.
type Possession struct {
	Team   int `json:"team"` // NoTeam when loose
	Player int `json:"player"`
}

// State is the full simulation state. Advance mutates it tick by tick;
// Clone and the snapshot payload cover every field, including the RNG
// stream position, so a restored state continues bit-identically.
type State struct {
	Tick      int    `json:"tick"`
	StepsLeft int    `json:"steps_left"`
	Score     [2]int `json:"score"`

	Ball  Ball `json:"ball"`
	Left  Team `json:"left"`
	Right Team `json:"right"`

	Owner       Possession `json:"owner"`
	KickoffTeam int        `json:"kickoff_team"`

	Rng  Stream `json:"rng"`
	Done bool   `json:"done"`
}

func (s *State) team(idx int) *Team {
	if idx == TeamLeft {
		return &s.Left
	}
	return &s.Right
}

// Clone deep-copies the state. Cheap ownership transfer for trackers and
// snapshot capture between ticks.
func (s *State) Clone() *State {
	out := *s
	out.Left.Players = append([]Player(nil), s.Left.Players...)
	out.Right.Players = append([]Player(nil), s.Right.Players...)
	return &out
}

func inBounds(p Vec2) bool {
	return p.X >= -PitchHalfX-BoundsMargin && p.X <= PitchHalfX+BoundsMargin &&
		p.Y >= -PitchHalfY-BoundsMargin && p.Y <= PitchHalfY+BoundsMargin
}
