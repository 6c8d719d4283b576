package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"pitchcraft.ai/internal/engine"
)

// Observation is the keyed view of one tick handed to one controlled
// player. Positions are raw state values, no scaling or clipping; the
// same tick produces byte-identical observations on every run.
type Observation struct {
	Team   int `json:"team"`
	Active int `json:"active"`
	// Designated is the index of the player the team logic considers in
	// control of the ball situation (closest to the ball).
	Designated int `json:"designated"`

	Ball            [3]float64 `json:"ball"`
	BallDirection   [3]float64 `json:"ball_direction"`
	BallOwnedTeam   int        `json:"ball_owned_team"`
	BallOwnedPlayer int        `json:"ball_owned_player"`

	LeftTeam            [][2]float64 `json:"left_team"`
	LeftTeamDirection   [][2]float64 `json:"left_team_direction"`
	LeftTeamTiredFactor []float64    `json:"left_team_tired_factor"`

	RightTeam            [][2]float64 `json:"right_team"`
	RightTeamDirection   [][2]float64 `json:"right_team_direction"`
	RightTeamTiredFactor []float64    `json:"right_team_tired_factor"`

	Score     [2]int `json:"score"`
	StepsLeft int    `json:"steps_left"`
}

// FromState formats the observation for one controlled player.
func FromState(st *engine.State, team, player int) Observation {
	o := Observation{
		Team:            team,
		Active:          player,
		Ball:            [3]float64{st.Ball.Pos.X, st.Ball.Pos.Y, st.Ball.Z},
		BallDirection:   [3]float64{st.Ball.Vel.X, st.Ball.Vel.Y, st.Ball.VZ},
		BallOwnedTeam:   st.Owner.Team,
		BallOwnedPlayer: st.Owner.Player,
		Score:           st.Score,
		StepsLeft:       st.StepsLeft,
	}
	o.LeftTeam, o.LeftTeamDirection, o.LeftTeamTiredFactor = teamView(&st.Left)
	o.RightTeam, o.RightTeamDirection, o.RightTeamTiredFactor = teamView(&st.Right)
	if team == engine.TeamRight {
		o.Designated = st.Right.Active
	} else {
		o.Designated = st.Left.Active
	}
	return o
}

// Observations formats one observation per controlled player, left-team
// agents first. A scenario with no controlled players still yields one
// spectator observation so callers can watch the match.
func Observations(st *engine.State, leftAgents, rightAgents int) []Observation {
	if leftAgents == 0 && rightAgents == 0 {
		return []Observation{FromState(st, engine.TeamLeft, 0)}
	}
	out := make([]Observation, 0, leftAgents+rightAgents)
	for i := 0; i < leftAgents; i++ {
		out = append(out, FromState(st, engine.TeamLeft, i))
	}
	for i := 0; i < rightAgents; i++ {
		out = append(out, FromState(st, engine.TeamRight, i))
	}
	return out
}

func teamView(t *engine.Team) (pos, dir [][2]float64, tired []float64) {
	pos = make([][2]float64, len(t.Players))
	dir = make([][2]float64, len(t.Players))
	tired = make([]float64, len(t.Players))
	for i := range t.Players {
		p := &t.Players[i]
		pos[i] = [2]float64{p.Pos.X, p.Pos.Y}
		dir[i] = [2]float64{p.Dir.X, p.Dir.Y}
		tired[i] = p.TiredFactor
	}
	return pos, dir, tired
}

// Digest hashes an observation over a canonical little-endian encoding.
// Equal observations always hash equal, across runs and platforms.
func Digest(o Observation) string {
	h := sha256.New()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	f64 := func(v float64) {
		// Negative zero hashes as zero, matching the engine digest.
		if v == 0 {
			v = 0
		}
		u64(math.Float64bits(v))
	}
	i64 := func(v int) { u64(uint64(int64(v))) }

	i64(o.Team)
	i64(o.Active)
	i64(o.Designated)
	for _, v := range o.Ball {
		f64(v)
	}
	for _, v := range o.BallDirection {
		f64(v)
	}
	i64(o.BallOwnedTeam)
	i64(o.BallOwnedPlayer)
	side := func(pos, dir [][2]float64, tired []float64) {
		i64(len(pos))
		for i := range pos {
			f64(pos[i][0])
			f64(pos[i][1])
			f64(dir[i][0])
			f64(dir[i][1])
			f64(tired[i])
		}
	}
	side(o.LeftTeam, o.LeftTeamDirection, o.LeftTeamTiredFactor)
	side(o.RightTeam, o.RightTeamDirection, o.RightTeamTiredFactor)
	i64(o.Score[0])
	i64(o.Score[1])
	i64(o.StepsLeft)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestAll hashes a full observation batch for one tick.
func DigestAll(obs []Observation) string {
	h := sha256.New()
	for _, o := range obs {
		h.Write([]byte(Digest(o)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RollingDigest folds per-tick digests into one episode hash. Order
// matters; the zero value is ready to use.
type RollingDigest struct {
	sum  [sha256.Size]byte
	used bool
}

func (r *RollingDigest) Add(digest string) {
	h := sha256.New()
	if r.used {
		h.Write(r.sum[:])
	}
	h.Write([]byte(digest))
	h.Sum(r.sum[:0])
	r.used = true
}

func (r *RollingDigest) Hex() string {
	return hex.EncodeToString(r.sum[:])
}
