package protocol

import (
	"math"
	"testing"

	"pitchcraft.ai/internal/engine"
)

func newState(t *testing.T) *engine.State {
	t.Helper()
	eng, err := engine.New(engine.Config{
		LeftFormation:  []engine.Vec2{{X: -0.9, Y: 0}, {X: -0.2, Y: 0.1}},
		RightFormation: []engine.Vec2{{X: 0.9, Y: 0}, {X: 0.2, Y: -0.1}},
		LeftAgents:     1,
		RightAgents:    1,
		DurationTicks:  100,
		Deterministic:  true,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng.Reset(1)
}

func TestFromState(t *testing.T) {
	st := newState(t)
	o := FromState(st, engine.TeamLeft, 0)
	if o.Team != engine.TeamLeft || o.Active != 0 {
		t.Fatalf("obs header = %+v", o)
	}
	if len(o.LeftTeam) != 2 || len(o.RightTeam) != 2 {
		t.Fatalf("team sizes = %d/%d", len(o.LeftTeam), len(o.RightTeam))
	}
	if o.LeftTeam[0][0] != st.Left.Players[0].Pos.X {
		t.Fatal("left team position not raw state value")
	}
	if o.StepsLeft != st.StepsLeft {
		t.Fatalf("steps_left = %d, want %d", o.StepsLeft, st.StepsLeft)
	}
	if o.Designated != st.Left.Active {
		t.Fatalf("designated = %d, want %d", o.Designated, st.Left.Active)
	}
}

func TestObservationsPerAgent(t *testing.T) {
	st := newState(t)
	obs := Observations(st, 1, 1)
	if len(obs) != 2 {
		t.Fatalf("len = %d, want 2", len(obs))
	}
	if obs[0].Team != engine.TeamLeft || obs[1].Team != engine.TeamRight {
		t.Fatalf("team order = %d, %d", obs[0].Team, obs[1].Team)
	}

	// No controlled players still yields a spectator view.
	obs = Observations(st, 0, 0)
	if len(obs) != 1 {
		t.Fatalf("spectator len = %d, want 1", len(obs))
	}
}

func TestDigestStable(t *testing.T) {
	st := newState(t)
	a := Digest(FromState(st, engine.TeamLeft, 0))
	b := Digest(FromState(st, engine.TeamLeft, 0))
	if a != b {
		t.Fatal("digest of identical observations differs")
	}
	st2 := st.Clone()
	st2.Ball.Pos.X += 1e-12
	c := Digest(FromState(st2, engine.TeamLeft, 0))
	if a == c {
		t.Fatal("digest blind to state change")
	}
}

// Reflected views of a zero coordinate produce -0.0; the digest must not
// tell it apart from +0.0 or reversed runs stop matching normal ones.
func TestDigestZeroSign(t *testing.T) {
	st := newState(t)
	a := FromState(st, engine.TeamLeft, 0)
	b := FromState(st, engine.TeamLeft, 0)
	a.Ball = [3]float64{0, 0, 0}
	b.Ball = [3]float64{math.Copysign(0, -1), math.Copysign(0, -1), 0}
	a.LeftTeamDirection[0] = [2]float64{0, 0}
	b.LeftTeamDirection[0] = [2]float64{math.Copysign(0, -1), 0}
	if Digest(a) != Digest(b) {
		t.Fatal("digest distinguishes negative zero from zero")
	}
}

func TestRollingDigest(t *testing.T) {
	var a, b RollingDigest
	a.Add("x")
	a.Add("y")
	b.Add("y")
	b.Add("x")
	if a.Hex() == b.Hex() {
		t.Fatal("rolling digest must be order-sensitive")
	}
	var c RollingDigest
	c.Add("x")
	c.Add("y")
	if a.Hex() != c.Hex() {
		t.Fatal("rolling digest not reproducible")
	}
}
