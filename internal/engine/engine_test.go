package engine

import (
	"math"
	"testing"

	"pitchcraft.ai/internal/action"
)

// asymmetric 2v2 layout so mirror tests cannot pass by accident.
func testConfig() Config {
	return Config{
		LeftFormation:  []Vec2{{-0.1, 0.05}, {-0.8, -0.2}},
		RightFormation: []Vec2{{0.3, -0.1}, {0.9, 0.3}},
		LeftAgents:     1,
		RightAgents:    1,
		DurationTicks:  200,
	}
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"empty left", func(c *Config) { c.LeftFormation = nil }},
		{"agents over roster", func(c *Config) { c.LeftAgents = 3 }},
		{"negative agents", func(c *Config) { c.RightAgents = -1 }},
		{"zero duration", func(c *Config) { c.DurationTicks = 0 }},
		{"off pitch", func(c *Config) { c.RightFormation[0] = Vec2{2, 0} }},
	}
	for _, tc := range cases {
		cfg := testConfig()
		tc.mod(&cfg)
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestResetDeterministic(t *testing.T) {
	e := mustEngine(t, testConfig())
	a := e.Reset(7)
	b := e.Reset(7)
	if Digest(a, true, true) != Digest(b, true, true) {
		t.Fatal("same seed produced different kickoff states")
	}
	c := e.Reset(8)
	if Digest(a, true, true) == Digest(c, true, true) {
		t.Fatal("different seeds produced identical states")
	}
	if a.StepsLeft != 200 || a.Tick != 0 || a.Done {
		t.Fatalf("unexpected kickoff counters: %+v", a)
	}
}

func TestAdvanceDeterministic(t *testing.T) {
	run := func() []string {
		e := mustEngine(t, testConfig())
		st := e.Reset(42)
		var digests []string
		for i := 0; i < 50; i++ {
			la := []action.Code{action.Code(i % action.NumCodes)}
			ra := []action.Code{action.Code((i + 5) % action.NumCodes)}
			if _, err := e.Advance(st, la, ra); err != nil {
				t.Fatalf("advance tick %d: %v", i, err)
			}
			digests = append(digests, Digest(st, true, true))
		}
		return digests
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at tick %d", i+1)
		}
	}
}

func TestCloneIsolation(t *testing.T) {
	e := mustEngine(t, testConfig())
	st := e.Reset(1)
	snap := st.Clone()
	before := Digest(snap, true, true)
	for i := 0; i < 10; i++ {
		if _, err := e.Advance(st, []action.Code{action.Right}, []action.Code{action.Left}); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if Digest(snap, true, true) != before {
		t.Fatal("advancing the live state mutated the clone")
	}
}

func TestAdvanceAfterDoneIsFault(t *testing.T) {
	cfg := testConfig()
	cfg.DurationTicks = 1
	e := mustEngine(t, cfg)
	st := e.Reset(3)
	done, err := e.Advance(st, []action.Code{action.Idle}, []action.Code{action.Idle})
	if err != nil || !done {
		t.Fatalf("first advance: done=%v err=%v", done, err)
	}
	if _, err := e.Advance(st, []action.Code{action.Idle}, []action.Code{action.Idle}); !IsFault(err) {
		t.Fatalf("expected fault, got %v", err)
	}
}

func TestAdvanceActionCountMismatch(t *testing.T) {
	e := mustEngine(t, testConfig())
	st := e.Reset(3)
	if _, err := e.Advance(st, []action.Code{action.Idle, action.Idle}, []action.Code{action.Idle}); !IsFault(err) {
		t.Fatalf("expected fault on action count mismatch, got %v", err)
	}
}

func TestMovementFollowsCommand(t *testing.T) {
	e := mustEngine(t, testConfig())
	st := e.Reset(9)
	x0 := st.Left.Players[0].Pos.X
	for i := 0; i < 5; i++ {
		if _, err := e.Advance(st, []action.Code{action.Right}, []action.Code{action.Idle}); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if st.Left.Players[0].Pos.X <= x0 {
		t.Fatalf("player commanded right did not move right: %v -> %v", x0, st.Left.Players[0].Pos.X)
	}
	// Sticky direction: idle keeps the player moving.
	x1 := st.Left.Players[0].Pos.X
	if _, err := e.Advance(st, []action.Code{action.Idle}, []action.Code{action.Idle}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if st.Left.Players[0].Pos.X <= x1 {
		t.Fatal("sticky direction did not persist through idle")
	}
	// release_direction stops further drift.
	if _, err := e.Advance(st, []action.Code{action.ReleaseDirection}, []action.Code{action.Idle}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	x2 := st.Left.Players[0].Pos.X
	if _, err := e.Advance(st, []action.Code{action.Idle}, []action.Code{action.Idle}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if st.Left.Players[0].Pos.X != x2 {
		t.Fatal("player kept moving after release_direction")
	}
}

func TestMirrorInvolution(t *testing.T) {
	e := mustEngine(t, testConfig())
	st := e.Reset(11)
	for i := 0; i < 7; i++ {
		if _, err := e.Advance(st, []action.Code{action.TopRight}, []action.Code{action.Shot}); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	twice := MirrorState(MirrorState(st))
	if Digest(twice, true, true) != Digest(st, true, true) {
		t.Fatal("mirror applied twice is not the identity")
	}
	once := MirrorState(st)
	if once.Score[0] != st.Score[1] || once.Score[1] != st.Score[0] {
		t.Fatal("mirror did not swap score")
	}
	if once.Left.Players[0].Pos != st.Right.Players[0].Pos.Neg() {
		t.Fatal("mirror did not negate positions")
	}
}

// A reversed engine driven with swapped, mirrored actions must stay the
// exact point reflection of the normal engine, tick for tick.
func TestReversedIsExactReflection(t *testing.T) {
	cfg := testConfig()
	norm := mustEngine(t, cfg)
	rcfg := cfg
	rcfg.Reversed = true
	rev := mustEngine(t, rcfg)

	ns := norm.Reset(21)
	rs := rev.Reset(21)

	mirrorCodes := func(in []action.Code) []action.Code {
		out := make([]action.Code, len(in))
		for i, c := range in {
			out[i] = c.Mirror()
		}
		return out
	}
	check := func(tick int) {
		t.Helper()
		if Digest(MirrorState(rs), true, true) != Digest(ns, true, true) {
			t.Fatalf("reflection broke at tick %d", tick)
		}
	}
	check(0)
	for i := 0; i < 40; i++ {
		la := []action.Code{action.Code(i % action.NumCodes)}
		ra := []action.Code{action.Code((i + 3) % action.NumCodes)}
		if _, err := norm.Advance(ns, la, ra); err != nil {
			t.Fatalf("normal advance: %v", err)
		}
		if _, err := rev.Advance(rs, mirrorCodes(ra), mirrorCodes(la)); err != nil {
			t.Fatalf("reversed advance: %v", err)
		}
		check(i + 1)
	}
}

func TestDigestScopes(t *testing.T) {
	e := mustEngine(t, testConfig())
	a := e.Reset(5)
	b := a.Clone()
	b.Right.Players[0].Pos.X += 0.01
	if Digest(a, true, true) == Digest(b, true, true) {
		t.Fatal("full digest missed a right-team change")
	}
	if Digest(a, true, false) != Digest(b, true, false) {
		t.Fatal("left-only digest picked up a right-team change")
	}
}

// Mirrored construction negates coordinates, so a zero becomes -0.0.
// Such states behave identically and must digest identically.
func TestDigestZeroSign(t *testing.T) {
	e := mustEngine(t, testConfig())
	a := e.Reset(5)
	b := a.Clone()
	a.Left.Players[0].Pos = Vec2{}
	a.Ball.Vel = Vec2{}
	b.Left.Players[0].Pos = Vec2{X: math.Copysign(0, -1), Y: math.Copysign(0, -1)}
	b.Ball.Vel = Vec2{X: math.Copysign(0, -1)}
	if Digest(a, true, true) != Digest(b, true, true) {
		t.Fatal("digest distinguishes negative zero from zero")
	}
}

func TestStreamDeterminism(t *testing.T) {
	a, b := NewStream(99), NewStream(99)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("streams diverged at draw %d", i)
		}
	}
	s := NewStream(1)
	if s.Exhausted() {
		t.Fatal("fresh stream reported exhausted")
	}
	for i := 0; i < 100; i++ {
		f := s.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
	}
}
