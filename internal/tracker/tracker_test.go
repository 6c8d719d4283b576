package tracker

import (
	"testing"

	"pitchcraft.ai/internal/engine"
)

func stateAt(tick, scoreLeft int) *engine.State {
	return &engine.State{
		Tick:      tick,
		StepsLeft: 100 - tick,
		Score:     [2]int{scoreLeft, 0},
		Left:      engine.Team{Players: []engine.Player{{Pos: engine.Vec2{X: -0.1}}}},
		Right:     engine.Team{Players: []engine.Player{{Pos: engine.Vec2{X: 0.1}}}},
		Owner:     engine.Possession{Team: engine.NoTeam},
	}
}

func TestModeTransitions(t *testing.T) {
	tr := New()
	if tr.Mode() != Detached {
		t.Fatalf("fresh tracker mode %v", tr.Mode())
	}
	tr.Attach("env-1")
	if tr.Mode() != Disabled {
		t.Fatalf("attached without session: mode %v", tr.Mode())
	}
	tr.SetSession(1)
	if tr.Mode() != Recording {
		t.Fatalf("after SetSession: mode %v", tr.Mode())
	}
	tr.Disable()
	if tr.Mode() != Disabled {
		t.Fatalf("after Disable: mode %v", tr.Mode())
	}
	tr.SetSession(2)
	if tr.Mode() != Recording {
		t.Fatal("SetSession did not re-enable recording")
	}
	tr.Detach("env-1")
	if tr.Mode() != Detached {
		t.Fatalf("after Detach: mode %v", tr.Mode())
	}
}

func TestRecordIgnoredWithoutSession(t *testing.T) {
	tr := New()
	tr.Attach("env-1")
	tr.Record(1, stateAt(1, 0))
	tr.SetSession(1)
	tr.Disable()
	tr.Record(2, stateAt(2, 0))
	if n := tr.SessionLen(1); n != 0 {
		t.Fatalf("recorded %d entries while not recording", n)
	}
}

func TestLockstepAgreement(t *testing.T) {
	tr := New()
	tr.Attach("a")
	tr.Attach("b")
	for tick := 1; tick <= 5; tick++ {
		tr.SetSession(1)
		tr.Record(tick, stateAt(tick, 0))
		tr.SetSession(2)
		tr.Record(tick, stateAt(tick, 0))
	}
	if pos, _, failed := tr.Failure(); failed {
		t.Fatalf("matching sessions flagged at pos %d", pos)
	}
	if pos, mismatch := tr.Compare(1, 2); mismatch {
		t.Fatalf("Compare flagged pos %d", pos)
	}
	if tr.SessionLen(1) != 5 || tr.SessionLen(2) != 5 {
		t.Fatal("unexpected session lengths")
	}
}

func TestLockstepDivergence(t *testing.T) {
	tr := New()
	tr.Attach("a")
	for tick := 1; tick <= 4; tick++ {
		tr.SetSession(1)
		tr.Record(tick, stateAt(tick, 0))
		tr.SetSession(2)
		score := 0
		if tick == 3 {
			score = 1
		}
		tr.Record(tick, stateAt(tick, score))
	}
	pos, sessions, failed := tr.Failure()
	if !failed {
		t.Fatal("divergence not detected")
	}
	if pos != 3 {
		t.Fatalf("failure at pos %d, want 3", pos)
	}
	if sessions != [2]int{1, 2} {
		t.Fatalf("failure sessions %v", sessions)
	}
	if cpos, mismatch := tr.Compare(1, 2); !mismatch || cpos != 3 {
		t.Fatalf("Compare gave pos=%d mismatch=%v", cpos, mismatch)
	}
}

// Record ordinals, not ticks, drive comparison: a session resumed from a
// later tick still lines up against one recorded from the start.
func TestPositionsAlignAcrossTickOffsets(t *testing.T) {
	tr := New()
	tr.Attach("a")
	tr.SetSession(1)
	tr.Record(1, stateAt(1, 0))
	tr.Record(2, stateAt(2, 0))
	tr.SetSession(2)
	tr.Record(1, stateAt(1, 0))
	tr.Record(2, stateAt(2, 0))
	ents := tr.Session(2)
	if len(ents) != 2 || ents[0].Pos != 1 || ents[1].Pos != 2 {
		t.Fatalf("unexpected entries %+v", ents)
	}
	if _, _, failed := tr.Failure(); failed {
		t.Fatal("aligned sessions flagged")
	}
}

func TestComparisonWindow(t *testing.T) {
	tr := New()
	tr.Attach("a")
	tr.Setup(2, 1, true, true)
	// Pos 1 differs but sits before the window start.
	tr.SetSession(1)
	tr.Record(1, stateAt(1, 1))
	tr.SetSession(2)
	tr.Record(1, stateAt(1, 0))
	if _, _, failed := tr.Failure(); failed {
		t.Fatal("mismatch before window start flagged")
	}
	// Pos 2 is inside the window.
	tr.SetSession(1)
	tr.Record(2, stateAt(2, 1))
	tr.SetSession(2)
	tr.Record(2, stateAt(2, 0))
	if pos, _, failed := tr.Failure(); !failed || pos != 2 {
		t.Fatalf("window mismatch not caught: pos=%d failed=%v", pos, failed)
	}
}

func TestScopedRecording(t *testing.T) {
	tr := New()
	tr.Attach("a")
	tr.Setup(0, 0, true, false)
	a := stateAt(1, 0)
	b := stateAt(1, 0)
	b.Right.Players[0].Pos.X = 0.5
	tr.SetSession(1)
	tr.Record(1, a)
	tr.SetSession(2)
	tr.Record(1, b)
	if _, _, failed := tr.Failure(); failed {
		t.Fatal("left-only recording flagged a right-team difference")
	}
}

func TestResetClearsHistoryAndFailure(t *testing.T) {
	tr := New()
	tr.Attach("a")
	tr.SetSession(1)
	tr.Record(1, stateAt(1, 0))
	tr.SetSession(2)
	tr.Record(1, stateAt(1, 1))
	if _, _, failed := tr.Failure(); !failed {
		t.Fatal("expected failure before reset")
	}
	tr.Reset()
	if _, _, failed := tr.Failure(); failed {
		t.Fatal("failure latch survived reset")
	}
	if tr.SessionLen(1) != 0 || tr.SessionLen(2) != 0 {
		t.Fatal("histories survived reset")
	}
	if tr.Mode() != Disabled {
		t.Fatalf("mode after reset %v, want disabled until next SetSession", tr.Mode())
	}
}
