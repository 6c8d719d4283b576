package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"math"
	"testing"

	"github.com/klauspost/compress/zstd"

	"pitchcraft.ai/internal/engine"
)

func sampleState(t *testing.T) *engine.State {
	t.Helper()
	eng, err := engine.New(engine.Config{
		LeftFormation:  []engine.Vec2{{X: -0.9, Y: 0}, {X: -0.3, Y: 0.1}},
		RightFormation: []engine.Vec2{{X: 0.9, Y: 0}, {X: 0.3, Y: -0.1}},
		LeftAgents:     1,
		DurationTicks:  100,
		Deterministic:  true,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng.Reset(42)
}

func TestRoundtrip(t *testing.T) {
	st := sampleState(t)
	in := PayloadV1{
		Header:        Header{Scenario: "test"},
		Seed:          42,
		LeftPlayers:   2,
		RightPlayers:  2,
		LeftAgents:    1,
		DurationTicks: 100,
		Deterministic: true,
		State:         st,
	}
	blob, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Header.Version != FormatVersion {
		t.Fatalf("version = %d, want %d", out.Header.Version, FormatVersion)
	}
	if out.Header.Engine != engine.Build {
		t.Fatalf("engine = %q, want %q", out.Header.Engine, engine.Build)
	}
	if out.Header.Scenario != "test" || out.Header.Tick != st.Tick {
		t.Fatalf("header = %+v", out.Header)
	}
	if out.Seed != 42 || out.LeftPlayers != 2 || out.DurationTicks != 100 || !out.Deterministic {
		t.Fatalf("config echo = %+v", out)
	}
	a := engine.Digest(st, true, true)
	b := engine.Digest(out.State, true, true)
	if a != b {
		t.Fatalf("state digest changed across roundtrip: %s vs %s", a, b)
	}
}

// gob decodes -0.0 floats as +0.0. The two are behaviorally equal, so a
// state carrying negative zeros (any mirrored scenario) must still come
// back digest-equal.
func TestRoundtripZeroSign(t *testing.T) {
	st := sampleState(t)
	st.Left.Players[0].Pos = engine.Vec2{X: math.Copysign(0, -1), Y: 0}
	st.Ball.Vel = engine.Vec2{X: math.Copysign(0, -1)}
	before := engine.Digest(st, true, true)

	blob, err := Encode(PayloadV1{Header: Header{Scenario: "test"}, Seed: 42, State: st})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := engine.Digest(out.State, true, true); got != before {
		t.Fatalf("digest changed across round-trip: %s != %s", got, before)
	}
}

func TestEncodeCopiesState(t *testing.T) {
	st := sampleState(t)
	blob, err := Encode(PayloadV1{State: st})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	before := engine.Digest(st, true, true)

	// Mutating the source after capture must not affect the blob.
	st.Score[0] = 99
	st.Ball.Pos.X = 0.5

	out, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := engine.Digest(out.State, true, true); got == engine.Digest(st, true, true) {
		t.Fatal("decoded state tracks source mutations")
	} else if got != before {
		t.Fatal("decoded state differs from state at capture time")
	}
}

func TestVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	bw := bufio.NewWriter(enc)
	hb, _ := json.Marshal(Header{Version: 99, Engine: "other-sim/7"})
	bw.Write(hb)
	bw.WriteByte('\n')
	gob.NewEncoder(bw).Encode(&PayloadV1{})
	bw.Flush()
	enc.Close()

	_, err = Decode(buf.Bytes())
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
	if !IsVersionMismatch(err) {
		t.Fatalf("error not a VersionMismatchError: %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte("not a snapshot")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestFileHelpers(t *testing.T) {
	st := sampleState(t)
	blob, err := Encode(PayloadV1{Seed: 7, State: st})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := t.TempDir() + "/sub/dir/snap.bin"
	if err := WriteFile(path, blob); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatal("file contents differ from blob")
	}
}
