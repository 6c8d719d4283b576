// Command replay re-drives an episode from its log and verifies every
// per-tick observation digest, reporting the first divergence. With
// -snapshot it resumes from a stored blob instead of a fresh reset and
// verifies only the ticks after the snapshot.
package main

import (
	"flag"
	"fmt"
	"os"

	"pitchcraft.ai/internal/action"
	"pitchcraft.ai/internal/engine"
	persistlog "pitchcraft.ai/internal/persistence/log"
	"pitchcraft.ai/internal/persistence/snapshot"
	"pitchcraft.ai/internal/protocol"
	"pitchcraft.ai/internal/scenario"
)

func main() {
	var (
		logPath  = flag.String("log", "", "path to episode-*.jsonl.zst")
		snapPath = flag.String("snapshot", "", "snapshot blob to resume from (optional)")
		level    = flag.String("level", "", "scenario (default: snapshot header, else required)")
		reversed = flag.Bool("reversed", false, "episode was recorded with reverse team processing")
	)
	flag.Parse()

	if *logPath == "" {
		fmt.Fprintln(os.Stderr, "missing -log")
		os.Exit(2)
	}

	entries, err := persistlog.ReadEpisode(*logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read episode log:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "empty episode log")
		os.Exit(1)
	}

	var snap snapshot.PayloadV1
	haveSnap := false
	if *snapPath != "" {
		blob, err := snapshot.ReadFile(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		snap, err = snapshot.Decode(blob)
		if err != nil {
			fmt.Fprintln(os.Stderr, "decode snapshot:", err)
			os.Exit(1)
		}
		haveSnap = true
		fmt.Printf("snapshot v%d scenario=%s tick=%d seed=%d\n",
			snap.Header.Version, snap.Header.Scenario, snap.Header.Tick, snap.Seed)
	}

	name := *level
	if name == "" && haveSnap {
		name = snap.Header.Scenario
	}
	sc, err := scenario.Load(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}
	eng, err := engine.New(sc.EngineConfig(*reversed))
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}

	n, err := replay(eng, sc, entries, snap, haveSnap, *reversed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks\n", n)
}

func replay(eng *engine.Engine, sc scenario.Scenario, entries []persistlog.Entry, snap snapshot.PayloadV1, haveSnap, reversed bool) (int, error) {
	var st *engine.State
	checked := 0

	for _, e := range entries {
		switch e.Kind {
		case "reset":
			if haveSnap {
				if snap.Seed != e.Seed {
					return checked, fmt.Errorf("snapshot seed %d does not match log seed %d", snap.Seed, e.Seed)
				}
				st = snap.State.Clone()
			} else {
				st = eng.Reset(e.Seed)
			}

		case "step":
			if st == nil {
				return checked, fmt.Errorf("step entry before reset entry")
			}
			// Ticks before the snapshot are already part of the blob.
			if haveSnap && e.Tick <= st.Tick {
				continue
			}
			acts := make(action.Canonical, len(e.Actions))
			for i, a := range e.Actions {
				acts[i] = action.Code(a)
				if !acts[i].Valid() {
					return checked, fmt.Errorf("tick %d: invalid action code %d", e.Tick, a)
				}
			}
			leftActs, rightActs := splitActs(acts, sc, reversed)
			if _, err := eng.Advance(st, leftActs, rightActs); err != nil {
				return checked, fmt.Errorf("tick %d: %w", e.Tick, err)
			}
			if st.Tick != e.Tick {
				return checked, fmt.Errorf("tick mismatch: engine=%d log=%d", st.Tick, e.Tick)
			}

			view := st
			if reversed {
				view = engine.MirrorState(st)
			}
			obs := protocol.Observations(view, sc.LeftAgents, sc.RightAgents)
			if got := protocol.DigestAll(obs); got != e.Digest {
				return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", e.Tick, got, e.Digest)
			}
			checked++

		default:
			return checked, fmt.Errorf("unknown entry kind %q", e.Kind)
		}
	}
	return checked, nil
}

func splitActs(acts action.Canonical, sc scenario.Scenario, reversed bool) (leftActs, rightActs []action.Code) {
	extLeft := acts[:sc.LeftAgents]
	extRight := acts[sc.LeftAgents:]
	if !reversed {
		return extLeft, extRight
	}
	return mirror(extRight), mirror(extLeft)
}

func mirror(in []action.Code) []action.Code {
	out := make([]action.Code, len(in))
	for i, c := range in {
		out[i] = c.Mirror()
	}
	return out
}
