// Package env composes the engine, action dispatcher, render gate,
// tracker and episode sinks into the reset/step surface agents drive.
// One Environment is single-threaded; concurrent instances share nothing
// but an explicitly injected render gate.
package env

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pitchcraft.ai/internal/action"
	"pitchcraft.ai/internal/config"
	"pitchcraft.ai/internal/engine"
	"pitchcraft.ai/internal/persistence/snapshot"
	"pitchcraft.ai/internal/protocol"
	"pitchcraft.ai/internal/render"
	"pitchcraft.ai/internal/scenario"
	"pitchcraft.ai/internal/tracker"
)

// ErrClosed is returned by operations on a closed environment.
var ErrClosed = errors.New("environment closed")

// ErrNotReset is returned by Step before the first Reset.
var ErrNotReset = errors.New("environment not reset")

// Sink receives episode events synchronously from Step and Reset.
// Implementations must not block; the episode logger buffers internally.
type Sink interface {
	OnReset(episode string, seed int64)
	OnStep(episode string, tick int, actions action.Canonical, digest string)
}

// Options carries the injectable collaborators. Zero value selects the
// process-wide render gate, no tracker and no sink.
type Options struct {
	Gate    *render.Gate
	Tracker *tracker.Tracker
	Sink    Sink
}

// Info accompanies every step result.
type Info struct {
	Tick      int
	StepsLeft int
	Score     [2]int
	Digest    string
}

type Environment struct {
	id  string
	cfg config.Config
	sc  scenario.Scenario
	eng *engine.Engine

	gate  *render.Gate
	lease *render.Lease
	trk   *tracker.Tracker
	sink  Sink

	st      *engine.State
	seed    int64
	episode string
	closed  bool
}

// New builds an environment from a run configuration. The scenario named
// by cfg.Level is resolved immediately; Reset starts the first episode.
func New(cfg config.Config, opts Options) (*Environment, error) {
	sc, err := scenario.Load(cfg.Level)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(sc.EngineConfig(cfg.ReverseTeamProcessing))
	if err != nil {
		return nil, err
	}
	e := &Environment{
		id:   uuid.NewString(),
		cfg:  cfg,
		sc:   sc,
		eng:  eng,
		gate: opts.Gate,
		trk:  opts.Tracker,
		sink: opts.Sink,
		seed: cfg.Seed,
	}
	if e.gate == nil {
		e.gate = render.Default()
	}
	if e.trk != nil {
		e.trk.Attach(e.id)
	}
	return e, nil
}

// ID identifies this instance to trackers and the render gate.
func (e *Environment) ID() string { return e.id }

// SetSeed changes the seed used by subsequent Resets.
func (e *Environment) SetSeed(seed int64) { e.seed = seed }

// Reset discards the episode in progress and starts a new one. With
// rendering configured the render lease is (re)acquired here, tied to
// the first frame of the new episode; a busy gate fails the Reset and
// leaves the environment closeable.
func (e *Environment) Reset() ([]protocol.Observation, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.cfg.Render {
		e.lease.Release()
		e.lease = nil
		l, err := e.gate.Acquire(e.id)
		if err != nil {
			return nil, err
		}
		e.lease = l
	}
	e.st = e.eng.Reset(e.seed)
	e.episode = uuid.NewString()
	if e.sink != nil {
		e.sink.OnReset(e.episode, e.seed)
	}
	return e.observations(), nil
}

// Step advances exactly one tick. raw accepts a single action code or any
// integer slice form; the count must equal the number of controlled
// players, left-team agents first. Errors propagate unwrapped: shape
// errors are recoverable, engine faults end the episode.
func (e *Environment) Step(raw any) (obs []protocol.Observation, reward float64, done bool, info Info, err error) {
	if e.closed {
		return nil, 0, false, info, ErrClosed
	}
	if e.st == nil {
		return nil, 0, false, info, ErrNotReset
	}
	acts, err := action.Normalize(raw, e.sc.LeftAgents+e.sc.RightAgents)
	if err != nil {
		return nil, 0, false, info, err
	}

	leftActs, rightActs := e.splitActions(acts)
	// Copy before Advance mutates in place; view() may alias e.st.
	prevScore := e.view().Score

	done, err = e.eng.Advance(e.st, leftActs, rightActs)
	if err != nil {
		return nil, 0, false, info, err
	}

	view := e.view()
	if e.trk != nil {
		e.trk.Record(view.Tick, view)
	}
	obs = protocol.Observations(view, e.sc.LeftAgents, e.sc.RightAgents)
	reward = float64(view.Score[0] - prevScore[0])
	info = Info{
		Tick:      view.Tick,
		StepsLeft: view.StepsLeft,
		Score:     view.Score,
		Digest:    protocol.DigestAll(obs),
	}
	if e.sink != nil {
		e.sink.OnStep(e.episode, view.Tick, acts, info.Digest)
	}
	return obs, reward, done, info, nil
}

// splitActions maps externally ordered actions onto engine orientation.
// In reversed mode the engine's left team is the mirror of the external
// right team, so the halves swap and every code is point-reflected.
func (e *Environment) splitActions(acts action.Canonical) (leftActs, rightActs []action.Code) {
	extLeft := acts[:e.sc.LeftAgents]
	extRight := acts[e.sc.LeftAgents:]
	if !e.cfg.ReverseTeamProcessing {
		return extLeft, extRight
	}
	return mirrorCodes(extRight), mirrorCodes(extLeft)
}

func mirrorCodes(in []action.Code) []action.Code {
	out := make([]action.Code, len(in))
	for i, c := range in {
		out[i] = c.Mirror()
	}
	return out
}

// view returns the state in external orientation. Reversed environments
// simulate the mirrored match internally; everything that leaves this
// type (observations, digests, snapshots via tracker) is reflected back
// first, so external consumers never see the internal orientation.
func (e *Environment) view() *engine.State {
	if e.cfg.ReverseTeamProcessing {
		return engine.MirrorState(e.st)
	}
	return e.st
}

func (e *Environment) observations() []protocol.Observation {
	return protocol.Observations(e.view(), e.sc.LeftAgents, e.sc.RightAgents)
}

// GetState captures the current state as an opaque blob. Valid between
// ticks only, which single-threaded use guarantees.
func (e *Environment) GetState() ([]byte, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.st == nil {
		return nil, ErrNotReset
	}
	return snapshot.Encode(snapshot.PayloadV1{
		Header:        snapshot.Header{Scenario: e.sc.Name},
		Seed:          e.seed,
		LeftPlayers:   len(e.sc.LeftFormation),
		RightPlayers:  len(e.sc.RightFormation),
		LeftAgents:    e.sc.LeftAgents,
		RightAgents:   e.sc.RightAgents,
		DurationTicks: e.sc.DurationTicks,
		EndOnScore:    e.sc.EndOnScore,
		Deterministic: e.sc.Deterministic,
		Reversed:      e.cfg.ReverseTeamProcessing,
		State:         e.st,
	})
}

// SetState restores a blob captured by GetState, possibly on another
// instance. After a successful restore, subsequent ticks are
// indistinguishable from the original continuation. Incompatible
// configuration is rejected before any state is touched.
func (e *Environment) SetState(blob []byte) error {
	if e.closed {
		return ErrClosed
	}
	p, err := snapshot.Decode(blob)
	if err != nil {
		return err
	}
	if err := e.validateImport(p); err != nil {
		return err
	}
	e.st = p.State.Clone()
	return nil
}

func (e *Environment) validateImport(p snapshot.PayloadV1) error {
	if p.Header.Scenario != e.sc.Name {
		return fmt.Errorf("snapshot import: scenario %q does not match %q", p.Header.Scenario, e.sc.Name)
	}
	if p.LeftPlayers != len(e.sc.LeftFormation) || p.RightPlayers != len(e.sc.RightFormation) {
		return fmt.Errorf("snapshot import: team sizes %d/%d do not match %d/%d",
			p.LeftPlayers, p.RightPlayers, len(e.sc.LeftFormation), len(e.sc.RightFormation))
	}
	if p.Seed != e.seed {
		return fmt.Errorf("snapshot import: seed %d does not match %d", p.Seed, e.seed)
	}
	if p.DurationTicks != e.sc.DurationTicks {
		return fmt.Errorf("snapshot import: duration %d does not match %d", p.DurationTicks, e.sc.DurationTicks)
	}
	if p.Reversed != e.cfg.ReverseTeamProcessing {
		return fmt.Errorf("snapshot import: team processing order differs")
	}
	return nil
}

// Observe re-formats the current observations without advancing. Used
// after SetState, where the restored frame is reported as-is.
func (e *Environment) Observe() ([]protocol.Observation, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.st == nil {
		return nil, ErrNotReset
	}
	return e.observations(), nil
}

// Tick reports the current tick, 0 before the first step.
func (e *Environment) Tick() int {
	if e.st == nil {
		return 0
	}
	return e.st.Tick
}

// Done reports whether the episode in progress has ended.
func (e *Environment) Done() bool {
	return e.st != nil && e.st.Done
}

// Episode returns the id of the episode in progress.
func (e *Environment) Episode() string { return e.episode }

// Scenario returns the resolved scenario.
func (e *Environment) Scenario() scenario.Scenario { return e.sc }

// Seed returns the seed the next Reset will use.
func (e *Environment) Seed() int64 { return e.seed }

// Tracker returns the attached tracker, nil when none.
func (e *Environment) Tracker() *tracker.Tracker { return e.trk }

// SetTracker swaps the attached tracker. Passing a tracker already fed by
// another environment is the cross-instance lockstep pattern; passing nil
// detaches.
func (e *Environment) SetTracker(t *tracker.Tracker) {
	if e.trk != nil {
		e.trk.Detach(e.id)
	}
	e.trk = t
	if t != nil {
		t.Attach(e.id)
	}
}

// Close releases the render lease and detaches the tracker. Safe to call
// repeatedly, and required after an engine fault so the lease frees.
func (e *Environment) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.lease.Release()
	e.lease = nil
	if e.trk != nil {
		e.trk.Detach(e.id)
		e.trk = nil
	}
	return nil
}
