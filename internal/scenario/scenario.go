// Package scenario defines match setups: formations, controlled-agent
// counts, duration, and termination rules. Scenarios come from a built-in
// registry by name or from yaml files on disk.
package scenario

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pitchcraft.ai/internal/engine"
)

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Scenario struct {
	Name           string  `yaml:"name"`
	LeftFormation  []Point `yaml:"left_formation"`
	RightFormation []Point `yaml:"right_formation"`
	LeftAgents     int     `yaml:"left_agents"`
	RightAgents    int     `yaml:"right_agents"`
	BallStart      Point   `yaml:"ball_start"`
	DurationTicks  int     `yaml:"duration_ticks"`
	EndOnScore     bool    `yaml:"end_on_score"`
	Deterministic  bool    `yaml:"deterministic"`
}

// Load resolves a scenario by built-in name, or from a yaml file when the
// argument names one on disk. File scenarios are normalized and validated
// the same way built-ins are.
func Load(nameOrPath string) (Scenario, error) {
	nameOrPath = strings.TrimSpace(nameOrPath)
	if nameOrPath == "" {
		nameOrPath = DefaultName
	}
	if sc, ok := builtins[nameOrPath]; ok {
		sc.Normalize()
		return sc, nil
	}
	b, err := os.ReadFile(nameOrPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Scenario{}, fmt.Errorf("unknown scenario %q (built-ins: %s)", nameOrPath, strings.Join(Names(), ", "))
		}
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", nameOrPath, err)
	}
	if sc.Name == "" {
		sc.Name = nameOrPath
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", nameOrPath, err)
	}
	return sc, nil
}

func (s *Scenario) Normalize() {
	if s == nil {
		return
	}
	if s.DurationTicks <= 0 {
		s.DurationTicks = 3000
	}
	if s.LeftAgents < 0 {
		s.LeftAgents = 0
	}
	if s.RightAgents < 0 {
		s.RightAgents = 0
	}
}

func (s Scenario) Validate() error {
	if len(s.LeftFormation) == 0 || len(s.RightFormation) == 0 {
		return fmt.Errorf("both formations must have at least one player")
	}
	if s.LeftAgents > len(s.LeftFormation) {
		return fmt.Errorf("left_agents %d exceeds left formation size %d", s.LeftAgents, len(s.LeftFormation))
	}
	if s.RightAgents > len(s.RightFormation) {
		return fmt.Errorf("right_agents %d exceeds right formation size %d", s.RightAgents, len(s.RightFormation))
	}
	for i, p := range s.LeftFormation {
		if p.X < -engine.PitchHalfX || p.X > engine.PitchHalfX || p.Y < -engine.PitchHalfY || p.Y > engine.PitchHalfY {
			return fmt.Errorf("left_formation[%d] (%.3f, %.3f) outside pitch", i, p.X, p.Y)
		}
	}
	for i, p := range s.RightFormation {
		if p.X < -engine.PitchHalfX || p.X > engine.PitchHalfX || p.Y < -engine.PitchHalfY || p.Y > engine.PitchHalfY {
			return fmt.Errorf("right_formation[%d] (%.3f, %.3f) outside pitch", i, p.X, p.Y)
		}
	}
	return nil
}

// EngineConfig builds the engine configuration for this scenario.
// reversed selects mirrored construction with the right team simulated
// first; the engine handles the formation swap itself.
func (s Scenario) EngineConfig(reversed bool) engine.Config {
	return engine.Config{
		LeftFormation:  points(s.LeftFormation),
		RightFormation: points(s.RightFormation),
		LeftAgents:     s.LeftAgents,
		RightAgents:    s.RightAgents,
		BallStart:      engine.Vec2{X: s.BallStart.X, Y: s.BallStart.Y},
		DurationTicks:  s.DurationTicks,
		EndOnScore:     s.EndOnScore,
		Deterministic:  s.Deterministic,
		Reversed:       reversed,
	}
}

func points(ps []Point) []engine.Vec2 {
	out := make([]engine.Vec2, len(ps))
	for i, p := range ps {
		out[i] = engine.Vec2{X: p.X, Y: p.Y}
	}
	return out
}

// Names lists the built-in scenario names, sorted.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
