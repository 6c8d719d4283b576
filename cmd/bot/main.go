// Command bot drives the cyclic reference policy (tick modulo the
// action count) against an environment and prints the rolling digest and
// final score. It runs in-process by default; with -url it drives a
// remote envserver over websocket, exercising the same protocol path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"pitchcraft.ai/internal/action"
	"pitchcraft.ai/internal/config"
	"pitchcraft.ai/internal/env"
	"pitchcraft.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "", "ws url of a running envserver (empty: run in-process)")
		level = flag.String("level", "11_vs_11_deterministic", "scenario")
		seed  = flag.Int64("seed", 0, "seed")
		ticks = flag.Int("ticks", 200, "max ticks to run")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	var digest string
	var score [2]int
	var ran int
	var err error
	if *url == "" {
		digest, score, ran, err = runLocal(*level, *seed, *ticks)
	} else {
		digest, score, ran, err = runRemote(*url, *level, *seed, *ticks)
	}
	if err != nil {
		logger.Fatalf("run: %v", err)
	}
	logger.Printf("level=%s seed=%d ticks=%d score=%d:%d rolling_digest=%s",
		*level, *seed, ran, score[0], score[1], digest)
}

func runLocal(level string, seed int64, ticks int) (string, [2]int, int, error) {
	cfg := config.Config{Level: level, Seed: seed}
	cfg.Normalize()
	e, err := env.New(cfg, env.Options{})
	if err != nil {
		return "", [2]int{}, 0, err
	}
	defer e.Close()

	if _, err := e.Reset(); err != nil {
		return "", [2]int{}, 0, err
	}
	sc := e.Scenario()
	agents := sc.LeftAgents + sc.RightAgents

	var roll protocol.RollingDigest
	var score [2]int
	ran := 0
	for i := 0; i < ticks; i++ {
		acts := cyclic(i, agents)
		_, _, done, info, err := e.Step(acts)
		if err != nil {
			return "", score, ran, err
		}
		roll.Add(info.Digest)
		score = info.Score
		ran = info.Tick
		if done {
			break
		}
	}
	return roll.Hex(), score, ran, nil
}

func runRemote(url, level string, seed int64, ticks int) (string, [2]int, int, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return "", [2]int{}, 0, err
	}
	defer conn.Close()

	send := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, b)
	}
	recv := func(v any) (string, error) {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			return "", err
		}
		return base.Type, json.Unmarshal(msg, v)
	}

	if err := send(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       "bot",
		Level:           level,
		Seed:            &seed,
	}); err != nil {
		return "", [2]int{}, 0, err
	}
	var welcome protocol.WelcomeMsg
	if typ, err := recv(&welcome); err != nil || typ != protocol.TypeWelcome {
		return "", [2]int{}, 0, fmt.Errorf("handshake failed: type=%s err=%v", typ, err)
	}
	agents := welcome.Match.LeftAgents + welcome.Match.RightAgents

	if err := send(protocol.ResetMsg{Type: protocol.TypeReset, ProtocolVersion: protocol.Version}); err != nil {
		return "", [2]int{}, 0, err
	}
	var obs protocol.ObsMsg
	if typ, err := recv(&obs); err != nil || typ != protocol.TypeObs {
		return "", [2]int{}, 0, fmt.Errorf("reset failed: type=%s err=%v", typ, err)
	}

	var roll protocol.RollingDigest
	var score [2]int
	ran := 0
	for i := 0; i < ticks; i++ {
		if err := send(protocol.StepMsg{
			Type:            protocol.TypeStep,
			ProtocolVersion: protocol.Version,
			Actions:         cyclic(i, agents),
		}); err != nil {
			return roll.Hex(), score, ran, err
		}
		typ, err := recv(&obs)
		if err != nil {
			return roll.Hex(), score, ran, err
		}
		if typ != protocol.TypeObs {
			return roll.Hex(), score, ran, fmt.Errorf("unexpected reply %s", typ)
		}
		roll.Add(obs.Digest)
		if len(obs.Observations) > 0 {
			score = obs.Observations[0].Score
		}
		ran = obs.Tick
		if obs.Done {
			break
		}
	}
	_ = send(protocol.ByeMsg{Type: protocol.TypeBye, ProtocolVersion: protocol.Version})
	return roll.Hex(), score, ran, nil
}

func cyclic(tick, agents int) []int {
	acts := make([]int, agents)
	for j := range acts {
		acts[j] = (tick + j) % action.NumCodes
	}
	return acts
}
