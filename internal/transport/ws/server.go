// Package ws serves one environment per websocket connection. The
// session is strictly request/response: the client sends RESET, STEP and
// state messages, the server answers each one before reading the next,
// matching the single-threaded environment contract.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pitchcraft.ai/internal/action"
	"pitchcraft.ai/internal/config"
	"pitchcraft.ai/internal/engine"
	"pitchcraft.ai/internal/env"
	"pitchcraft.ai/internal/persistence/indexdb"
	"pitchcraft.ai/internal/persistence/snapshot"
	"pitchcraft.ai/internal/protocol"
	"pitchcraft.ai/internal/render"
)

type Server struct {
	cfg  config.Config
	gate *render.Gate
	idx  *indexdb.SQLiteIndex
	sink env.Sink
	log  *log.Logger

	upgrader websocket.Upgrader
}

// NewServer wires the shared collaborators. The render gate is shared by
// every connection; at most one session renders at a time. idx and sink
// may be nil.
func NewServer(cfg config.Config, gate *render.Gate, idx *indexdb.SQLiteIndex, sink env.Sink, logger *log.Logger) *Server {
	return &Server{
		cfg:  cfg,
		gate: gate,
		idx:  idx,
		sink: sink,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		e := s.handshake(conn)
		if e == nil {
			return
		}
		defer e.Close()
		s.log.Printf("session %s open level=%s remote=%s", e.ID(), e.Scenario().Name, r.RemoteAddr)

		sess := &session{srv: s, conn: conn, env: e}
		sess.loop()
		s.log.Printf("session %s closed tick=%d", e.ID(), e.Tick())
	}
}

func (s *Server) handshake(conn *websocket.Conn) *env.Environment {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	// Per-session config: the server config is the baseline, HELLO
	// overrides the episode parameters.
	cfg := s.cfg
	if hello.Level != "" {
		cfg.Level = hello.Level
	}
	if hello.Seed != nil {
		cfg.Seed = *hello.Seed
	}
	cfg.Render = hello.Render
	cfg.ReverseTeamProcessing = hello.ReverseTeams

	e, err := env.New(cfg, env.Options{Gate: s.gate, Sink: s.sink})
	if err != nil {
		_ = writeJSON(conn, protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			Code:            protocol.ErrProtoBadRequest,
			Message:         err.Error(),
		})
		return nil
	}

	sc := e.Scenario()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       e.ID(),
		EngineBuild:     engine.Build,
		Match: protocol.MatchParams{
			Level:         sc.Name,
			Seed:          cfg.Seed,
			LeftPlayers:   len(sc.LeftFormation),
			RightPlayers:  len(sc.RightFormation),
			LeftAgents:    sc.LeftAgents,
			RightAgents:   sc.RightAgents,
			DurationTicks: sc.DurationTicks,
			Deterministic: sc.Deterministic,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		e.Close()
		return nil
	}
	return e
}

type session struct {
	srv  *Server
	conn *websocket.Conn
	env  *env.Environment

	roll  protocol.RollingDigest
	ticks int
	score [2]int
}

func (s *session) loop() {
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			s.sendError(protocol.ErrProtoBadRequest, "not json")
			continue
		}
		if base.ProtocolVersion != protocol.Version {
			s.sendError(protocol.ErrProtoBadRequest, "bad protocol_version")
			continue
		}

		switch base.Type {
		case protocol.TypeReset:
			s.handleReset(msg)
		case protocol.TypeStep:
			s.handleStep(msg)
		case protocol.TypeStateGet:
			s.handleStateGet()
		case protocol.TypeStateSet:
			s.handleStateSet(msg)
		case protocol.TypeBye:
			_ = writeJSON(s.conn, protocol.ByeMsg{Type: protocol.TypeBye, ProtocolVersion: protocol.Version})
			return
		default:
			s.sendError(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
		}
	}
}

func (s *session) handleReset(msg []byte) {
	var req protocol.ResetMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		s.sendError(protocol.ErrProtoBadRequest, "bad RESET")
		return
	}
	if req.Seed != nil {
		s.env.SetSeed(*req.Seed)
	}
	obs, err := s.env.Reset()
	if err != nil {
		s.sendError(codeFor(err), err.Error())
		return
	}
	s.roll = protocol.RollingDigest{}
	s.ticks = 0
	s.score = [2]int{}
	s.sendObs(obs, 0, false, protocol.DigestAll(obs))
}

func (s *session) handleStep(msg []byte) {
	var req protocol.StepMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		s.sendError(protocol.ErrProtoBadRequest, "bad STEP")
		return
	}
	obs, reward, done, info, err := s.env.Step(req.Actions)
	if err != nil {
		s.sendError(codeFor(err), err.Error())
		return
	}
	s.roll.Add(info.Digest)
	s.ticks = info.Tick
	s.score = info.Score
	s.sendObs(obs, reward, done, info.Digest)
	if done {
		s.recordEpisode()
	}
}

func (s *session) handleStateGet() {
	blob, err := s.env.GetState()
	if err != nil {
		s.sendError(codeFor(err), err.Error())
		return
	}
	_ = writeJSON(s.conn, protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            s.env.Tick(),
		Blob:            base64.StdEncoding.EncodeToString(blob),
	})
}

func (s *session) handleStateSet(msg []byte) {
	var req protocol.StateSetMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		s.sendError(protocol.ErrProtoBadRequest, "bad STATE_SET")
		return
	}
	blob, err := base64.StdEncoding.DecodeString(req.Blob)
	if err != nil {
		s.sendError(protocol.ErrProtoBadRequest, "blob not base64")
		return
	}
	if err := s.env.SetState(blob); err != nil {
		s.sendError(codeFor(err), err.Error())
		return
	}
	obs, err := s.env.Observe()
	if err != nil {
		s.sendError(codeFor(err), err.Error())
		return
	}
	s.sendObs(obs, 0, s.env.Done(), protocol.DigestAll(obs))
}

func (s *session) recordEpisode() {
	if s.srv.idx == nil {
		return
	}
	s.srv.idx.RecordEpisode(indexdb.EpisodeRow{
		Episode:       s.env.Episode(),
		Scenario:      s.env.Scenario().Name,
		Seed:          s.env.Seed(),
		Ticks:         s.ticks,
		ScoreLeft:     s.score[0],
		ScoreRight:    s.score[1],
		RollingDigest: s.roll.Hex(),
	})
}

func (s *session) sendObs(obs []protocol.Observation, reward float64, done bool, digest string) {
	_ = writeJSON(s.conn, protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            s.env.Tick(),
		Observations:    obs,
		Reward:          reward,
		Done:            done,
		Digest:          digest,
	})
}

func (s *session) sendError(code, message string) {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	_ = writeJSON(s.conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

// codeFor maps environment errors onto wire codes.
func codeFor(err error) string {
	var shape *action.InvalidShapeError
	switch {
	case errors.As(err, &shape):
		return protocol.ErrBadActionShape
	case errors.Is(err, render.ErrResourceBusy):
		return protocol.ErrRenderBusy
	case snapshot.IsVersionMismatch(err):
		return protocol.ErrSnapshotVersion
	case engine.IsFault(err):
		return protocol.ErrEngineFault
	case errors.Is(err, env.ErrClosed):
		return protocol.ErrEnvClosed
	case errors.Is(err, env.ErrNotReset):
		return protocol.ErrProtoBadRequest
	default:
		return protocol.ErrInternal
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
