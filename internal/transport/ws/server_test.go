package ws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pitchcraft.ai/internal/config"
	"pitchcraft.ai/internal/protocol"
	"pitchcraft.ai/internal/render"
)

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	cfg := config.Config{Level: "11_vs_11_deterministic", Seed: 0}
	cfg.Normalize()
	logger := log.New(os.Stdout, "[ws-test] ", log.LstdFlags)
	srv := NewServer(cfg, render.NewGate(), nil, nil, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn, v any) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		t.Fatalf("decode base: %v", err)
	}
	if err := json.Unmarshal(msg, v); err != nil {
		t.Fatalf("unmarshal %s: %v", base.Type, err)
	}
	return base.Type
}

func TestSessionFlow(t *testing.T) {
	conn := dialTestServer(t)

	send(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       "tester",
	})
	var welcome protocol.WelcomeMsg
	if typ := recv(t, conn, &welcome); typ != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %s", typ)
	}
	if welcome.Match.LeftPlayers != 11 || welcome.Match.RightPlayers != 11 {
		t.Fatalf("match params = %+v", welcome.Match)
	}
	if welcome.SessionID == "" {
		t.Fatal("missing session id")
	}

	send(t, conn, protocol.ResetMsg{Type: protocol.TypeReset, ProtocolVersion: protocol.Version})
	var obs protocol.ObsMsg
	if typ := recv(t, conn, &obs); typ != protocol.TypeObs {
		t.Fatalf("expected OBS, got %s", typ)
	}
	if obs.Tick != 0 || obs.Done {
		t.Fatalf("reset obs = tick %d done %v", obs.Tick, obs.Done)
	}
	if len(obs.Observations) != 1 {
		t.Fatalf("observations = %d", len(obs.Observations))
	}

	send(t, conn, protocol.StepMsg{Type: protocol.TypeStep, ProtocolVersion: protocol.Version, Actions: []int{5}})
	if typ := recv(t, conn, &obs); typ != protocol.TypeObs {
		t.Fatalf("expected OBS, got %s", typ)
	}
	if obs.Tick != 1 {
		t.Fatalf("tick = %d, want 1", obs.Tick)
	}
	if obs.Digest == "" {
		t.Fatal("missing digest")
	}

	// Snapshot out, step, snapshot back in: tick rewinds.
	send(t, conn, protocol.StateGetMsg{Type: protocol.TypeStateGet, ProtocolVersion: protocol.Version})
	var state protocol.StateMsg
	if typ := recv(t, conn, &state); typ != protocol.TypeState {
		t.Fatalf("expected STATE, got %s", typ)
	}
	if state.Tick != 1 || state.Blob == "" {
		t.Fatalf("state = tick %d, blob %d bytes", state.Tick, len(state.Blob))
	}

	send(t, conn, protocol.StepMsg{Type: protocol.TypeStep, ProtocolVersion: protocol.Version, Actions: []int{6}})
	if typ := recv(t, conn, &obs); typ != protocol.TypeObs {
		t.Fatalf("expected OBS, got %s", typ)
	}
	if obs.Tick != 2 {
		t.Fatalf("tick = %d, want 2", obs.Tick)
	}

	send(t, conn, protocol.StateSetMsg{Type: protocol.TypeStateSet, ProtocolVersion: protocol.Version, Blob: state.Blob})
	if typ := recv(t, conn, &obs); typ != protocol.TypeObs {
		t.Fatalf("expected OBS, got %s", typ)
	}
	if obs.Tick != 1 {
		t.Fatalf("tick after restore = %d, want 1", obs.Tick)
	}

	send(t, conn, protocol.ByeMsg{Type: protocol.TypeBye, ProtocolVersion: protocol.Version})
	var bye protocol.ByeMsg
	if typ := recv(t, conn, &bye); typ != protocol.TypeBye {
		t.Fatalf("expected BYE, got %s", typ)
	}
}

func TestSessionErrors(t *testing.T) {
	conn := dialTestServer(t)

	send(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       "tester",
	})
	var welcome protocol.WelcomeMsg
	recv(t, conn, &welcome)

	// STEP before RESET.
	send(t, conn, protocol.StepMsg{Type: protocol.TypeStep, ProtocolVersion: protocol.Version, Actions: []int{0}})
	var errMsg protocol.ErrorMsg
	if typ := recv(t, conn, &errMsg); typ != protocol.TypeError {
		t.Fatalf("expected ERROR, got %s", typ)
	}
	if errMsg.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code = %s", errMsg.Code)
	}

	send(t, conn, protocol.ResetMsg{Type: protocol.TypeReset, ProtocolVersion: protocol.Version})
	var obs protocol.ObsMsg
	recv(t, conn, &obs)

	// Wrong action count.
	send(t, conn, protocol.StepMsg{Type: protocol.TypeStep, ProtocolVersion: protocol.Version, Actions: []int{1, 2}})
	if typ := recv(t, conn, &errMsg); typ != protocol.TypeError {
		t.Fatalf("expected ERROR, got %s", typ)
	}
	if errMsg.Code != protocol.ErrBadActionShape {
		t.Fatalf("code = %s", errMsg.Code)
	}

	// Session still alive after a recoverable error.
	send(t, conn, protocol.StepMsg{Type: protocol.TypeStep, ProtocolVersion: protocol.Version, Actions: []int{0}})
	if typ := recv(t, conn, &obs); typ != protocol.TypeObs {
		t.Fatalf("expected OBS, got %s", typ)
	}

	// Garbage state blob.
	send(t, conn, protocol.StateSetMsg{Type: protocol.TypeStateSet, ProtocolVersion: protocol.Version, Blob: "bm90IGEgc25hcHNob3Q="})
	if typ := recv(t, conn, &errMsg); typ != protocol.TypeError {
		t.Fatalf("expected ERROR, got %s", typ)
	}
}
