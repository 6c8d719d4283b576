package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	Level           string `json:"level,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
	Render          bool   `json:"render,omitempty"`
	ReverseTeams    bool   `json:"reverse_team_processing,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	EngineBuild     string      `json:"engine_build"`
	Match           MatchParams `json:"match_params"`
}

type MatchParams struct {
	Level         string `json:"level"`
	Seed          int64  `json:"seed"`
	LeftPlayers   int    `json:"left_players"`
	RightPlayers  int    `json:"right_players"`
	LeftAgents    int    `json:"left_agents"`
	RightAgents   int    `json:"right_agents"`
	DurationTicks int    `json:"duration_ticks"`
	Deterministic bool   `json:"deterministic"`
}

// RESET (client -> server): begin a new episode.
type ResetMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seed            *int64 `json:"seed,omitempty"`
}

// STEP (client -> server): one action code per controlled player,
// left-team agents first.
type StepMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Actions         []int  `json:"actions"`
}

// OBS (server -> client): reply to RESET and STEP.
type ObsMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            int           `json:"tick"`
	Observations    []Observation `json:"observations"`
	Reward          float64       `json:"reward"`
	Done            bool          `json:"done"`
	Digest          string        `json:"digest,omitempty"`
}

// STATE_GET (client -> server) / STATE (server -> client): snapshot blob,
// base64 in transit, opaque to the client.
type StateGetMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            int    `json:"tick"`
	Blob            string `json:"blob"`
}

// STATE_SET (client -> server): restore a previously fetched blob.
type StateSetMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Blob            string `json:"blob"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// BYE (either direction): orderly close.
type ByeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Reason          string `json:"reason,omitempty"`
}
