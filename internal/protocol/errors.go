package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Environment layer.
	ErrBadActionShape  = "E_BAD_ACTION_SHAPE"
	ErrRenderBusy      = "E_RENDER_BUSY"
	ErrSnapshotVersion = "E_SNAPSHOT_VERSION"
	ErrEngineFault     = "E_ENGINE_FAULT"
	ErrEnvClosed       = "E_ENV_CLOSED"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadActionShape:  {},
	ErrRenderBusy:      {},
	ErrSnapshotVersion: {},
	ErrEngineFault:     {},
	ErrEnvClosed:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
