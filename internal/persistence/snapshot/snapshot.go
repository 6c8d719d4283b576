// Package snapshot freezes full simulation state into an opaque,
// version-tagged blob and restores it. A restored state continues
// bit-identically: the payload carries the RNG stream position and every
// engine parameter the continuation depends on.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"pitchcraft.ai/internal/engine"
)

const FormatVersion = 1

// Header is the uncompressed-first JSON line of every blob; it is parsed
// and checked before the body is decoded, so incompatible blobs fail with
// a VersionMismatchError instead of corrupting state.
type Header struct {
	Version  int    `json:"version"`
	Engine   string `json:"engine"`
	Scenario string `json:"scenario"`
	Tick     int    `json:"tick"`
}

// PayloadV1 is the complete restorable state. Config echo fields let the
// environment reject restores into an incompatible configuration.
type PayloadV1 struct {
	Header Header

	Seed          int64
	LeftPlayers   int
	RightPlayers  int
	LeftAgents    int
	RightAgents   int
	DurationTicks int
	EndOnScore    bool
	Deterministic bool
	Reversed      bool

	State *engine.State
}

// VersionMismatchError reports a blob written by an incompatible format
// or engine build. Fatal to the restore attempt, not to the process.
type VersionMismatchError struct {
	GotVersion  int
	WantVersion int
	GotEngine   string
	WantEngine  string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("snapshot version mismatch: format %d (want %d), engine %q (want %q)",
		e.GotVersion, e.WantVersion, e.GotEngine, e.WantEngine)
}

// IsVersionMismatch reports whether err is a snapshot version mismatch.
func IsVersionMismatch(err error) bool {
	var ve *VersionMismatchError
	return errors.As(err, &ve)
}

// Encode captures a payload into an opaque blob. The caller owns the
// returned bytes; nothing here keeps a reference. Capture is only valid
// between completed ticks, which the environment guarantees.
func Encode(p PayloadV1) ([]byte, error) {
	if p.State == nil {
		return nil, fmt.Errorf("snapshot: nil state")
	}
	p.Header.Version = FormatVersion
	p.Header.Engine = engine.Build
	p.Header.Tick = p.State.Tick
	p.State = p.State.Clone()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(p.Header)
	if _, err := bw.Write(hb); err != nil {
		return nil, err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return nil, err
	}
	if err := gob.NewEncoder(bw).Encode(&p); err != nil {
		return nil, fmt.Errorf("snapshot: gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode restores a payload from a blob, checking format and engine build
// before touching the body.
func Decode(blob []byte) (PayloadV1, error) {
	var p PayloadV1
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return p, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return p, fmt.Errorf("snapshot: read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return p, fmt.Errorf("snapshot: parse header: %w", err)
	}
	if hdr.Version != FormatVersion || hdr.Engine != engine.Build {
		return p, &VersionMismatchError{
			GotVersion:  hdr.Version,
			WantVersion: FormatVersion,
			GotEngine:   hdr.Engine,
			WantEngine:  engine.Build,
		}
	}
	if err := gob.NewDecoder(br).Decode(&p); err != nil {
		return p, fmt.Errorf("snapshot: gob decode: %w", err)
	}
	if p.State == nil {
		return p, fmt.Errorf("snapshot: payload has no state")
	}
	return p, nil
}

// WriteFile stores a blob on disk, creating parent directories.
func WriteFile(path string, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}

// ReadFile loads a blob from disk.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
