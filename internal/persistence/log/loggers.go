// Package log writes compressed JSONL episode logs. One file per
// episode, one line per tick, enough to re-drive the engine and check
// every digest offline.
package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"pitchcraft.ai/internal/action"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curKey string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends one JSON line to the file selected by key, rotating when
// the key changes.
func (w *JSONLZstdWriter) Write(key string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if key != w.curKey {
		if err := w.rotateLocked(key); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	p := w.pathForKey(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curKey = key
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curKey = ""
	return err1
}

func (w *JSONLZstdWriter) pathForKey(key string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
}

// Entry is one episode log line. Kind is "reset" or "step".
type Entry struct {
	Kind    string `json:"kind"`
	Episode string `json:"episode"`
	Seed    int64  `json:"seed,omitempty"`
	Tick    int    `json:"tick,omitempty"`
	Actions []int  `json:"actions,omitempty"`
	Digest  string `json:"digest,omitempty"`
}

// EpisodeLogger records one file per episode under baseDir/episodes.
// It satisfies the environment's step sink; write failures are logged,
// never surfaced into the step path.
type EpisodeLogger struct {
	w      *JSONLZstdWriter
	logger *stdlog.Logger
}

func NewEpisodeLogger(dataDir string) *EpisodeLogger {
	return &EpisodeLogger{
		w:      NewJSONLZstdWriter(filepath.Join(dataDir, "episodes"), "episode"),
		logger: stdlog.New(os.Stdout, "[episodelog] ", stdlog.LstdFlags|stdlog.Lmicroseconds),
	}
}

func (l *EpisodeLogger) OnReset(episode string, seed int64) {
	err := l.w.Write(episode, Entry{Kind: "reset", Episode: episode, Seed: seed})
	if err != nil {
		l.logger.Printf("write reset entry: %v", err)
	}
}

func (l *EpisodeLogger) OnStep(episode string, tick int, actions action.Canonical, digest string) {
	acts := make([]int, len(actions))
	for i, c := range actions {
		acts[i] = int(c)
	}
	err := l.w.Write(episode, Entry{Kind: "step", Episode: episode, Tick: tick, Actions: acts, Digest: digest})
	if err != nil {
		l.logger.Printf("write step entry: %v", err)
	}
}

func (l *EpisodeLogger) Close() error { return l.w.Close() }

// EpisodePath returns where an episode's log lives under dataDir.
func EpisodePath(dataDir, episode string) string {
	return filepath.Join(dataDir, "episodes", fmt.Sprintf("episode-%s.jsonl.zst", episode))
}

// ReadEpisode loads all entries of one episode log file.
func ReadEpisode(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return out, fmt.Errorf("episode log line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return out, err
	}
	return out, nil
}
