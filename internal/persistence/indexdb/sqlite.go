// Package indexdb maintains a sqlite index over finished episodes and
// stored snapshots. Writes go through a single async writer goroutine so
// the step path never blocks on the database; the JSONL episode logs
// remain the source of truth. The episodes table doubles as the
// determinism regression oracle: re-running a (scenario, seed, policy)
// triple must reproduce the stored rolling digest.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"pitchcraft.ai/internal/persistence/snapshot"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEpisode reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind     reqKind
	episode  EpisodeRow
	snapshot snapshotRow
}

// EpisodeRow summarizes one finished episode.
type EpisodeRow struct {
	Episode       string
	Scenario      string
	Seed          int64
	Ticks         int
	ScoreLeft     int
	ScoreRight    int
	RollingDigest string
	RecordedAt    string
}

type snapshotRow struct {
	Episode  string
	Tick     int
	Path     string
	Seed     int64
	Scenario string
	Engine   string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS episodes (
			episode TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			score_left INTEGER NOT NULL,
			score_right INTEGER NOT NULL,
			rolling_digest TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_scenario_seed ON episodes(scenario, seed);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			episode TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			scenario TEXT NOT NULL,
			engine TEXT NOT NULL,
			PRIMARY KEY (episode, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordEpisode queues an episode summary. Never blocks; dropped when
// the indexer falls behind, the JSONL logs stay authoritative.
func (s *SQLiteIndex) RecordEpisode(row EpisodeRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if row.RecordedAt == "" {
		row.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- req{kind: reqEpisode, episode: row}:
	default:
	}
}

// RecordSnapshot queues an index row for a snapshot blob stored at path.
func (s *SQLiteIndex) RecordSnapshot(episode, path string, snap snapshot.PayloadV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Episode:  episode,
		Tick:     snap.Header.Tick,
		Path:     path,
		Seed:     snap.Seed,
		Scenario: snap.Header.Scenario,
		Engine:   snap.Header.Engine,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// EpisodeDigest returns the most recent rolling digest recorded for a
// (scenario, seed) pair. Reads see rows committed by the writer; call
// after Close (or on a reopened index) for exact results.
func (s *SQLiteIndex) EpisodeDigest(scenario string, seed int64) (string, bool, error) {
	row := s.db.QueryRow(
		`SELECT rolling_digest FROM episodes WHERE scenario=? AND seed=? ORDER BY recorded_at DESC LIMIT 1`,
		scenario, seed)
	var d string
	if err := row.Scan(&d); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return d, true, nil
}

// Snapshots lists the indexed snapshot paths of one episode, tick order.
func (s *SQLiteIndex) Snapshots(episode string) ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM snapshots WHERE episode=? ORDER BY tick`, episode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEpisode, _ := s.db.Prepare(`INSERT OR REPLACE INTO episodes(episode,scenario,seed,ticks,score_left,score_right,rolling_digest,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(episode,tick,path,seed,scenario,engine) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertEpisode != nil {
			_ = insertEpisode.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEpisode:
			e := r.episode
			if insertEpisode != nil {
				if _, err := tx.Stmt(insertEpisode).Exec(
					e.Episode, e.Scenario, e.Seed, e.Ticks,
					e.ScoreLeft, e.ScoreRight, e.RollingDigest, e.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					sn.Episode, sn.Tick, sn.Path, sn.Seed, sn.Scenario, sn.Engine,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
