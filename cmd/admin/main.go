// Command admin inspects the on-disk artifacts of an environment server:
// the sqlite episode index, the compressed episode logs and snapshot
// blobs. Read-only; it never mutates what the server wrote.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	eplog "pitchcraft.ai/internal/persistence/log"
	"pitchcraft.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "episodes":
			episodesCmd(os.Args[2:])
			return
		case "digest":
			digestCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "snapshots":
			snapshotsCmd(os.Args[2:])
			return
		}
	}
	episodesCmd(os.Args[1:])
}

func openDB(dataDir string) *sql.DB {
	path := filepath.Join(dataDir, "index.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(1)
	return db
}

func episodesCmd(args []string) {
	fs := flag.NewFlagSet("episodes", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	scenario := fs.String("scenario", "", "filter by scenario name (optional)")
	seed := fs.Int64("seed", -1, "filter by seed (optional)")
	limit := fs.Int("limit", 50, "max rows")
	_ = fs.Parse(args)

	db := openDB(*dataDir)
	defer db.Close()

	q := `SELECT episode, scenario, seed, ticks, score_left, score_right, rolling_digest, recorded_at FROM episodes`
	var conds []string
	var binds []any
	if *scenario != "" {
		conds = append(conds, "scenario=?")
		binds = append(binds, *scenario)
	}
	if *seed >= 0 {
		conds = append(conds, "seed=?")
		binds = append(binds, *seed)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY recorded_at DESC LIMIT ?"
	binds = append(binds, *limit)

	rows, err := db.Query(q, binds...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var ep, sc, digest, at string
		var sd int64
		var ticks, sl, sr int
		if err := rows.Scan(&ep, &sc, &sd, &ticks, &sl, &sr, &digest, &at); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		fmt.Printf("%s scenario=%s seed=%d ticks=%d score=%d:%d digest=%s at=%s\n",
			ep, sc, sd, ticks, sl, sr, digest, at)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

// digestCmd prints the reference rolling digest of a (scenario, seed)
// pair. A re-run of the same pair under the same policy must reproduce
// it exactly; a mismatch means determinism regressed.
func digestCmd(args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	scenario := fs.String("scenario", "", "scenario name")
	seed := fs.Int64("seed", -1, "episode seed")
	_ = fs.Parse(args)

	if *scenario == "" || *seed < 0 {
		fmt.Fprintln(os.Stderr, "missing -scenario or -seed")
		os.Exit(2)
	}
	db := openDB(*dataDir)
	defer db.Close()

	row := db.QueryRow(
		`SELECT rolling_digest FROM episodes WHERE scenario=? AND seed=? ORDER BY recorded_at DESC LIMIT 1`,
		*scenario, *seed)
	var d string
	if err := row.Scan(&d); err != nil {
		if err == sql.ErrNoRows {
			fmt.Fprintln(os.Stderr, "no recorded episode for that scenario and seed")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	fmt.Println(d)
}

func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	episode := fs.String("episode", "", "episode id")
	path := fs.String("path", "", "episode log path (overrides -data/-episode)")
	showActions := fs.Bool("actions", false, "print per-tick action vectors")
	limit := fs.Int("limit", 0, "max step entries (0 for all)")
	_ = fs.Parse(args)

	p := *path
	if p == "" {
		if *episode == "" {
			fmt.Fprintln(os.Stderr, "missing -episode or -path")
			os.Exit(2)
		}
		p = eplog.EpisodePath(*dataDir, *episode)
	}
	entries, err := eplog.ReadEpisode(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read log:", err)
		os.Exit(1)
	}
	steps := 0
	for _, e := range entries {
		switch e.Kind {
		case "reset":
			fmt.Printf("reset episode=%s seed=%d\n", e.Episode, e.Seed)
		case "step":
			if *limit > 0 && steps >= *limit {
				continue
			}
			steps++
			if *showActions {
				fmt.Printf("tick=%d actions=%v digest=%s\n", e.Tick, e.Actions, e.Digest)
			} else {
				fmt.Printf("tick=%d digest=%s\n", e.Tick, e.Digest)
			}
		}
	}
	fmt.Printf("entries=%d steps=%d\n", len(entries), steps)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "snapshot blob path")
	_ = fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	blob, err := snapshot.ReadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	p, err := snapshot.Decode(blob)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("version=%d engine=%s scenario=%s tick=%d seed=%d\n",
		p.Header.Version, p.Header.Engine, p.Header.Scenario, p.Header.Tick, p.Seed)
	fmt.Printf("players=%d/%d agents=%d/%d duration=%d end_on_score=%v deterministic=%v reversed=%v\n",
		p.LeftPlayers, p.RightPlayers, p.LeftAgents, p.RightAgents,
		p.DurationTicks, p.EndOnScore, p.Deterministic, p.Reversed)
	if p.State != nil {
		fmt.Printf("score=%d:%d steps_left=%d done=%v\n",
			p.State.Score[0], p.State.Score[1], p.State.StepsLeft, p.State.Done)
	}
}

func snapshotsCmd(args []string) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	episode := fs.String("episode", "", "episode id")
	_ = fs.Parse(args)

	if *episode == "" {
		fmt.Fprintln(os.Stderr, "missing -episode")
		os.Exit(2)
	}
	db := openDB(*dataDir)
	defer db.Close()

	rows, err := db.Query(`SELECT tick, path FROM snapshots WHERE episode=? ORDER BY tick`, *episode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var tick int
		var p string
		if err := rows.Scan(&tick, &p); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		fmt.Printf("tick=%d path=%s\n", tick, p)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}
