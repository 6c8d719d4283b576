package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pitchcraft.ai/internal/config"
	"pitchcraft.ai/internal/env"
	"pitchcraft.ai/internal/persistence/indexdb"
	persistlog "pitchcraft.ai/internal/persistence/log"
	"pitchcraft.ai/internal/render"
	"pitchcraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (default from config)")
		configPath = flag.String("config", "", "path to run config yaml (optional)")
		level      = flag.String("level", "", "scenario override")
		seed       = flag.Int64("seed", -1, "seed override (>= 0)")
		dataDir    = flag.String("data", "", "data directory override")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite episode index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[envserver] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*level) != "" {
		cfg.Level = *level
	}
	if *seed >= 0 {
		cfg.Seed = *seed
	}
	if strings.TrimSpace(*dataDir) != "" {
		cfg.DataDir = *dataDir
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.ListenAddr = *addr
	}

	var idx *indexdb.SQLiteIndex
	if cfg.IndexEpisodes && !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	var sink env.Sink
	if cfg.LogEpisodes {
		el := persistlog.NewEpisodeLogger(cfg.DataDir)
		defer el.Close()
		sink = el
	}

	ctx, cancel := signalContext()
	defer cancel()

	// All sessions share one render gate: at most one rendering episode
	// per process, the rest fail fast with E_RENDER_BUSY.
	srv := ws.NewServer(cfg, render.Default(), idx, sink, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", srv.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s level=%s seed=%d", cfg.ListenAddr, cfg.Level, cfg.Seed)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
