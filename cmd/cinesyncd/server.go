package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"
	_ "modernc.org/sqlite"

	"github.com/vmunix/cinesync/internal/config"
	"github.com/vmunix/cinesync/internal/migrations"
	"github.com/vmunix/cinesync/internal/server"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sqliteDSN enables WAL and a busy timeout so background remote writes do
// not fail on a locked database.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// logOutput returns stdout, teed into a rotated file when one is configured.
func logOutput(lc config.LogConfig) (io.Writer, func() error) {
	if lc.File == "" {
		return os.Stdout, func() error { return nil }
	}
	rotated := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
	return io.MultiWriter(os.Stdout, rotated), rotated.Close
}

func runnerConfig(cfg *config.Config) server.Config {
	return server.Config{
		Addr:           net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Version:        version,
		RemoteURL:      cfg.Remote.URL,
		RemoteToken:    cfg.Remote.Token,
		RemoteTimeout:  cfg.Remote.Timeout.Duration,
		ServeRemote:    cfg.Remote.Serve,
		EscalateAfter:  cfg.Sync.EscalateAfter,
		WriteTimeout:   cfg.Sync.WriteTimeout.Duration,
		PersistEvents:  cfg.Events.Persist,
		EventRetention: cfg.Events.Retention.Duration,
	}
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	out, closeLog := logOutput(cfg.Log)
	defer func() { _ = closeLog() }()

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Apply(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rc := runnerConfig(cfg)
	logger.Info("server starting",
		"addr", rc.Addr,
		"config", configPath,
		"database", cfg.Database.Path,
		"remote", cfg.Remote.URL,
		"serve_remote", cfg.Remote.Serve,
		"persist_events", cfg.Events.Persist,
		"log_level", cfg.Server.LogLevel,
		"log_file", cfg.Log.File,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.NewRunner(db, rc, logger).Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
