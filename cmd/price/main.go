package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pamdev00/price/internal/backup"
	"github.com/pamdev00/price/internal/config"
	"github.com/pamdev00/price/internal/database"
	"github.com/pamdev00/price/internal/logging"
	"github.com/pamdev00/price/internal/server"
	"github.com/pamdev00/price/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config file] [serve | restore <backup file>]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	gw, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	codec, err := store.CodecByName(cfg.Storage.Codec)
	if err != nil {
		logger.Error("invalid codec", "error", err)
		os.Exit(1)
	}

	switch cmd := flag.Arg(0); cmd {
	case "", "serve":
		err = serve(cfg, gw, codec, logger)
	case "restore":
		err = restore(cfg, gw, codec, flag.Arg(1), logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (store.Gateway, func(), error) {
	if cfg.Storage.Backend == config.BackendMemory {
		return store.NewMemoryStore(cfg.Storage.Quota), func() {}, nil
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store.NewSQLiteStore(db, cfg.Storage.Quota), func() { closeDB(db) }, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("close database", "error", err)
	}
}

func serve(cfg config.Config, gw store.Gateway, codec store.Codec, logger *slog.Logger) error {
	srv, err := server.New(cfg, gw, codec, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	srv.Start(ctx)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "backend", cfg.Storage.Backend, "codec", codec.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// restore replaces the stored collections with the contents of a backup in
// the backup directory. The passphrase comes from PRICE_BACKUP_PASSPHRASE or
// the first line of stdin.
func restore(cfg config.Config, gw store.Gateway, codec store.Codec, filename string, logger *slog.Logger) error {
	if filename == "" {
		return errors.New("restore: backup file name required")
	}

	passphrase := os.Getenv("PRICE_BACKUP_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprint(os.Stderr, "passphrase: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read passphrase: %w", err)
		}
		passphrase = strings.TrimRight(line, "\r\n")
	}

	mgr := backup.NewManager(backup.Config{
		Dir:     cfg.BackupDir,
		Gateway: gw,
		Codec:   codec,
		Logger:  logger,
	})
	if err := mgr.Restore(filename, passphrase); err != nil {
		return err
	}
	logger.Info("backup restored", "file", filename)
	return nil
}
