package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codefionn/collabd/internal/config"
	"github.com/codefionn/collabd/internal/coordinator"
	"github.com/codefionn/collabd/internal/directory"
	"github.com/codefionn/collabd/internal/lockfile"
	"github.com/codefionn/collabd/internal/logger"
	"github.com/codefionn/collabd/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	var (
		configPath = flag.String("config", config.GetConfigPath(), "path to the config file")
		listenAddr = flag.String("listen", "", "override the listen address")
		debug      = flag.Bool("debug", false, "log websocket frames")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Environment variables override config file values for logging.
	if envLevel := strings.TrimSpace(os.Getenv("COLLABD_LOG_LEVEL")); envLevel != "" {
		cfg.LogLevel = envLevel
	}
	if envPath := strings.TrimSpace(os.Getenv("COLLABD_LOG_PATH")); envPath != "" {
		cfg.LogPath = envPath
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	pidfile := lockfile.New(cfg.PidfilePath)
	if err := pidfile.TryAcquire(); err != nil {
		return fmt.Errorf("another instance appears to be running: %w", err)
	}
	defer func() {
		if releaseErr := pidfile.Release(); releaseErr != nil {
			logger.Warn("Failed to release pidfile: %v", releaseErr)
		}
	}()

	store, err := directory.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open directory database: %w", err)
	}
	defer store.Close()

	coord := coordinator.New(store, store, coordinator.Options{
		LockTTL:       time.Duration(cfg.LockTTLMinutes) * time.Minute,
		SweepInterval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
	})
	coord.Start()
	defer coord.Stop()

	server := web.NewServer(coord, store, web.Options{
		Addr:       cfg.ListenAddr,
		SendBuffer: cfg.SendBuffer,
		Debug:      *debug,
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	logger.Info("collabd started (pid %d)", os.Getpid())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received signal %v, shutting down", sig)

	if err := server.Stop(); err != nil {
		logger.Warn("Gateway shutdown error: %v", err)
	}
	return nil
}
