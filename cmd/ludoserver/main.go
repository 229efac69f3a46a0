// Command ludoserver runs the Ludo room server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/internal/config"
	"github.com/yourusername/ludoengine/internal/logging"
	"github.com/yourusername/ludoengine/internal/storage/backend"
	"github.com/yourusername/ludoengine/pkg/api"
	"github.com/yourusername/ludoengine/pkg/engine"
	"github.com/yourusername/ludoengine/pkg/session"
)

const version = "0.1.0"

func main() {
	// Flags override the environment
	host := flag.String("host", "", "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", 0, "Port to listen on")
	storageKind := flag.String("storage", "", "Storage backend: memory, bbolt, sqlite or redis")
	storagePath := flag.String("storage-path", "", "Database file for bbolt or sqlite storage")
	envFile := flag.String("env-file", ".env", "Optional .env file")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Ludo Server v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *storageKind != "" {
		cfg.Storage = *storageKind
	}
	if *storagePath != "" {
		cfg.StoragePath = *storagePath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *readTimeout, *writeTimeout); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func run(cfg config.Config, log *logrus.Logger, readTimeout, writeTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	repo, err := backend.Open(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage, err)
	}
	defer repo.Close()
	log.WithField("storage", cfg.Storage).Info("storage ready")

	hub := api.NewHub(log)
	sessions := session.NewManager(repo, engine.NewRandomDice(), hub, log, session.Options{
		AutoBots:      cfg.AutoBots,
		BotDelayScale: cfg.BotDelayScale,
		StaleAfter:    cfg.StaleAfter,
		MaxPlayers:    engine.MaxPlayers,
	})
	defer sessions.Close()

	serverCfg := api.DefaultConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.ReadTimeout = readTimeout
	serverCfg.WriteTimeout = writeTimeout
	serverCfg.MaxFastWorkers = cfg.FastWorkers
	serverCfg.MaxSlowWorkers = cfg.SlowWorkers
	serverCfg.SlowTimeout = cfg.SlowTimeout
	serverCfg.CleanupInterval = cfg.CleanupInterval
	serverCfg.StaleAfter = cfg.StaleAfter

	server := api.NewServer(sessions, hub, serverCfg, version, log)
	return server.ListenAndServeWithGracefulShutdown()
}
