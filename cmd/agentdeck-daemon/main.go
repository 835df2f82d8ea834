// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/agentdeck/agentdeck/deck"
	"github.com/agentdeck/agentdeck/ledger"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/lib/config"
	"github.com/agentdeck/agentdeck/lib/process"
	"github.com/agentdeck/agentdeck/lib/service"
	"github.com/agentdeck/agentdeck/lib/tmux"
	"github.com/agentdeck/agentdeck/lib/version"
	"github.com/agentdeck/agentdeck/notify"
	"github.com/agentdeck/agentdeck/terminal"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		logLevel    string
		showVersion bool
	)
	flags := pflag.NewFlagSet("agentdeck-daemon", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvVar+", else built-in defaults)")
	flags.StringVar(&socketPath, "socket", "", "control socket path (overrides the config file)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides the config file)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("agentdeck-daemon")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureStateDir(); err != nil {
		return err
	}

	logger := service.NewLogger(cfg.SlogLevel())
	logger.Info("agentdeck-daemon starting", "version", version.Info(), "state_dir", cfg.StateDir)

	lock, err := process.LockDir(cfg.StateDir, "agentdeck.lock")
	if err != nil {
		return fmt.Errorf("another daemon owns %s: %w", cfg.StateDir, err)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	output, err := ledger.Open(ledger.Config{
		Path:   filepath.Join(cfg.StateDir, "output.db"),
		Clock:  clk,
		Logger: logger.With("component", "ledger"),
	})
	if err != nil {
		return err
	}
	defer output.Close()

	catalog, err := agentkind.LoadCatalog(cfg.Agents.OverridesFile)
	if err != nil {
		return err
	}

	driver := terminal.NewBounded(
		terminal.NewTmux(tmux.NewServer(cfg.Tmux.Socket, cfg.Tmux.ConfigFile), terminal.TmuxOptions{
			Width:        cfg.Tmux.Width,
			Height:       cfg.Tmux.Height,
			HistoryLimit: cfg.Tmux.HistoryLimit,
		}),
		cfg.Tmux.Concurrency,
		cfg.Tmux.CommandTimeout,
	)

	deckConfig := deck.Config{
		Driver:          driver,
		Ledger:          output,
		Catalog:         catalog,
		Clock:           clk,
		Logger:          logger,
		PublicURL:       cfg.PublicURL,
		DebugWorkingDir: cfg.DebugWorkingDir,
		RecentDirsPath:  filepath.Join(cfg.StateDir, "recent_dirs"),
		RehydrateDirs:   cfg.Agents.RehydrateDirs,
		Capture: deck.CaptureSettings{
			Interval:         cfg.Capture.Interval,
			FingerprintLines: cfg.Capture.FingerprintLines,
			MaxFailures:      cfg.Capture.MaxFailures,
			HistoryLimit:     cfg.Tmux.HistoryLimit,
		},
	}

	if !cfg.Push.Disabled {
		subscriptions, closeSubscriptions, err := openPush(cfg, clk, logger, &deckConfig)
		if err != nil {
			return err
		}
		defer closeSubscriptions()
		logger.Info("push notifications enabled", "subscriber", cfg.Push.Subscriber, "store_path", subscriptions)
	}

	agentDeck, err := deck.New(deckConfig)
	if err != nil {
		return err
	}
	if err := agentDeck.Start(ctx); err != nil {
		return err
	}
	defer agentDeck.Stop()

	server := service.NewSocketServer(cfg.SocketPath, logger.With("component", "socket"))
	newDaemon(agentDeck, clk, cfg.DefaultWorkingDir, logger).registerActions(server)

	err = server.Serve(ctx)
	logger.Info("agentdeck-daemon stopping")
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openPush loads or creates the VAPID keys, opens the subscription
// store, and fills in the push fields of deckConfig.
func openPush(cfg *config.Config, clk clock.Clock, logger *slog.Logger, deckConfig *deck.Config) (string, func(), error) {
	keys, created, err := notify.LoadOrCreateVAPID(filepath.Join(cfg.StateDir, "vapid.json"))
	if err != nil {
		return "", nil, err
	}
	if created {
		logger.Info("generated VAPID key pair")
	}

	pusher, err := notify.NewWebPush(notify.WebPushConfig{
		Keys:       keys,
		Subscriber: cfg.Push.Subscriber,
		TTL:        cfg.Push.TTL,
	})
	if err != nil {
		return "", nil, err
	}

	storePath := filepath.Join(cfg.StateDir, "push.db")
	subscriptions, err := notify.OpenStore(notify.StoreConfig{
		Path:   storePath,
		Clock:  clk,
		Logger: logger.With("component", "subscriptions"),
	})
	if err != nil {
		return "", nil, err
	}

	deckConfig.Subscriptions = subscriptions
	deckConfig.Pusher = pusher
	deckConfig.VAPIDPublicKey = keys.PublicKey
	return storePath, func() { subscriptions.Close() }, nil
}
