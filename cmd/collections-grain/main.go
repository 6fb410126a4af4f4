// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// collections-grain serves a shared collection of saved grain
// references to the host platform.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/collections/collection"
	"github.com/bureau-foundation/collections/lib/clock"
	"github.com/bureau-foundation/collections/lib/config"
	"github.com/bureau-foundation/collections/lib/hostrpc"
	"github.com/bureau-foundation/collections/lib/process"
	"github.com/bureau-foundation/collections/lib/taskset"
	"github.com/bureau-foundation/collections/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath     string
	listenSocket   string
	platformSocket string
	showVersion    bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("collections-grain", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to the grain config file (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&opts.listenSocket, "listen-socket", "", "override host.listen_socket")
	flagSet.StringVar(&opts.platformSocket, "platform-socket", "", "override host.platform_socket")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	return opts, nil
}

// loadConfig picks the config source: --config, then the environment
// variable, then built-in defaults.
func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Resolved()
	}
	if err != nil {
		return nil, err
	}

	if opts.listenSocket != "" {
		cfg.Host.ListenSocket = opts.listenSocket
	}
	if opts.platformSocket != "" {
		cfg.Host.PlatformSocket = opts.platformSocket
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err == pflag.ErrHelp {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.showVersion {
		version.Print()
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks := taskset.New(taskset.LogReaper{Logger: logger})
	store, err := collection.Open(collection.StoreConfig{
		Directory:       cfg.Paths.References,
		DescriptionPath: cfg.Paths.Description,
		OutboxCapacity:  cfg.Fanout.OutboxCapacity,
		Clock:           clock.Real(),
		Logger:          logger,
		Tasks:           tasks,
	})
	if err != nil {
		return fmt.Errorf("opening reference store: %w", err)
	}

	grain := newGrain(collection.NewView(collection.ViewConfig{
		Store:            store,
		Platform:         newPlatform(hostrpc.NewClient(cfg.Host.PlatformSocket)),
		Static:           collection.NewStaticContent(cfg.Paths.Static, cfg.Paths.Var, logger),
		HeartbeatTimeout: cfg.HeartbeatTimeout(),
		Logger:           logger,
	}), logger)

	server := hostrpc.NewServer(cfg.Host.ListenSocket, logger)
	grain.registerActions(server)

	logger.Info("collections grain running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"references", len(store.Entries()),
		"listen_socket", cfg.Host.ListenSocket,
		"platform_socket", cfg.Host.PlatformSocket,
	)

	serveErr := server.Serve(ctx)
	logger.Info("shutting down")
	tasks.Wait()
	return serveErr
}
