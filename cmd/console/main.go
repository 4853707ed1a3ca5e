// Command console runs the game host against a terminal. Each stdin line is
// either a chat command ("lobby Alice .in", "- Bob .d Alice" for a direct
// message) or a dice result ("!roll lobby 42", "!pick lobby Alice").
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"survivor/internal/app"
	"survivor/internal/app/hosting"
	"survivor/internal/config"
	"survivor/internal/format"
	"survivor/internal/games"
	"survivor/internal/ports"
	"survivor/internal/ports/console"
	"survivor/internal/ports/redisstore"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "data/game_config.json", "path to the game config")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	zl, err := newZap(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	logger := console.NewZapLogger(zl)

	if err := run(*configPath, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func newZap(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func run(configPath string, logger *console.ZapLogger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := games.Catalog()
	if err != nil {
		return err
	}
	registry, err := format.Load(catalog, app.HostCommands)
	if err != nil {
		return err
	}

	var store ports.HostStore = hosting.NewMemoryStore()
	if cfg.HostStore == config.HostStoreRedis {
		client, err := redisstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		store = redisstore.New(client, "")
	}
	hosts := hosting.NewService(store, logger)
	if err := hosts.Load(ctx); err != nil {
		logger.Warn("Starting with empty host counters: %v", err)
	}

	loop := app.NewLoop(0)
	manager := app.NewManager(ctx, app.Deps{
		Registry: registry,
		Chat:     console.NewChat(os.Stdout),
		Timers:   loop,
		Hosts:    hosts,
		Logger:   logger,
	}, app.Settings{
		SignupDelay: cfg.SignupDelay(),
		RerollDelay: cfg.RerollDelay(),
		Maintainer:  cfg.MaintainerChannel,
	})
	go loop.Run(ctx)
	if err := hosts.Start(ctx, cfg.HostFlushInterval()); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	logger.Info("Game host ready with %d formats.", len(registry.Formats()))
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case line, ok := <-lines:
			if !ok {
				done = true
				break
			}
			handleLine(ctx, loop, manager, logger, cfg.CommandPrefix, line)
		}
	}

	loop.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hosts.Stop(shutdownCtx)
}

func handleLine(ctx context.Context, loop *app.Loop, manager *app.Manager, logger *console.ZapLogger, prefix, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if room, msg, ok := console.ParseDice(line); ok {
		err := loop.Do(ctx, func() {
			if err := manager.HandleRollEvent(room, msg); err != nil {
				logger.Warn("%v", err)
			}
		})
		if err != nil {
			logger.Warn("Dropped dice result: %v", err)
		}
		return
	}
	msg, ok := console.ParseLine(prefix, line, time.Now())
	if !ok {
		logger.Debug("Ignoring line %q", line)
		return
	}
	if err := loop.Do(ctx, func() { manager.Dispatch(ctx, msg) }); err != nil {
		logger.Warn("Dropped command %q: %v", msg.Command, err)
	}
}
