package nakama

import (
	"context"
	"fmt"

	"survivor/internal/app"
	"survivor/internal/app/hosting"
	"survivor/internal/app/rollauth"
	"survivor/internal/config"
	"survivor/internal/format"
	"survivor/internal/games"
	"survivor/internal/ports"
	"survivor/internal/ports/redisstore"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Module is the running game host inside one Nakama process. Every state
// change goes through loop; handlers only parse input and post work.
type Module struct {
	cfg     config.GameConfig
	loop    *app.Loop
	manager *app.Manager
	hosts   *hosting.Service
	chat    *NakamaChatAdapter
	rolls   *rollauth.Service
	logger  runtime.Logger

	cancel context.CancelFunc
}

// NewModule builds the host and starts its event loop and host flush.
func NewModule(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, cfg config.GameConfig) (*Module, error) {
	catalog, err := games.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to read game catalog: %w", err)
	}
	registry, err := format.Load(catalog, app.HostCommands)
	if err != nil {
		return nil, fmt.Errorf("failed to load game formats: %w", err)
	}

	store, err := newHostStore(ctx, nk, cfg)
	if err != nil {
		return nil, err
	}
	hosts := hosting.NewService(store, logger)
	if err := hosts.Load(ctx); err != nil {
		logger.Warn("Starting with empty host counters: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m := &Module{
		cfg:    cfg,
		loop:   app.NewLoop(0),
		hosts:  hosts,
		chat:   NewNakamaChatAdapter(nk, cfg.BotUserID, cfg.BotUsername),
		logger: logger,
		cancel: cancel,
	}
	if cfg.RollTokensEnabled() {
		m.rolls = rollauth.NewService(cfg.RollSecret, cfg.RollIssuer, 0)
	}
	m.manager = app.NewManager(runCtx, app.Deps{
		Registry:  registry,
		Chat:      m.chat,
		Directory: NewNakamaRoomDirectory(nk),
		Timers:    m.loop,
		Hosts:     hosts,
		Logger:    logger,
	}, app.Settings{
		SignupDelay: cfg.SignupDelay(),
		RerollDelay: cfg.RerollDelay(),
		Maintainer:  cfg.MaintainerChannel,
	})

	go m.loop.Run(runCtx)
	if err := hosts.Start(runCtx, cfg.HostFlushInterval()); err != nil {
		cancel()
		return nil, err
	}
	return m, nil
}

func newHostStore(ctx context.Context, nk runtime.NakamaModule, cfg config.GameConfig) (ports.HostStore, error) {
	if cfg.HostStore != config.HostStoreRedis {
		return NewNakamaHostStore(nk), nil
	}
	client, err := redisstore.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	return redisstore.New(client, ""), nil
}

// Shutdown stops the loop and writes pending host counters.
func (m *Module) Shutdown(ctx context.Context) error {
	err := m.hosts.Stop(ctx)
	m.loop.Close()
	m.cancel()
	return err
}
