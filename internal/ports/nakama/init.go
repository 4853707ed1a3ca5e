package nakama

import (
	"context"
	"database/sql"
	"os"

	"survivor/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

const defaultConfigPath = "data/game_config.json"

// InitModule loads the game host and registers its RPCs and chat hook.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	path := defaultConfigPath
	if p := env[config.EnvPrefix+"config_path"]; p != "" {
		path = p
	} else if p := os.Getenv("SURVIVOR_CONFIG_PATH"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := NewModule(ctx, logger, nk, cfg)
	if err != nil {
		return err
	}
	if err := m.Register(initializer); err != nil {
		return err
	}

	logger.Info("Survivor game host loaded.")
	return nil
}

// Register wires the module's RPCs, realtime hook and shutdown handler.
func (m *Module) Register(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcCreateGame:  m.RpcCreateGame,
		RpcGameCommand: m.RpcGameCommand,
		RpcRollEvent:   m.RpcRollEvent,
		RpcGameState:   m.RpcGameState,
		RpcHostStats:   m.RpcHostStats,
		RpcListGames:   m.RpcListGames,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	if err := initializer.RegisterAfterRt(RtChannelMessageSend, m.AfterChannelMessageSend); err != nil {
		return err
	}
	return initializer.RegisterShutdown(func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) {
		if err := m.Shutdown(ctx); err != nil {
			logger.Error("Failed to flush host counters on shutdown: %v", err)
		}
	})
}
