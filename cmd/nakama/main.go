// Command nakama is the plugin entry point loaded by a Nakama server
// (go build -buildmode=plugin).
package main

import (
	"context"
	"database/sql"

	"survivor/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule hands the runtime to the game host.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}
