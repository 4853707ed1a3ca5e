package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"survivor/internal/app"
	"survivor/internal/domain"
	"survivor/internal/format"
	"survivor/internal/game"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	errInvalidPayload = runtime.NewError("invalid payload", codeInvalidArgument)
	errNoSession      = runtime.NewError("no user session", codeUnauthenticated)
	errInternal       = runtime.NewError("internal error", codeInternal)
	errNoGame         = runtime.NewError("no game in that room", codeNotFound)
	errUnknownFormat  = runtime.NewError("unknown game format", codeNotFound)
	errGameInProgress = runtime.NewError("a game is already in progress", codeFailedPrecondition)
	errRollsDisabled  = runtime.NewError("roll events are not enabled", codeFailedPrecondition)
	errBadRollToken   = runtime.NewError("invalid roll token", codeUnauthenticated)
)

// caller returns the chat identity of the RPC's session user.
func (m *Module) caller(ctx context.Context) (domain.User, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	username, _ := ctx.Value(runtime.RUNTIME_CTX_USERNAME).(string)
	if userID == "" || username == "" {
		return domain.User{}, errNoSession
	}
	u := domain.NewUser(username)
	m.chat.Remember(u, userID)
	return u, nil
}

// resolveRoom accepts a channel id or a plain room name.
func resolveRoom(ctx context.Context, nk runtime.NakamaModule, room string) (string, error) {
	if _, err := parseChannelID(room); err == nil {
		return room, nil
	}
	return nk.ChannelIdBuild(ctx, "", room, runtime.Room)
}

func marshalStruct(fields map[string]interface{}) (string, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return "", err
	}
	out, err := protojson.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RpcCreateGame creates a game and opens signups.
// Payload: {"room": "lobby", "format": "survivor,mini"}
func (m *Module) RpcCreateGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	u, err := m.caller(ctx)
	if err != nil {
		return "", err
	}
	var req struct {
		Room   string `json:"room"`
		Format string `json:"format"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Room == "" || strings.TrimSpace(req.Format) == "" {
		return "", errInvalidPayload
	}
	room, err := resolveRoom(ctx, nk, req.Room)
	if err != nil {
		return "", errInvalidPayload
	}

	var g *game.Game
	var createErr error
	if err := m.loop.Do(ctx, func() {
		g, createErr = m.manager.OpenGame(req.Format, room, u)
	}); err != nil {
		logger.Error("RpcCreateGame [User:%s]: event loop unavailable: %v", u.ID, err)
		return "", errInternal
	}
	switch {
	case errors.Is(createErr, app.ErrGameInProgress):
		return "", errGameInProgress
	case errors.Is(createErr, format.ErrFormatNotFound), errors.Is(createErr, format.ErrAliasCycle):
		return "", errUnknownFormat
	case createErr != nil:
		logger.Error("RpcCreateGame [User:%s]: %v", u.ID, createErr)
		return "", errInternal
	}

	logger.Info("RpcCreateGame [User:%s]: created %s in %s", u.ID, g.Name, room)
	return marshalStruct(map[string]interface{}{
		"game_id": g.ID,
		"name":    g.NamePrefix + g.Name,
		"room":    room,
	})
}

// RpcGameCommand runs one chat command. An empty room sends it as a direct message.
// Payload: {"room": "lobby", "command": "in", "target": ""}
func (m *Module) RpcGameCommand(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	u, err := m.caller(ctx)
	if err != nil {
		return "", err
	}
	var req struct {
		Room    string `json:"room"`
		Command string `json:"command"`
		Target  string `json:"target"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || domain.ToID(req.Command) == "" {
		return "", errInvalidPayload
	}
	msg := app.Message{User: u, Command: req.Command, Target: req.Target, Time: time.Now()}
	if req.Room != "" {
		if msg.Room, err = resolveRoom(ctx, nk, req.Room); err != nil {
			return "", errInvalidPayload
		}
	}

	var handled bool
	if err := m.loop.Do(ctx, func() {
		handled = m.manager.Dispatch(ctx, msg)
	}); err != nil {
		logger.Error("RpcGameCommand [User:%s]: event loop unavailable: %v", u.ID, err)
		return "", errInternal
	}
	return marshalStruct(map[string]interface{}{"handled": handled})
}

// RpcRollEvent delivers a signed dice result to the game it names.
// Payload: {"token": "<jwt>"}
func (m *Module) RpcRollEvent(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if m.rolls == nil {
		return "", errRollsDisabled
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Token == "" {
		return "", errInvalidPayload
	}
	ev, err := m.rolls.Verify(req.Token)
	if err != nil {
		logger.Warn("RpcRollEvent: rejected token: %v", err)
		return "", errBadRollToken
	}
	room, err := resolveRoom(ctx, nk, ev.Room)
	if err != nil {
		return "", errInvalidPayload
	}

	var handleErr error
	if err := m.loop.Do(ctx, func() {
		handleErr = m.manager.HandleRollEvent(room, ev.Message)
	}); err != nil {
		return "", errInternal
	}
	if errors.Is(handleErr, app.ErrNoGame) {
		return "", errNoGame
	}
	return marshalStruct(map[string]interface{}{"accepted": true})
}

// RpcGameState returns the public state of the game in a room.
// Payload: {"room": "lobby"}
func (m *Module) RpcGameState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Room == "" {
		return "", errInvalidPayload
	}
	room, err := resolveRoom(ctx, nk, req.Room)
	if err != nil {
		return "", errInvalidPayload
	}

	var snapshot app.Snapshot
	var found bool
	if err := m.loop.Do(ctx, func() {
		snapshot, found = m.manager.Snapshot(room)
	}); err != nil {
		return "", errInternal
	}
	if !found {
		return "", errNoGame
	}
	return marshalStruct(snapshotFields(snapshot))
}

// RpcHostStats reports how often a user hosted recently.
// Payload: {"user": "alice", "days": 7}
func (m *Module) RpcHostStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		User string `json:"user"`
		Days int    `json:"days"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || domain.ToID(req.User) == "" || req.Days < 0 {
		return "", errInvalidPayload
	}
	if req.Days == 0 {
		req.Days = 7
	}
	now := time.Now()
	count, known := m.hosts.Count(req.User, req.Days, now)
	return marshalStruct(map[string]interface{}{
		"user":    domain.ToID(req.User),
		"days":    req.Days,
		"count":   count,
		"known":   known,
		"summary": m.hosts.Report(req.User, req.Days, now),
		"current": m.hosts.Host(),
	})
}

// RpcListGames lists the available formats with their variations and modes.
func (m *Module) RpcListGames(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	formats := m.manager.Registry().Formats()
	list := make([]interface{}, 0, len(formats))
	for _, f := range formats {
		list = append(list, formatFields(f))
	}
	return marshalStruct(map[string]interface{}{"games": list})
}
