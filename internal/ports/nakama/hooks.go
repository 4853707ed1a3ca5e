package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"survivor/internal/app"
	"survivor/internal/domain"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-common/runtime"
)

// chatContent is the JSON body of a channel message. Players post text in
// "message"; the dice bot posts rendered results in "html".
type chatContent struct {
	Message string `json:"message"`
	HTML    string `json:"html"`
}

// parseCommand splits ".destroy Alice" into ("destroy", "Alice").
func parseCommand(prefix, text string) (command, target string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, prefix)
	command, target, _ = strings.Cut(rest, " ")
	if domain.ToID(command) == "" {
		return "", "", false
	}
	return command, strings.TrimSpace(target), true
}

// AfterChannelMessageSend feeds every chat line into the game host. Work is
// queued on the event loop so the realtime pipeline never waits on a game.
func (m *Module) AfterChannelMessageSend(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out, in *rtapi.Envelope) error {
	send := in.GetChannelMessageSend()
	if send == nil {
		return nil
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	username, _ := ctx.Value(runtime.RUNTIME_CTX_USERNAME).(string)
	if userID == "" {
		return nil
	}

	var content chatContent
	if err := json.Unmarshal([]byte(send.GetContent()), &content); err != nil {
		return nil
	}
	stream, err := parseChannelID(send.GetChannelId())
	if err != nil {
		logger.Debug("Ignoring message on unknown channel %q", send.GetChannelId())
		return nil
	}

	if content.HTML != "" {
		return m.handleHTML(logger, send.GetChannelId(), userID, content.HTML)
	}

	command, target, ok := parseCommand(m.cfg.CommandPrefix, content.Message)
	if !ok {
		return nil
	}
	u := domain.NewUser(username)
	m.chat.Remember(u, userID)

	msg := app.Message{User: u, Command: command, Target: target, Time: time.Now()}
	if stream.mode != streamModeDM {
		msg.Room = send.GetChannelId()
	}
	if err := m.loop.Post(func() {
		m.manager.Dispatch(context.Background(), msg)
	}); err != nil {
		logger.Warn("Dropped command %q from %s: %v", command, u.ID, err)
	}
	return nil
}

// handleHTML accepts rendered dice results from the configured dice bot only.
// Without a bot_user_id dice arrive through the roll_event RPC instead.
func (m *Module) handleHTML(logger runtime.Logger, room, senderID, html string) error {
	if m.cfg.BotUserID == "" || senderID != m.cfg.BotUserID {
		return nil
	}
	err := m.loop.Post(func() {
		if err := m.manager.HandleHTML(room, html); err != nil {
			logger.Warn("Unreadable dice result in %s: %v", room, err)
		}
	})
	if err != nil {
		logger.Warn("Dropped dice result in %s: %v", room, err)
	}
	return nil
}
