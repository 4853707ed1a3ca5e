package nakama

import (
	"context"
	"fmt"
	"sync"

	"survivor/internal/domain"
	"survivor/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaChatAdapter implements ports.ChatPort: room text goes out as channel
// messages from the bot account and private text as notifications.
type NakamaChatAdapter struct {
	nk         runtime.NakamaModule
	senderID   string
	senderName string

	mu sync.RWMutex
	// users maps a normalized identity to the Nakama user id behind it.
	users map[string]string
}

// NewNakamaChatAdapter creates a chat adapter sending as the given bot account.
func NewNakamaChatAdapter(nk runtime.NakamaModule, senderID, senderName string) *NakamaChatAdapter {
	return &NakamaChatAdapter{
		nk:         nk,
		senderID:   senderID,
		senderName: senderName,
		users:      make(map[string]string),
	}
}

// Remember records which Nakama account a chat identity belongs to.
func (a *NakamaChatAdapter) Remember(u domain.User, userID string) {
	if u.ID == "" || userID == "" {
		return
	}
	a.mu.Lock()
	a.users[u.ID] = userID
	a.mu.Unlock()
}

func (a *NakamaChatAdapter) SayRoom(ctx context.Context, roomID, text string) error {
	content := map[string]interface{}{"message": text}
	if _, err := a.nk.ChannelMessageSend(ctx, roomID, content, a.senderID, a.senderName, true); err != nil {
		return fmt.Errorf("failed to send to channel %s: %w", roomID, err)
	}
	return nil
}

func (a *NakamaChatAdapter) SayUser(ctx context.Context, userID, text string) error {
	target, err := a.resolve(ctx, userID)
	if err != nil {
		return err
	}
	content := map[string]interface{}{"message": text}
	return a.nk.NotificationSend(ctx, target, "survivor", content, notificationCodeWhisper, a.senderID, false)
}

// resolve maps a normalized identity to a Nakama user id, asking Nakama by
// username when the identity has not been seen in chat yet.
func (a *NakamaChatAdapter) resolve(ctx context.Context, id string) (string, error) {
	a.mu.RLock()
	target, ok := a.users[id]
	a.mu.RUnlock()
	if ok {
		return target, nil
	}

	users, err := a.nk.UsersGetUsername(ctx, []string{id})
	if err != nil {
		return "", fmt.Errorf("failed to look up user %s: %w", id, err)
	}
	if len(users) == 0 {
		return "", fmt.Errorf("unknown user %s", id)
	}
	a.mu.Lock()
	a.users[id] = users[0].Id
	a.mu.Unlock()
	return users[0].Id, nil
}

var _ ports.ChatPort = (*NakamaChatAdapter)(nil)
