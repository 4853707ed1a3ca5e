package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	channel string
	text    string
}

type sentNotification struct {
	userID string
	text   string
}

type fakePresence struct {
	runtime.Presence
	userID   string
	username string
}

func (p fakePresence) GetUserId() string   { return p.userID }
func (p fakePresence) GetUsername() string { return p.username }

// fakeNakama implements the slice of runtime.NakamaModule the adapters use.
// Calling anything else panics on the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule

	mu            sync.Mutex
	objects       map[string]string
	writes        int
	messages      []sentMessage
	notifications []sentNotification
	usernames     map[string]string
	presences     map[string][]runtime.Presence
	storageErr    error
}

func newFakeNakama() *fakeNakama {
	return &fakeNakama{
		objects:   make(map[string]string),
		usernames: make(map[string]string),
		presences: make(map[string][]runtime.Presence),
	}
}

func (f *fakeNakama) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	var out []*api.StorageObject
	for _, r := range reads {
		if v, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, &api.StorageObject{Collection: r.Collection, Key: r.Key, Value: v})
		}
	}
	return out, nil
}

func (f *fakeNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		f.objects[w.Collection+"/"+w.Key] = w.Value
		f.writes++
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key})
	}
	return acks, nil
}

func (f *fakeNakama) ChannelMessageSend(ctx context.Context, channelID string, content map[string]interface{}, senderId, senderUsername string, persist bool) (*rtapi.ChannelMessageAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, _ := content["message"].(string)
	f.messages = append(f.messages, sentMessage{channel: channelID, text: text})
	return &rtapi.ChannelMessageAck{ChannelId: channelID}, nil
}

func (f *fakeNakama) NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, _ := content["message"].(string)
	f.notifications = append(f.notifications, sentNotification{userID: userID, text: text})
	return nil
}

func (f *fakeNakama) UsersGetUsername(ctx context.Context, usernames []string) ([]*api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*api.User
	for _, name := range usernames {
		if id, ok := f.usernames[name]; ok {
			out = append(out, &api.User{Id: id, Username: name})
		}
	}
	return out, nil
}

func (f *fakeNakama) StreamUserList(mode uint8, subject, subcontext, label string, includeHidden, includeNotHidden bool) ([]runtime.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mode != streamModeRoom {
		return nil, fmt.Errorf("unexpected stream mode %d", mode)
	}
	return f.presences[label], nil
}

func (f *fakeNakama) ChannelIdBuild(ctx context.Context, sender, target string, chanType runtime.ChannelType) (string, error) {
	return fmt.Sprintf("%d...%s", streamModeRoom, target), nil
}

func (f *fakeNakama) said(channel, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.channel == channel && m.text == text {
			return true
		}
	}
	return false
}

func (f *fakeNakama) saidPrefix(channel, prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.channel == channel && strings.HasPrefix(m.text, prefix) {
			return true
		}
	}
	return false
}

type rpcFunc = func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error)

// fakeInitializer records what the module registers.
type fakeInitializer struct {
	runtime.Initializer

	rpcs     map[string]rpcFunc
	afterRt  map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, *rtapi.Envelope, *rtapi.Envelope) error
	shutdown func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule)
}

func newFakeInitializer() *fakeInitializer {
	return &fakeInitializer{
		rpcs:    make(map[string]rpcFunc),
		afterRt: make(map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, *rtapi.Envelope, *rtapi.Envelope) error),
	}
}

func (f *fakeInitializer) RegisterRpc(id string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)) error {
	f.rpcs[id] = fn
	return nil
}

func (f *fakeInitializer) RegisterAfterRt(id string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out, in *rtapi.Envelope) error) error {
	f.afterRt[id] = fn
	return nil
}

func (f *fakeInitializer) RegisterShutdown(fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule)) error {
	f.shutdown = fn
	return nil
}
