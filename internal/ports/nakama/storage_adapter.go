package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"survivor/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

type hostCountersValue struct {
	Counters ports.HostCounters `json:"counters"`
}

type currentHostValue struct {
	UserID string `json:"user_id"`
}

// NakamaHostStore implements ports.HostStore on Nakama storage objects owned
// by the system user.
type NakamaHostStore struct {
	nk runtime.NakamaModule
}

// NewNakamaHostStore creates a host store backed by Nakama storage.
func NewNakamaHostStore(nk runtime.NakamaModule) *NakamaHostStore {
	return &NakamaHostStore{nk: nk}
}

func (s *NakamaHostStore) LoadCounters(ctx context.Context) (ports.HostCounters, error) {
	var v hostCountersValue
	if err := s.read(ctx, hostCountersKey, &v); err != nil {
		return nil, err
	}
	if v.Counters == nil {
		v.Counters = make(ports.HostCounters)
	}
	return v.Counters, nil
}

func (s *NakamaHostStore) SaveCounters(ctx context.Context, counters ports.HostCounters) error {
	return s.write(ctx, hostCountersKey, hostCountersValue{Counters: counters})
}

func (s *NakamaHostStore) LoadHost(ctx context.Context) (string, error) {
	var v currentHostValue
	if err := s.read(ctx, hostCurrentKey, &v); err != nil {
		return "", err
	}
	return v.UserID, nil
}

func (s *NakamaHostStore) SaveHost(ctx context.Context, userID string) error {
	return s.write(ctx, hostCurrentKey, currentHostValue{UserID: userID})
}

// read decodes the object at key into dst, leaving dst untouched when the
// object does not exist.
func (s *NakamaHostStore) read(ctx context.Context, key string, dst interface{}) error {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: hostCollection, Key: key},
	})
	if err != nil {
		return fmt.Errorf("failed to read %s/%s: %w", hostCollection, key, err)
	}
	if len(objects) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(objects[0].Value), dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", hostCollection, key, err)
	}
	return nil
}

func (s *NakamaHostStore) write(ctx context.Context, key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", hostCollection, key, err)
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      hostCollection,
			Key:             key,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", hostCollection, key, err)
	}
	return nil
}

var _ ports.HostStore = (*NakamaHostStore)(nil)
