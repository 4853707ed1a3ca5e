// Package redisstore keeps host-activity counters in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"survivor/internal/ports"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "survivor:"

// Store implements ports.HostStore with one hash of per-user timestamp lists
// and one string key for the current host.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

var _ ports.HostStore = (*Store)(nil)

// New returns a store over client. An empty prefix uses DefaultKeyPrefix.
func New(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: keyPrefix}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) countersKey() string { return s.keyPrefix + "hosts" }
func (s *Store) hostKey() string     { return s.keyPrefix + "host" }

func (s *Store) LoadCounters(ctx context.Context) (ports.HostCounters, error) {
	fields, err := s.client.HGetAll(ctx, s.countersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read host counters: %w", err)
	}
	counters := make(ports.HostCounters, len(fields))
	for user, raw := range fields {
		var entries []int64
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("failed to decode host counters of %s: %w", user, err)
		}
		counters[user] = entries
	}
	return counters, nil
}

// SaveCounters replaces the whole hash in one transaction.
func (s *Store) SaveCounters(ctx context.Context, counters ports.HostCounters) error {
	values := make(map[string]interface{}, len(counters))
	for user, entries := range counters {
		if entries == nil {
			entries = []int64{}
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to encode host counters of %s: %w", user, err)
		}
		values[user] = string(raw)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.countersKey())
		if len(values) > 0 {
			pipe.HSet(ctx, s.countersKey(), values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write host counters: %w", err)
	}
	return nil
}

func (s *Store) LoadHost(ctx context.Context) (string, error) {
	host, err := s.client.Get(ctx, s.hostKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read current host: %w", err)
	}
	return host, nil
}

func (s *Store) SaveHost(ctx context.Context, userID string) error {
	var err error
	if userID == "" {
		err = s.client.Del(ctx, s.hostKey()).Err()
	} else {
		err = s.client.Set(ctx, s.hostKey(), userID, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to write current host: %w", err)
	}
	return nil
}
