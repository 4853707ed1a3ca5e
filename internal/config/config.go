package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	HostStoreNakama = "nakama"
	HostStoreRedis  = "redis"

	// EnvPrefix marks the Nakama runtime env keys that override file values.
	EnvPrefix = "survivor_"
)

var ErrInvalidConfig = errors.New("invalid game config")

type GameConfig struct {
	CommandPrefix string `json:"command_prefix"`

	SignupDelaySeconds       int `json:"signup_delay_seconds"`
	RerollDelaySeconds       int `json:"reroll_delay_seconds"`
	HostFlushIntervalSeconds int `json:"host_flush_interval_seconds"`

	// MaintainerChannel receives mailbreak reports.
	MaintainerChannel string `json:"maintainer_channel"`
	BotUserID         string `json:"bot_user_id"`
	BotUsername       string `json:"bot_username"`

	HostStore string `json:"host_store"`
	RedisAddr string `json:"redis_addr"`

	RollSecret string `json:"roll_secret"`
	RollIssuer string `json:"roll_issuer"`
}

// Default returns the configuration used when no file is present.
func Default() GameConfig {
	return GameConfig{
		CommandPrefix:            ".",
		SignupDelaySeconds:       300,
		RerollDelaySeconds:       5,
		HostFlushIntervalSeconds: 60,
		BotUsername:              "Survivor",
		HostStore:                HostStoreNakama,
		RollIssuer:               "dicebot",
	}
}

// Load reads the JSON config at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (GameConfig, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to read game config: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from Nakama runtime env entries such as
// survivor_command_prefix or survivor_signup_delay_seconds.
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[EnvPrefix+key]; ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := env[EnvPrefix+key]
		if !ok {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, key, v)
		}
		*dst = i
		return nil
	}

	str("command_prefix", &c.CommandPrefix)
	str("maintainer_channel", &c.MaintainerChannel)
	str("bot_user_id", &c.BotUserID)
	str("bot_username", &c.BotUsername)
	str("host_store", &c.HostStore)
	str("redis_addr", &c.RedisAddr)
	str("roll_secret", &c.RollSecret)
	str("roll_issuer", &c.RollIssuer)

	if err := num("signup_delay_seconds", &c.SignupDelaySeconds); err != nil {
		return err
	}
	if err := num("reroll_delay_seconds", &c.RerollDelaySeconds); err != nil {
		return err
	}
	return num("host_flush_interval_seconds", &c.HostFlushIntervalSeconds)
}

// Validate rejects configurations the host cannot run with.
func (c GameConfig) Validate() error {
	if c.CommandPrefix == "" {
		return fmt.Errorf("%w: command_prefix is empty", ErrInvalidConfig)
	}
	if c.SignupDelaySeconds <= 0 || c.RerollDelaySeconds <= 0 || c.HostFlushIntervalSeconds <= 0 {
		return fmt.Errorf("%w: delays must be positive", ErrInvalidConfig)
	}
	switch c.HostStore {
	case HostStoreNakama:
	case HostStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis host store needs redis_addr", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown host_store %q", ErrInvalidConfig, c.HostStore)
	}
	return nil
}

func (c GameConfig) SignupDelay() time.Duration {
	return time.Duration(c.SignupDelaySeconds) * time.Second
}

func (c GameConfig) RerollDelay() time.Duration {
	return time.Duration(c.RerollDelaySeconds) * time.Second
}

func (c GameConfig) HostFlushInterval() time.Duration {
	return time.Duration(c.HostFlushIntervalSeconds) * time.Second
}

// RollTokensEnabled reports whether structured roll events are accepted.
func (c GameConfig) RollTokensEnabled() bool {
	return c.RollSecret != "" && c.RollIssuer != ""
}
