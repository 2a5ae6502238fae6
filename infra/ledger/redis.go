// Package ledger provides the Redis-backed pending-command ledger used when
// the gateway runs as multiple stateless workers sharing correlation state.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	coreledger "github.com/voltbridge/ocpp-gateway/core/ledger"
)

// Config defines the Redis connection parameters.
type Config struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "ocpp:pending:"
	}
}

// RedisLedger implements the ledger contract on a shared Redis instance.
// SET NX supplies duplicate detection, GETDEL supplies the exactly-once
// resolve, and the key TTL supplies expiry without any sweeper.
type RedisLedger struct {
	cli    *redis.Client
	prefix string
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(ctx context.Context, cfg Config) (*RedisLedger, error) {
	cfg.SetDefaults()
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLedger{cli: cli, prefix: cfg.KeyPrefix}, nil
}

func (l *RedisLedger) key(correlationID string) string { return l.prefix + correlationID }

func (l *RedisLedger) Record(ctx context.Context, e coreledger.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("entry %s already expired", e.CorrelationID)
	}
	ok, err := l.cli.SetNX(ctx, l.key(e.CorrelationID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return coreledger.ErrDuplicateCorrelationID
	}
	return nil
}

func (l *RedisLedger) Resolve(ctx context.Context, correlationID string) (coreledger.Entry, bool, error) {
	raw, err := l.cli.GetDel(ctx, l.key(correlationID)).Bytes()
	if err == redis.Nil {
		return coreledger.Entry{}, false, nil
	}
	if err != nil {
		return coreledger.Entry{}, false, fmt.Errorf("redis getdel: %w", err)
	}
	var e coreledger.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return coreledger.Entry{}, false, fmt.Errorf("unmarshal ledger entry: %w", err)
	}
	return e, true, nil
}

// Expire is a no-op: Redis evicts pending keys via the TTL set in Record.
func (l *RedisLedger) Expire(context.Context, time.Time) (int, error) { return 0, nil }

// Close releases the underlying Redis connection.
func (l *RedisLedger) Close() error { return l.cli.Close() }
