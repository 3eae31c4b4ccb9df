package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGateway is a Gateway backed by Redis, used when scan workers and the
// HTTP frontend run as separate processes. TTL enforcement is delegated to
// key expiry.
type RedisGateway struct {
	cli *redis.Client
}

// RedisConfig holds the connection parameters of the job gateway backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisGateway creates a gateway on a fresh Redis client.
func NewRedisGateway(cfg RedisConfig) *RedisGateway {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisGateway{cli: cli}
}

// NewRedisGatewayFromClient wraps an existing client, for tests.
func NewRedisGatewayFromClient(cli *redis.Client) *RedisGateway {
	return &RedisGateway{cli: cli}
}

// Compile-time interface check.
var _ Gateway = (*RedisGateway)(nil)

func statusKey(jobID string) string   { return "job:" + jobID + ":status" }
func logKey(jobID string) string      { return "job:" + jobID + ":log" }
func decisionKey(jobID string) string { return "job:" + jobID + ":decision" }

// Ping verifies connectivity.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.cli.Ping(ctx).Err()
}

// Close releases the underlying client.
func (g *RedisGateway) Close() error {
	return g.cli.Close()
}

func (g *RedisGateway) Publish(ctx context.Context, jobID string, rec *Record) error {
	recCopy := *rec
	recCopy.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(&recCopy)
	if err != nil {
		return fmt.Errorf("publish job %s: marshal record: %w", jobID, err)
	}
	if err := g.cli.Set(ctx, statusKey(jobID), payload, TTL).Err(); err != nil {
		return fmt.Errorf("publish job %s: %w", jobID, err)
	}
	return nil
}

func (g *RedisGateway) Fetch(ctx context.Context, jobID string) (*Record, error) {
	payload, err := g.cli.Get(ctx, statusKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnknownJob
		}
		return nil, fmt.Errorf("fetch job %s: %w", jobID, err)
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("fetch job %s: unmarshal record: %w", jobID, err)
	}
	return &rec, nil
}

func (g *RedisGateway) AppendLog(ctx context.Context, jobID string, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("append log job %s: marshal event: %w", jobID, err)
	}

	key := logKey(jobID)
	pipe := g.cli.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -int64(MaxLogEntries), -1)
	pipe.Expire(ctx, key, TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append log job %s: %w", jobID, err)
	}
	return nil
}

func (g *RedisGateway) Log(ctx context.Context, jobID string) ([]Event, error) {
	entries, err := g.cli.LRange(ctx, logKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read log job %s: %w", jobID, err)
	}
	out := make([]Event, 0, len(entries))
	for _, raw := range entries {
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("read log job %s: unmarshal event: %w", jobID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (g *RedisGateway) SetDecision(ctx context.Context, jobID string, d Decision) error {
	if err := g.cli.Set(ctx, decisionKey(jobID), string(d), TTL).Err(); err != nil {
		return fmt.Errorf("set decision job %s: %w", jobID, err)
	}
	return nil
}

func (g *RedisGateway) TakeDecision(ctx context.Context, jobID string) (Decision, bool, error) {
	val, err := g.cli.GetDel(ctx, decisionKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("take decision job %s: %w", jobID, err)
	}
	return Decision(val), true, nil
}
