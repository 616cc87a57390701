// Package redisq is the durable job queue adapter backed by Redis
// Streams. A consumer group gives at-least-once delivery with one
// active attempt per entry; unacknowledged entries from crashed
// consumers are adopted on startup via XAUTOCLAIM.
package redisq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream entry field names.
const (
	fieldPayload = "payload"
	fieldAttempt = "attempt"
)

type Config struct {
	Stream       string
	Group        string
	Consumer     string
	MaxLen       int64
	MaxAttempts  int
	BackoffBase  time.Duration
	BlockTimeout time.Duration
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "redisq.NewClient"

	cl := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := cl.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}
	return cl, nil
}

func parseAttempt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
