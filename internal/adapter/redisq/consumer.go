package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopworks/e-shop/internal/core/domain"
)

// ConsumerClient is the slice of the redis client the consumer uses.
type ConsumerClient interface {
	XGroupCreateMkStream(
		ctx context.Context, stream, group, start string,
	) *redis.StatusCmd
	XReadGroup(
		ctx context.Context, a *redis.XReadGroupArgs,
	) *redis.XStreamSliceCmd
	XAutoClaim(
		ctx context.Context, a *redis.XAutoClaimArgs,
	) *redis.XAutoClaimCmd
	XAck(
		ctx context.Context, stream, group string, ids ...string,
	) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// JobProcessor executes one job attempt and reports terminal
// outcomes. Implemented by the core image service.
type JobProcessor interface {
	ProcessJob(
		ctx context.Context, jobID string, job domain.ImageProcessingJob,
	) (thumbnailPath string, err error)
	ReportOutcome(context.Context, domain.ImageProcessedEvent)
}

// Consumer delivers stream entries to the processor one at a time.
// A failed attempt below the limit is re-added with an incremented
// attempt counter after exponential backoff; an exhausted one is
// acknowledged and left to the failure log and lifecycle event.
type Consumer struct {
	opPrefix  string
	cl        ConsumerClient
	cfg       Config
	processor JobProcessor
}

func NewConsumer(cl ConsumerClient, cfg Config, p JobProcessor) *Consumer {
	return &Consumer{
		opPrefix:  "Consumer",
		cl:        cl,
		cfg:       cfg,
		processor: p,
	}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	const op = "Run"
	log := slog.With("op", c.op(op))

	if err := c.ensureGroup(ctx); err != nil {
		return c.opErr(err, op)
	}

	c.autoClaim(ctx)

	log.Info("consuming jobs",
		"stream", c.cfg.Stream, "group", c.cfg.Group,
		"consumer", c.cfg.Consumer,
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consume(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
			}
		}
	}
}

// ensureGroup creates the consumer group, tolerating a concurrently
// created one. MkStream lets the group exist before any entry does.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	const op = "ensureGroup"

	err := c.cl.XGroupCreateMkStream(
		ctx, c.cfg.Stream, c.cfg.Group, "0",
	).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return c.opErr(err, op)
	}
	return nil
}

// autoClaim adopts entries that stayed pending for other consumers
// of the group, e.g. after a worker died between delivery and XACK.
// Adopted entries are redelivered to this consumer by XAUTOCLAIM
// itself, so they are handled right here.
func (c *Consumer) autoClaim(ctx context.Context) {
	const op = "autoClaim"
	log := slog.With("op", c.op(op))

	minIdle := 30 * time.Second
	if t := c.cfg.BlockTimeout * 6; t > minIdle {
		minIdle = t
	}

	next := "0-0"
	for {
		msgs, start, err := c.cl.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}

		log.Info("adopted pending entries", "count", len(msgs))
		for _, m := range msgs {
			c.handle(ctx, m)
		}
		next = start
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	const op = "consume"

	streams, err := c.cl.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    1,
		Block:    c.cfg.BlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return c.opErr(err, op)
	}

	for _, s := range streams {
		for _, m := range s.Messages {
			c.handle(ctx, m)
		}
	}
	return nil
}

// handle runs one delivery to completion. The entry is acknowledged
// in every branch: retries travel as fresh entries with a bumped
// attempt counter, never as redeliveries of the same entry.
func (c *Consumer) handle(ctx context.Context, m redis.XMessage) {
	const op = "handle"
	log := slog.With("op", c.op(op), "jobID", m.ID)

	defer func() {
		err := c.cl.XAck(ctx, c.cfg.Stream, c.cfg.Group, m.ID).Err()
		if err != nil {
			log.Error("failed to ack entry", "err", err)
		}
	}()

	raw, job, err := c.decode(m)
	if err != nil {
		log.Error("dropping malformed entry", "err", err)
		return
	}
	attempt := parseAttempt(m.Values[fieldAttempt])

	thumbnailPath, err := c.processor.ProcessJob(ctx, m.ID, job)
	if err == nil {
		c.processor.ReportOutcome(ctx, domain.ImageProcessedEvent{
			JobID:         m.ID,
			ProductID:     job.ProductID,
			Bucket:        job.Bucket,
			ObjectPath:    job.ObjectPath,
			ThumbnailPath: thumbnailPath,
			Status:        domain.ImageEventCompleted,
			Attempts:      attempt + 1,
		})
		return
	}

	if attempt+1 >= c.cfg.MaxAttempts {
		log.Error("job failed, attempts exhausted",
			"attempts", attempt+1, "err", err)
		c.processor.ReportOutcome(ctx, domain.ImageProcessedEvent{
			JobID:      m.ID,
			ProductID:  job.ProductID,
			Bucket:     job.Bucket,
			ObjectPath: job.ObjectPath,
			Status:     domain.ImageEventFailed,
			Error:      err.Error(),
			Attempts:   attempt + 1,
		})
		return
	}

	backoff := c.backoff(attempt)
	log.Warn("job failed, requeueing",
		"attempt", attempt+1, "backoff", backoff, "err", err)
	c.requeueAfter(backoff, raw, attempt+1)
}

// backoff grows exponentially from the configured base delay.
func (c *Consumer) backoff(attempt int) time.Duration {
	return c.cfg.BackoffBase << attempt
}

// requeueAfter re-adds the payload once the backoff elapsed. The
// timer deliberately outlives the handling context: a shutdown during
// the wait loses only the in-memory retry, and the queue's pending
// entry autoclaim path covers crashes anyway.
func (c *Consumer) requeueAfter(d time.Duration, raw string, attempt int) {
	const op = "requeueAfter"

	time.AfterFunc(d, func() {
		err := c.cl.XAdd(context.Background(), &redis.XAddArgs{
			Stream: c.cfg.Stream,
			MaxLen: c.cfg.MaxLen,
			Approx: true,
			Values: map[string]any{
				fieldPayload: raw,
				fieldAttempt: attempt,
			},
		}).Err()
		if err != nil {
			slog.Error("failed to requeue job",
				"op", c.op(op), "attempt", attempt, "err", err)
		}
	})
}

func (c *Consumer) decode(
	m redis.XMessage,
) (raw string, job domain.ImageProcessingJob, err error) {
	raw, ok := m.Values[fieldPayload].(string)
	if !ok {
		return "", job, errors.New("entry has no payload field")
	}

	var p jobPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return "", job, err
	}

	job = domain.ImageProcessingJob{
		Bucket:     p.Bucket,
		ObjectPath: p.ObjectPath,
		ProductID:  p.ProductID,
	}
	return raw, job, nil
}

func (c *Consumer) op(op string) string {
	return c.opPrefix + "." + op
}

func (c *Consumer) opErr(err error, op string) error {
	return fmt.Errorf("%s: %w", c.op(op), err)
}
