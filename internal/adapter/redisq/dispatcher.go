package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
)

var _ port.ImageJobDispatcher = (*JobDispatcher)(nil)

// DispatcherClient is the slice of the redis client the dispatcher
// uses.
type DispatcherClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// jobPayload is the queue wire format of one image processing job.
type jobPayload struct {
	Bucket     string `json:"bucket"`
	ObjectPath string `json:"objectPath"`
	ProductID  string `json:"productId"`
}

// JobDispatcher appends image processing jobs to the stream. The
// retry policy (attempt limit, backoff) is fixed queue configuration,
// not a per-call option; the dispatcher only stamps attempt zero.
type JobDispatcher struct {
	cl     DispatcherClient
	stream string
	maxLen int64
}

func NewJobDispatcher(cl DispatcherClient, cfg Config) JobDispatcher {
	return JobDispatcher{cl: cl, stream: cfg.Stream, maxLen: cfg.MaxLen}
}

func (d JobDispatcher) Dispatch(
	ctx context.Context, job domain.ImageProcessingJob,
) (domain.JobHandle, error) {
	const op = "JobDispatcher.Dispatch"

	if err := ctx.Err(); err != nil {
		return domain.JobHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(jobPayload{
		Bucket:     job.Bucket,
		ObjectPath: job.ObjectPath,
		ProductID:  job.ProductID,
	})
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := d.cl.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		MaxLen: d.maxLen,
		Approx: true,
		Values: map[string]any{
			fieldPayload: string(raw),
			fieldAttempt: 0,
		},
	}).Result()
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Debug("job appended to stream",
		"op", op, "stream", d.stream, "jobID", id)
	return domain.JobHandle{ID: id}, nil
}
