package redisq_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopworks/e-shop/internal/adapter/redisq"
	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeQueueClient scripts the stream slice of the redis client: each
// XReadGroup call pops the next prepared batch; once the script is
// exhausted the run context is canceled so Run returns.
type fakeQueueClient struct {
	mu sync.Mutex

	groupErr error
	claimed  []redis.XMessage
	reads    [][]redis.XMessage
	stop     context.CancelFunc

	acked []string
	added []*redis.XAddArgs
}

func (f *fakeQueueClient) XGroupCreateMkStream(
	ctx context.Context, stream, group, start string,
) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.groupErr != nil {
		cmd.SetErr(f.groupErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeQueueClient) XAutoClaim(
	ctx context.Context, a *redis.XAutoClaimArgs,
) *redis.XAutoClaimCmd {
	f.mu.Lock()
	msgs := f.claimed
	f.claimed = nil
	f.mu.Unlock()

	cmd := redis.NewXAutoClaimCmd(ctx)
	cmd.SetVal(msgs, "0-0")
	return cmd
}

func (f *fakeQueueClient) XReadGroup(
	ctx context.Context, a *redis.XReadGroupArgs,
) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := redis.NewXStreamSliceCmd(ctx)
	if len(f.reads) == 0 {
		f.stop()
		cmd.SetErr(redis.Nil)
		return cmd
	}

	batch := f.reads[0]
	f.reads = f.reads[1:]
	cmd.SetVal([]redis.XStream{{Stream: a.Streams[0], Messages: batch}})
	return cmd
}

func (f *fakeQueueClient) XAck(
	ctx context.Context, stream, group string, ids ...string,
) *redis.IntCmd {
	f.mu.Lock()
	f.acked = append(f.acked, ids...)
	f.mu.Unlock()

	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(ids)))
	return cmd
}

func (f *fakeQueueClient) XAdd(
	ctx context.Context, a *redis.XAddArgs,
) *redis.StringCmd {
	f.mu.Lock()
	f.added = append(f.added, a)
	f.mu.Unlock()

	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("requeued-1")
	return cmd
}

func (f *fakeQueueClient) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

func (f *fakeQueueClient) addedArgs() []*redis.XAddArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*redis.XAddArgs(nil), f.added...)
}

type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJob(
	ctx context.Context, jobID string, job domain.ImageProcessingJob,
) (string, error) {
	args := m.Called(ctx, jobID, job)
	return args.String(0), args.Error(1)
}

func (m *MockJobProcessor) ReportOutcome(
	ctx context.Context, e domain.ImageProcessedEvent,
) {
	m.Called(ctx, e)
}

func consumerConfig() redisq.Config {
	return redisq.Config{
		Stream:       "image-processing",
		Group:        "image-workers",
		Consumer:     "test-worker",
		MaxLen:       10000,
		MaxAttempts:  3,
		BackoffBase:  time.Millisecond,
		BlockTimeout: time.Millisecond,
	}
}

func entry(id, objectPath string, attempt string) redis.XMessage {
	payload := `{"bucket":"shop-images","objectPath":"` + objectPath +
		`","productId":"P1"}`
	return redis.XMessage{
		ID: id,
		Values: map[string]any{
			"payload": payload,
			"attempt": attempt,
		},
	}
}

func runConsumer(
	t *testing.T, cl *fakeQueueClient, p *MockJobProcessor,
) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	cl.stop = cancel

	c := redisq.NewConsumer(cl, consumerConfig(), p)
	require.NoError(t, c.Run(ctx))
}

func TestConsumerRun(t *testing.T) {
	job := domain.ImageProcessingJob{
		Bucket:     "shop-images",
		ObjectPath: "originals/P1/a.png",
		ProductID:  "P1",
	}

	t.Run("SuccessAcksAndReports", func(t *testing.T) {
		cl := &fakeQueueClient{
			reads: [][]redis.XMessage{
				{entry("1-0", "originals/P1/a.png", "0")},
			},
		}
		p := new(MockJobProcessor)

		p.On("ProcessJob", mock.Anything, "1-0", job).Return(
			"thumbnails/P1/a.webp", nil,
		)
		p.On("ReportOutcome", mock.Anything, domain.ImageProcessedEvent{
			JobID:         "1-0",
			ProductID:     "P1",
			Bucket:        "shop-images",
			ObjectPath:    "originals/P1/a.png",
			ThumbnailPath: "thumbnails/P1/a.webp",
			Status:        domain.ImageEventCompleted,
			Attempts:      1,
		}).Return()

		runConsumer(t, cl, p)

		assert.Equal(t, []string{"1-0"}, cl.ackedIDs())
		assert.Empty(t, cl.addedArgs())
		p.AssertExpectations(t)
	})

	t.Run("FailureBelowLimitRequeues", func(t *testing.T) {
		cl := &fakeQueueClient{
			reads: [][]redis.XMessage{
				{entry("1-0", "originals/P1/a.png", "0")},
			},
		}
		p := new(MockJobProcessor)

		p.On("ProcessJob", mock.Anything, "1-0", job).Return(
			"", errors.New("download failed"),
		)

		runConsumer(t, cl, p)

		assert.Equal(t, []string{"1-0"}, cl.ackedIDs())

		require.Eventually(t, func() bool {
			return len(cl.addedArgs()) == 1
		}, time.Second, 5*time.Millisecond)

		values := cl.addedArgs()[0].Values.(map[string]any)
		assert.Equal(t, 1, values["attempt"])
		p.AssertNotCalled(t, "ReportOutcome", mock.Anything, mock.Anything)
	})

	t.Run("ExhaustedAttemptsReportFailure", func(t *testing.T) {
		cl := &fakeQueueClient{
			reads: [][]redis.XMessage{
				{entry("9-0", "originals/P1/a.png", "2")},
			},
		}
		p := new(MockJobProcessor)

		p.On("ProcessJob", mock.Anything, "9-0", job).Return(
			"", errors.New("download failed"),
		)
		p.On("ReportOutcome", mock.Anything, domain.ImageProcessedEvent{
			JobID:      "9-0",
			ProductID:  "P1",
			Bucket:     "shop-images",
			ObjectPath: "originals/P1/a.png",
			Status:     domain.ImageEventFailed,
			Error:      "download failed",
			Attempts:   3,
		}).Return()

		runConsumer(t, cl, p)

		assert.Equal(t, []string{"9-0"}, cl.ackedIDs())
		assert.Empty(t, cl.addedArgs())
		p.AssertExpectations(t)
	})

	t.Run("MalformedEntryDropped", func(t *testing.T) {
		cl := &fakeQueueClient{
			reads: [][]redis.XMessage{
				{{ID: "5-0", Values: map[string]any{"attempt": "0"}}},
			},
		}
		p := new(MockJobProcessor)

		runConsumer(t, cl, p)

		assert.Equal(t, []string{"5-0"}, cl.ackedIDs())
		p.AssertNotCalled(
			t, "ProcessJob", mock.Anything, mock.Anything, mock.Anything,
		)
	})

	t.Run("ExistingGroupTolerated", func(t *testing.T) {
		cl := &fakeQueueClient{
			groupErr: errors.New(
				"BUSYGROUP Consumer Group name already exists",
			),
		}
		p := new(MockJobProcessor)

		runConsumer(t, cl, p)
	})

	t.Run("AdoptedPendingEntryHandled", func(t *testing.T) {
		cl := &fakeQueueClient{
			claimed: []redis.XMessage{
				entry("3-0", "originals/P1/a.png", "1"),
			},
		}
		p := new(MockJobProcessor)

		p.On("ProcessJob", mock.Anything, "3-0", job).Return(
			"thumbnails/P1/a.webp", nil,
		)
		p.On("ReportOutcome", mock.Anything, mock.Anything).Return()

		runConsumer(t, cl, p)

		assert.Equal(t, []string{"3-0"}, cl.ackedIDs())
		p.AssertExpectations(t)
	})
}
