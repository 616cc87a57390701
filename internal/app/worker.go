package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopworks/e-shop/config"
	"github.com/shopworks/e-shop/internal/adapter/kafka"
	"github.com/shopworks/e-shop/internal/adapter/redisq"
	"github.com/shopworks/e-shop/internal/adapter/s3store"
	"github.com/shopworks/e-shop/internal/adapter/storage"
	"github.com/shopworks/e-shop/internal/core/service"
	"github.com/shopworks/e-shop/pkg/imgproc"
	"github.com/shopworks/e-shop/pkg/retry"
	"github.com/shopworks/e-shop/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

// WorkerApp is the image processing process: it consumes jobs from
// the queue and runs them one at a time.
type WorkerApp struct {
	ctx      context.Context
	cfg      config.Config
	sqldb    storage.SQLDB
	redisCl  *redis.Client
	events   kafka.ImageEventsProducer
	consumer *redisq.Consumer
}

func NewWorker(ctx context.Context, cfg config.Config) *WorkerApp {
	app := &WorkerApp{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initAdapters()

	return app
}

func (app *WorkerApp) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *WorkerApp) initAdapters() {
	const op = "WorkerApp.initAdapters"
	ctx := app.ctx

	connectRetry := retry.RetryConfig{
		MaxAttempts: connectAttempts,
		Backoff:     retry.ExponentialBackoff(500 * time.Millisecond),
	}

	sqldb, err := retry.DoWithResult(ctx, connectRetry,
		func() (storage.SQLDB, error) {
			return storage.NewSQLDB(ctx, app.cfg.SQLDB)
		})
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqldb = sqldb

	redisCl, err := retry.DoWithResult(ctx, connectRetry,
		func() (*redis.Client, error) {
			return redisq.NewClient(
				ctx,
				app.cfg.JobQueue.Addr,
				app.cfg.JobQueue.Password,
				app.cfg.JobQueue.DB,
			)
		})
	if err != nil {
		app.fallDown(op, err)
	}
	app.redisCl = redisCl

	objects, err := s3store.New(ctx, s3store.Config{
		Endpoint:        app.cfg.ObjectStore.Endpoint,
		Region:          app.cfg.ObjectStore.Region,
		Bucket:          app.cfg.ObjectStore.Bucket,
		AccessKeyID:     app.cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: app.cfg.ObjectStore.SecretAccessKey,
		UsePathStyle:    app.cfg.ObjectStore.UsePathStyle,
	})
	if err != nil {
		app.fallDown(op, err)
	}

	app.events = app.makeEventsProducer()

	imageService := service.NewImageService(
		objects,
		imgproc.NewThumbnailer(),
		storage.NewProductImagesRepository(sqldb.DB),
		app.events,
	)

	queueCfg := queueConfig(app.cfg)
	queueCfg.Consumer = consumerName()
	app.consumer = redisq.NewConsumer(redisCl, queueCfg, imageService)
}

func (app *WorkerApp) makeEventsProducer() kafka.ImageEventsProducer {
	const op = "WorkerApp.makeEventsProducer"
	ctx := app.ctx

	srClient, err := sr.NewClient(
		sr.URLs(app.cfg.Broker.SchemaRegistryURLs...),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	subject := app.cfg.Broker.ImageEventsTopic + "-value"
	serde, err := schema.NewSerdeImageProcessedEventV1(
		ctx,
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schema.NewSchemaCreater(srClient)),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	producer, err := kafka.NewImageEventsProducer(
		kafka.ProducerClientOpt(
			ctx,
			app.cfg.Broker.SeedBrokers,
			app.cfg.Broker.ImageEventsTopic,
		),
		kafka.ProducerEncoderOpt(serde),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	return producer
}

func (app *WorkerApp) Run(stopFn context.CancelFunc) {
	go func() {
		defer stopFn()
		if err := app.consumer.Run(app.ctx); err != nil {
			slog.Error("consumer stopped", "err", err)
		}
	}()

	slog.Info("worker is running")
}

func (app *WorkerApp) Close(ctx context.Context) {
	slog.Info("worker is closing...")

	app.events.Close()
	if err := app.redisCl.Close(); err != nil {
		slog.Error("failed to close redis client", "err", err)
	}
	app.sqldb.Close()

	slog.Info("worker is closed")
}

func (app *WorkerApp) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

// consumerName is unique per worker instance so the stream's consumer
// group can track each instance's pending entries separately.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return host + "-" + uuid.NewString()[:8]
}
