package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopworks/e-shop/config"
	"github.com/shopworks/e-shop/internal/adapter/httphandler"
	"github.com/shopworks/e-shop/internal/adapter/redisq"
	"github.com/shopworks/e-shop/internal/adapter/s3store"
	"github.com/shopworks/e-shop/internal/adapter/storage"
	"github.com/shopworks/e-shop/internal/core/service"
	"github.com/shopworks/e-shop/pkg/retry"
)

const connectAttempts = 5

// App is the API process: webhook receiver, signed-URL endpoints and
// the job dispatcher.
type App struct {
	ctx        context.Context
	cfg        config.Config
	sqldb      storage.SQLDB
	redisCl    *redis.Client
	service    service.Service
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initOutboundAdapters()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"
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

	dispatcher := redisq.NewJobDispatcher(redisCl, queueConfig(app.cfg))
	products := storage.NewProductImagesRepository(sqldb.DB)

	app.service = service.New(
		dispatcher, objects, products, app.cfg.ObjectStore.SignedURLTTL,
	)
}

func (app *App) initInboundAdapters() {
	mux := http.NewServeMux()
	httphandler.RegisterWebhooks(mux, app.service, app.cfg.Production())
	httphandler.RegisterUploads(mux, app.service)

	handler := httphandler.AllowJSON(mux)
	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, handler)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	if err := app.redisCl.Close(); err != nil {
		slog.Error("failed to close redis client", "err", err)
	}
	app.sqldb.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

func queueConfig(cfg config.Config) redisq.Config {
	return redisq.Config{
		Stream:       cfg.JobQueue.Stream,
		Group:        cfg.JobQueue.Group,
		MaxLen:       cfg.JobQueue.MaxLen,
		MaxAttempts:  cfg.JobQueue.MaxAttempts,
		BackoffBase:  cfg.JobQueue.BackoffBase,
		BlockTimeout: cfg.JobQueue.BlockTimeout,
	}
}
