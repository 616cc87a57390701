package main

import (
	"context"
	"time"

	"github.com/shopworks/e-shop/config"
	"github.com/shopworks/e-shop/internal/app"
	"github.com/shopworks/e-shop/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	worker := app.NewWorker(sigCtx, cfg)

	worker.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	worker.Close(ctx)
}
