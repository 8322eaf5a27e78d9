package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-controllers/app"
	framework "github.com/km-arc/go-controllers/framework/app"
	"github.com/km-arc/go-controllers/framework/container"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := framework.New() // loads .env automatically
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	for _, provider := range []container.ServiceProvider{
		&app.GeoServiceProvider{Delay: 2 * time.Second},
		&app.ServiceProvider{},
	} {
		if err := application.Register(provider); err != nil {
			application.Logger().Fatal("register application", zap.Error(err))
		}
	}

	if err := application.Run(ctx); err != nil {
		application.Logger().Fatal("server stopped", zap.Error(err))
	}
}
