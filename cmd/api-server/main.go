package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/harvestcart/harvestcart/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			lg.Error("Invalid configuration", zap.Error(err))
			return err
		}
		return appkg.Run(ctx, lg, m, cfg)
	})
}
