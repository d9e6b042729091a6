package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/app"
)

func closeApp(ctx context.Context, a *app.App, logger *zap.Logger) {
	if err := a.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
