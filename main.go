// main.go

package main

import (
	"github.com/fernwave/mobiprev/cmd"
	"github.com/fernwave/mobiprev/pkg/logger"
	"github.com/fernwave/mobiprev/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	logger.InitializeWithFallback()

	if err := telemetry.Init("mobiprev"); err != nil {
		logger.L().Warn("Telemetry disabled", zap.Error(err))
	}

	cmd.Execute()
}
