package main

import (
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/config"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
