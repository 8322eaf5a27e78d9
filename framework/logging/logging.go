// Package logging builds the application's zap logger from configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-controllers/framework/config"
)

// New creates the root logger. Production uses zap's JSON production preset,
// every other environment the development preset. cfg.Level and cfg.Format
// override the preset.
//
//	log, err := logging.New(cfg.Log, cfg.App.Env)
func New(cfg config.LogConfig, env string) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if env == "production" {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Format != "" {
		zc.Encoding = cfg.Format
	}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}
