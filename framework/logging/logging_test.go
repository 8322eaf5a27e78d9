package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-controllers/framework/config"
	"github.com/km-arc/go-controllers/framework/logging"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		env       string
		debugOn   bool
		wantLevel zapcore.Level
	}{
		{"development defaults to debug", config.LogConfig{}, "local", true, zapcore.DebugLevel},
		{"production defaults to info", config.LogConfig{}, "production", false, zapcore.InfoLevel},
		{"explicit level wins", config.LogConfig{Level: "warn", Format: "json"}, "local", false, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logging.New(tt.cfg, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.debugOn, log.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, log.Core().Enabled(tt.wantLevel))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logging.New(config.LogConfig{Level: "loud"}, "local")
	assert.ErrorContains(t, err, "log level")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := logging.New(config.LogConfig{Format: "xml"}, "local")
	assert.ErrorContains(t, err, "building logger")
}
