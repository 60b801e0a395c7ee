package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citypd/platform/internal/shared/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zap.AtomicLevel
	}{
		{"", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"DEBUG", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warning", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"error", zap.NewAtomicLevelAt(zap.ErrorLevel)},
	}
	for _, tt := range tests {
		level, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want.Level(), level, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	logger, err := New(config.ServerConfig{Env: "production"}, config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	_, err = New(config.ServerConfig{Env: "development"}, config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
