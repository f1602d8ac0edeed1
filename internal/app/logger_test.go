package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/config"
)

func TestInitLogger_FileSink(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	cfg := *config.DefaultAppConfig
	cfg.Logger.FileEnable = true
	cfg.Logger.Filename = filepath.Join(t.TempDir(), "toughcrm.log")
	cfg.Logger.MaxSizeMB = 1

	logger, err := InitLogger(&cfg)
	require.NoError(t, err)
	zap.L().Info("written to file", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.Logger.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestRotatingFile_UsesConfig(t *testing.T) {
	lj := rotatingFile(config.LogConfig{Filename: "x.log", MaxSizeMB: 5, MaxBackups: 2, MaxAgeDays: 3, Compress: true})
	assert.Equal(t, "x.log", lj.Filename)
	assert.Equal(t, 5, lj.MaxSize)
	assert.Equal(t, 2, lj.MaxBackups)
	assert.Equal(t, 3, lj.MaxAge)
	assert.True(t, lj.Compress)
}

func TestInitLogger_DebugLevel(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	cfg := *config.DefaultAppConfig
	cfg.Logger.Mode = "production"
	logger, err := InitLogger(&cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	cfg.System.Debug = true
	logger, err = InitLogger(&cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
