package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-engine/internal/config"
)

func TestSetup_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	prevOut, prevLevel := logrus.StandardLogger().Out, logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
	})

	logger, closer, err := Setup(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.WithField("component", "test").Debug("hello from setup")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from setup")
	assert.Contains(t, string(data), "component=test")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestSetup_BadLevel(t *testing.T) {
	_, _, err := Setup(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
