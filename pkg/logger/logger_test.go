package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paduck86/distillai/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, 0, buff.Len())

	templogger.Logger.Debug().Msg("hidden")
	templogger.Logger.Info().Str("node", "n1").Msg("Test")
	assert.NotContains(t, buff.String(), "hidden")
	assert.Contains(t, buff.String(), `"node":"n1"`)
	assert.Contains(t, buff.String(), `"message":"Test"`)
}

func TestLogLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithLevel("debug").Make()
	require.NoError(t, err)
	templogger.Logger.Debug().Msg("visible")
	assert.Contains(t, buff.String(), "visible")

	_, err = logger.New().WithLevel("loud").Make()
	require.Error(t, err)
}

func TestLogConsole(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Console(true).Make()
	require.NoError(t, err)
	templogger.Logger.Warn().Msg("plain")
	assert.Contains(t, buff.String(), "plain")
	assert.NotContains(t, buff.String(), `"message"`)
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distillai.log")
	templogger, err := logger.New().FromPath(path).Make()
	require.NoError(t, err)
	templogger.Logger.Info().Msg("to file")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
