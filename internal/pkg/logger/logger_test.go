package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToLogDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(LogOption{Format: "json", LogDir: dir, Level: "debug"}))
	Infof("[Test] hello %s", "world")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Test] hello world")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(LogOption{Level: "verbose"}))
}
