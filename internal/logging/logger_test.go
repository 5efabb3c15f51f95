package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
	assert.Equal(t, "WARN", WARN.String())
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("")

	logger, err := NewLogger("worldgen-test")
	require.NoError(t, err)

	logger.SetLevels(ERROR, DEBUG)
	logger.Debug("генерация %d%%", 50)
	logger.Trace("не должно попасть в файл")
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "worldgen-test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "[DEBUG] [worldgen-test] генерация 50%"))
	assert.False(t, strings.Contains(content, "не должно попасть"))
}

func TestLoggerWithoutDirIsConsoleOnly(t *testing.T) {
	SetLogDir("")
	logger, err := NewLogger("console")
	require.NoError(t, err)
	assert.Nil(t, logger.file)
	assert.NoError(t, logger.Close())
}

func TestLoggerManager(t *testing.T) {
	lm := newLoggerManager()

	a, err := lm.GetLogger(ComponentStorage)
	require.NoError(t, err)
	b, err := lm.GetLogger(ComponentStorage)
	require.NoError(t, err)
	assert.Same(t, a, b, "Повторный запрос должен вернуть тот же логгер")

	_ = lm.MustGetLogger(ComponentAPI)
	assert.Equal(t, []string{ComponentAPI, ComponentStorage}, lm.ListComponents())

	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestLoggerManager_ConsoleLevel(t *testing.T) {
	lm := newLoggerManager()

	before, err := lm.GetLogger(ComponentWorldGen)
	require.NoError(t, err)
	assert.Equal(t, INFO, before.minConsoleLevel)

	lm.SetConsoleLevel(DEBUG)
	assert.Equal(t, DEBUG, before.minConsoleLevel, "Уровень меняется у существующих логгеров")

	after, err := lm.GetLogger(ComponentAPI)
	require.NoError(t, err)
	assert.Equal(t, DEBUG, after.minConsoleLevel, "Новые логгеры получают текущий уровень")
}
