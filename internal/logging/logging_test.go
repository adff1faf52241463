// ABOUTME: Tests for logger setup and the colour console handler
// ABOUTME: Covers level filtering, attribute rendering, JSON output and the rotated file copy

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lnledger/internal/config"
)

func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := slog.New(NewColorHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("component", "migrate").WithGroup("step").Info("applied", "from", 1, "to", 2)
	logger.Error("failed", "table", "incoming_payments")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INF applied component=migrate step.from=1 step.to=2")
	assert.Contains(t, lines[1], "ERR failed table=incoming_payments")
}

func TestSetup_JSON(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	logger, closeFn := Setup(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	defer closeFn()

	logger.Debug("export page", "rows", 3)
	assert.Same(t, logger, slog.Default())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "export page", rec["msg"])
	assert.Equal(t, float64(3), rec["rows"])
}

func TestSetup_FileCopy(t *testing.T) {
	restoreDefault(t)
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "ledger.log")
	var console bytes.Buffer
	logger, closeFn := Setup(config.LoggingConfig{
		Level:      "info",
		Format:     "text",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, &console)

	logger.With("component", "store").Info("opened", "path", "payments.db")
	logger.Debug("not written")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "INF opened component=store path=payments.db")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "opened", rec["msg"])
	assert.Equal(t, "store", rec["component"])
}
