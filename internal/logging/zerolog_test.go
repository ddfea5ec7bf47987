package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZerolog_ForwardsToSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	zl := NewZerolog(logger, "influx")
	zl.Warn().Str("bucket", "siegelimit_decisions").Int("points", 3).Msg("backup writer active")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "backup writer active", entry["msg"])
	assert.Equal(t, "influx", entry["component"])
	assert.Equal(t, "siegelimit_decisions", entry["bucket"])
	assert.Equal(t, float64(3), entry["points"])
}

func TestNewZerolog_TraceMapsToDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	zl := NewZerolog(logger, "database")
	zl.Trace().Msg("filtered")
	zl.Debug().Msg("filtered too")

	assert.Empty(t, buf.String())
}
