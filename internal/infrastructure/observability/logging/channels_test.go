package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelAttributeIsAttached(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewChanneledLogger(&LoggerConfig{Writer: &buf, JSONFormat: true, DefaultLevel: slog.LevelInfo})
	require.NoError(t, err)

	logger.USSD().Info("request handled", "menu", "main")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ussd", line["channel"])
	assert.Equal(t, "main", line["menu"])
}

func TestSetChannelLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewChanneledLogger(&LoggerConfig{Writer: &buf, JSONFormat: true, DefaultLevel: slog.LevelInfo})
	require.NoError(t, err)

	logger.Session().Debug("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetChannelLevel(ChannelSession, slog.LevelDebug))
	logger.Session().Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Equal(t, "DEBUG", logger.GetChannelLevels()["session"])

	assert.Error(t, logger.SetChannelLevel(Channel("nope"), slog.LevelDebug))
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "256*******22", MaskPhone("256700111222"))
	assert.Equal(t, "******", MaskPhone("123"))
	assert.Equal(t, "ATUi****wxyz", MaskSessionID("ATUid_abcd_wxyz"))
	assert.Equal(t, "********", MaskSessionID("short"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
