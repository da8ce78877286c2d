package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanichkin/pngview/internal/oops"
)

func TestPrettyWriterSingleLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(NewPrettyWriter(&buf))
	logger.Info().Msg("hello")
	assert.Equal(t, "INFO: hello\n", buf.String())
}

func TestPrettyWriterFieldsAndStack(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.DebugLevel)
	err := oops.New(errors.New("boom"), "decoding %s", "x.png")
	logger.Error().Stack().Err(err).Int("chunks", 3).Msg("failed")

	out := buf.String()
	assert.Contains(t, out, "ERROR: failed")
	assert.Contains(t, out, "ERROR: decoding x.png: boom")
	assert.Contains(t, out, "chunks: 3")
	assert.Contains(t, out, "Stack trace:")
	assert.Contains(t, out, "TestPrettyWriterFieldsAndStack")
	assert.NotContains(t, out, "\x1b[")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel)
	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "WARN: shown")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}
