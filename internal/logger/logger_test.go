package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)
	l.Info().Str("input", "resume.pdf").Msg("解析完成")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "resume.pdf", entry["input"])
	assert.Equal(t, "解析完成", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "WARN"}, &buf)
	l.Info().Msg("不应输出")
	assert.Empty(t, buf.String())

	l.Warn().Msg("应输出")
	assert.Contains(t, buf.String(), "应输出")
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("Debug"))
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	l := Ctx(context.Background())
	require.NotNil(t, l)

	var buf bytes.Buffer
	scoped := NewWithWriter(Config{Level: "info"}, &buf)
	ctx := scoped.WithContext(context.Background())
	Ctx(ctx).Info().Msg("来自上下文")
	assert.Contains(t, buf.String(), "来自上下文")
}
