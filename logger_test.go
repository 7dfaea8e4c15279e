package fsmgen

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-logger/glog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLoggerWritesLevelMessageAndSortedFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, "info").WithFields(map[string]any{"node": "Idle", "edge": 2})

	logger.Info("connected %s", "orphan")

	assert.Equal(t, "INFO connected orphan edge=2 node=Idle\n", buf.String())
}

func TestTextLoggerDropsEntriesBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, "warn")

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.WithContext(context.Background()).Error("also %s", "shown")

	assert.Equal(t, "WARN shown\nERROR also shown\n", buf.String())
}

func TestTextLoggerFieldsDoNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewTextLogger(buf, "trace")
	child := WithLoggerFields(base, map[string]any{"graph": "customer"})

	child.Trace("child")
	base.Trace("parent")

	assert.Equal(t, "TRACE child graph=customer\nTRACE parent\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeParseFailed))
}

func TestNewGlogLoggerHonorsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewGlogLogger(buf, "warn")

	logger.Info("quiet")
	logger.Warn("loud %s=%d", "edges", 7)

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud edges=7")
}

func TestGlogLoggerAdapterEmitsStructuredOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	base := glog.NewLogger(
		glog.WithWriter(buf),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel("trace"),
	)

	logger := WithLoggerFields(WrapGlog(base), map[string]any{"graph": "customer"})
	logger.Info("repair finished")

	out := buf.String()
	require.NotEmpty(t, strings.TrimSpace(out))
	assert.Contains(t, out, "repair finished")
	assert.Contains(t, out, "graph")
}

func TestNormalizeLoggerFallsBackToNop(t *testing.T) {
	logger := NormalizeLogger(nil)
	_, ok := logger.(NopLogger)
	assert.True(t, ok)

	// fields on a nop logger are accepted and ignored
	assert.NotPanics(t, func() {
		WithLoggerFields(nil, map[string]any{"a": 1}).Info("x")
	})
}
