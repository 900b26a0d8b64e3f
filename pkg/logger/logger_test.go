package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "entry=%s", buf.String())
	return entry
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithCartID(ctx, "cart-1")
	log.Error(ctx, "boom", errors.New("payment declined"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "cart-1", entry["cart_id"])
	assert.Equal(t, "payment declined", entry["error"])
	assert.Equal(t, "test", entry["service"])
	assert.NotEmpty(t, entry["stack"])
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := log.WithField(context.Background(), "step", "address")
	_ = log.WithFields(parent, map[string]any{"shipping_method": "express"})
	log.Info(parent, "step entered")

	entry := decodeLine(t, buf)
	assert.Equal(t, "address", entry["step"])
	assert.NotContains(t, entry, "shipping_method")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{Output: buf}).Warn(context.Background(), "slow")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestLevelFiltersEntries(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: ParseLevel("warn"), Output: buf})
	log.Debug(context.Background(), "payment.task.join")
	log.Info(context.Background(), "request.start")
	assert.Zero(t, buf.Len())
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Format: " Console ", Output: buf}).Info(context.Background(), "hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" DEBUG ": zerolog.DebugLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}
