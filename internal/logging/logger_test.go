// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestFromConfig_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := FromConfig("debug", "json", &buf)
	require.NoError(t, err)

	l.WithRoot("/lib").LogRescan(context.Background(), 12, 0, time.Second, nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "rescan completed", line["msg"])
	assert.Equal(t, "/lib", line["root"])
	assert.EqualValues(t, 12, line["elements"])
}

func TestFromConfig_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := FromConfig("error", "text", &buf)
	require.NoError(t, err)

	l.LogScanWarning(context.Background(), "x.sym", errors.New("boom"))
	assert.Empty(t, buf.String())

	l.LogRescan(context.Background(), 0, 0, 0, errors.New("boom"))
	assert.Contains(t, buf.String(), "rescan failed")

	_, err = FromConfig("info", "xml", &buf)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	l := Noop()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
