package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backkem/clusterhost/pkg/matter"
	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.LogLevel
		wantErr bool
	}{
		{"debug", logging.LogLevelDebug, false},
		{"INFO", logging.LogLevelInfo, false},
		{"", logging.LogLevelInfo, false},
		{"warning", logging.LogLevelWarn, false},
		{"off", logging.LogLevelDisabled, false},
		{"loud", logging.LogLevelDisabled, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("0x0006", 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), v)

	v, err = parseNumber("29", 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(29), v)

	_, err = parseNumber("70000", 16)
	assert.Error(t, err)
}

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	opts := hostOptions{
		configPath: filepath.Join("testdata", "light.yaml"),
		statePath:  filepath.Join(t.TempDir(), "state.cbor"),
		logLevel:   logging.LogLevelDisabled,
	}
	node, _, err := opts.newNode(io.Discard, nil)
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Stop() })

	var out bytes.Buffer
	return &shell{node: node, out: &out}, &out
}

func exec(t *testing.T, s *shell, line string) error {
	t.Helper()
	fields := strings.Fields(line)
	return s.exec(context.Background(), fields[0], fields[1:])
}

func TestShell_ReadAndToggle(t *testing.T) {
	s, out := newTestShell(t)

	// StartUpOnOff is On in the device file.
	require.NoError(t, exec(t, s, "read 1 0x0006 0"))
	assert.Contains(t, out.String(), "true")

	out.Reset()
	require.NoError(t, exec(t, s, "toggle 1"))
	require.NoError(t, exec(t, s, "read 1 6 0"))
	assert.Contains(t, out.String(), "false")
}

func TestNewNode_LogsOnOffChanges(t *testing.T) {
	opts := hostOptions{
		configPath: filepath.Join("testdata", "light.yaml"),
		logLevel:   logging.LogLevelInfo,
	}
	var logs bytes.Buffer
	node, _, err := opts.newNode(&logs, nil)
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Stop() })

	require.NoError(t, node.Toggle(1))
	assert.Contains(t, logs.String(), "endpoint 1 on/off changed: false")
}

func TestShell_AddRemove(t *testing.T) {
	s, out := newTestShell(t)

	require.NoError(t, exec(t, s, "add 0x001D,0x0006 0x0100"))
	assert.Contains(t, out.String(), "added endpoint 2")

	out.Reset()
	require.NoError(t, exec(t, s, "lookup 2 0x0006"))
	assert.Contains(t, out.String(), "onoff.Cluster")

	require.NoError(t, exec(t, s, "remove 2"))
	assert.Error(t, exec(t, s, "lookup 2 0x0006"))

	assert.ErrorIs(t, exec(t, s, "remove 1"), matter.ErrEndpointNotDestroyable)
}

func TestShell_InitShutdown(t *testing.T) {
	s, out := newTestShell(t)

	require.NoError(t, exec(t, s, "shutdown 1"))
	require.NoError(t, exec(t, s, "list"))
	assert.Regexp(t, `(?m)^1\s+false`, out.String())

	out.Reset()
	require.NoError(t, exec(t, s, "init 1"))
	require.NoError(t, exec(t, s, "list"))
	assert.Regexp(t, `(?m)^1\s+true`, out.String())
}

func TestShell_Errors(t *testing.T) {
	s, _ := newTestShell(t)

	assert.Error(t, exec(t, s, "bogus"))
	assert.Error(t, exec(t, s, "read 1"))
	assert.Error(t, exec(t, s, "toggle zero"))
	assert.Error(t, exec(t, s, "toggle 0"))
}
