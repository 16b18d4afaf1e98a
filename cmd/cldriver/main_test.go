package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metailurini/lazylist/driver"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"threads": 2, "maxItem": 50, "mix": "read-heavy"}`), 0o600))

	o, set, err := parseFlags([]string{"-config", path, "-threads", "6", "-strategy", "lock-free"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err := buildConfig(o, set)
	require.NoError(t, err)

	require.Equal(t, 6, cfg.Threads)
	require.Equal(t, driver.StrategyLockFree, cfg.Strategy)
	require.Equal(t, 50, cfg.MaxItem)
	require.Equal(t, driver.MixReadHeavy, cfg.Mix)
	require.Equal(t, 100, cfg.OpsPerThread)
}

func TestRunPrintsCSV(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-threads", "2", "-ops", "5", "-seed", "1"}, &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Equal(t, driver.CSVHeader, lines[0])
	require.Len(t, lines, 1+2*2*5)
	require.Contains(t, stderr.String(), "run finished")
}

func TestRunRejectsBadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.ErrorIs(t, run(context.Background(), []string{"-threads", "0"}, &stdout, &stderr), driver.ErrInvalidConfig)
	require.Error(t, run(context.Background(), []string{"-log-level", "loud"}, &stdout, &stderr))
	require.Error(t, run(context.Background(), []string{"-no-such-flag"}, &stdout, &stderr))
}
