package driver

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func discardEntry() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestRunWritesStartedAndFinishedRecords(t *testing.T) {
	for _, strategy := range []string{StrategyLockCoupling, StrategyLockFree} {
		t.Run(strategy, func(t *testing.T) {
			var buf bytes.Buffer
			records, err := NewRecordLogger(&buf, FormatCSV)
			require.NoError(t, err)

			cfg := DefaultConfig()
			cfg.Strategy = strategy
			cfg.Seed = 7
			report, err := Run(context.Background(), cfg, records, discardEntry())
			require.NoError(t, err)

			rows, err := csv.NewReader(&buf).ReadAll()
			require.NoError(t, err)
			require.Equal(t, []string{"Timestamp", "Thread", "Operation", "Status", "Item 1", "Item 2", "Result"}, rows[0])
			rows = rows[1:]
			require.Len(t, rows, 2*cfg.Threads*cfg.OpsPerThread)

			finished := 0
			for _, row := range rows {
				thread, err := strconv.Atoi(row[1])
				require.NoError(t, err)
				require.True(t, thread >= 1 && thread <= cfg.Threads)
				item, err := strconv.Atoi(row[4])
				require.NoError(t, err)
				require.True(t, item >= 1 && item <= cfg.MaxItem)
				if row[3] == StatusFinished {
					finished++
					require.Contains(t, []string{"true", "false"}, row[6])
				} else {
					require.Equal(t, StatusStarted, row[3])
					require.Empty(t, row[6])
				}
				if row[2] == OpReplace {
					require.NotEmpty(t, row[5])
				}
			}
			require.Equal(t, cfg.Threads*cfg.OpsPerThread, finished)

			var total int64
			for _, n := range report.Ops {
				total += n
			}
			require.EqualValues(t, cfg.Threads*cfg.OpsPerThread, total)
			require.EqualValues(t, len(report.Snapshot), report.Len)
			require.Equal(t, report.Len, report.Stats.Len)
		})
	}
}

func TestRunPartitionedMatchesModel(t *testing.T) {
	for _, strategy := range []string{StrategyLockCoupling, StrategyLockFree} {
		for _, mix := range []string{MixUniform, MixReadHeavy} {
			t.Run(strategy+"/"+mix, func(t *testing.T) {
				records, _ := test.NewNullLogger()
				cfg := Config{
					Threads:      6,
					OpsPerThread: 2000,
					MaxItem:      16,
					Strategy:     strategy,
					Mix:          mix,
					Partitioned:  true,
					Seed:         99,
					Format:       FormatJSON,
				}
				report, err := Run(context.Background(), cfg, records, discardEntry())
				require.NoError(t, err)
				require.Zero(t, report.Mismatches)
				for _, item := range report.Snapshot {
					require.True(t, item >= 1 && item <= cfg.Threads*cfg.MaxItem)
				}
			})
		}
	}
}

func TestRunReadHeavyMix(t *testing.T) {
	records, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Mix = MixReadHeavy
	cfg.OpsPerThread = 5000
	cfg.Seed = 3
	report, err := Run(context.Background(), cfg, records, discardEntry())
	require.NoError(t, err)

	total := float64(cfg.Threads * cfg.OpsPerThread)
	require.InDelta(t, 0.7, float64(report.Ops[OpContains])/total, 0.05)
	require.InDelta(t, 0.1, float64(report.Ops[OpReplace])/total, 0.03)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	records, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, DefaultConfig(), records, discardEntry())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	require.Empty(t, hook.AllEntries())
	require.Zero(t, report.Len)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	records, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Strategy = "coarse"
	_, err := Run(context.Background(), cfg, records, discardEntry())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestVerifyDetectsOrderViolation(t *testing.T) {
	report := &Report{Snapshot: []int{1, 3, 2}, Len: 3}
	require.ErrorIs(t, verify(report, nil, false), ErrOrderViolation)

	report = &Report{Snapshot: []int{1, 2}, Len: 2, Mismatches: 1}
	require.ErrorIs(t, verify(report, nil, true), ErrVerificationFailed)
}
