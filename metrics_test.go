//go:build unix

package mmaplog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}

	mc.RecordWrite(10, 2*time.Millisecond, nil)
	mc.RecordWrite(5, 4*time.Millisecond, errors.New("boom"))
	mc.RecordGrow(4096, 12288, time.Millisecond, nil)
	mc.RecordGrow(12288, 16384, time.Millisecond, errors.New("boom"))
	mc.RecordCommit(time.Millisecond, nil)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.WriteCount)
	assert.Equal(t, int64(1), stats.WriteErrors)
	assert.Equal(t, int64(10), stats.WriteBytes)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), stats.WriteAvgNanos)
	assert.Equal(t, int64(2), stats.GrowCount)
	assert.Equal(t, int64(1), stats.GrowErrors)
	assert.Equal(t, int64(8192), stats.GrowBytes)
	assert.Equal(t, int64(1), stats.CommitCount)
	assert.Zero(t, stats.CommitErrors)

	assert.Zero(t, (&BasicMetricsCollector{}).GetStats().CommitAvgNanos)
}

func TestMetrics_RecordedByStore(t *testing.T) {
	mc := &BasicMetricsCollector{}
	s, err := Open(tempPath(t), WithMetricsCollector(mc))
	require.NoError(t, err)

	require.NoError(t, s.Write([]byte("hello")))
	require.NoError(t, s.Write(make([]byte, PageSize())))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.WriteCount)
	assert.Equal(t, int64(5+PageSize()), stats.WriteBytes)
	assert.Equal(t, int64(1), stats.GrowCount)
	assert.Equal(t, int64(PageSize()), stats.GrowBytes)
	assert.Equal(t, int64(4), stats.CommitCount) // two writes, Commit, Close
}

func TestWithMetricsCollector_Nil(t *testing.T) {
	s := mustOpen(t, tempPath(t), WithMetricsCollector(nil))
	require.NoError(t, s.Write([]byte("x")))
}
