package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/stats"
)

func TestPruneCountersDefaultZero(t *testing.T) {
	var p stats.PruneCounters
	require.Equal(t, 0, p.Get("consistency"))
	p.Inc("consistency")
	p.Inc("consistency")
	p.Inc("counterex")
	require.Equal(t, 2, p.Get("consistency"))
	require.Equal(t, 1, p.Get("counterex"))
	require.Equal(t, 3, p.Sum())
}

func TestTimerFirstLast(t *testing.T) {
	tm := &stats.Timer{}
	tm.Start()
	time.Sleep(time.Millisecond)
	tm.Mark()
	first := tm.First
	time.Sleep(time.Millisecond)
	tm.Mark()
	require.Equal(t, first, tm.First, "first must not change after subsequent marks")
	require.GreaterOrEqual(t, tm.Last, first)
}

func TestRecordOracleCallAccumulates(t *testing.T) {
	s := stats.New(nil)
	s.RecordOracleCall("binsec", 10*time.Millisecond, false, false)
	s.RecordOracleCall("binsec", 20*time.Millisecond, true, false)

	o := s.Oracle("binsec")
	require.Equal(t, 2, o.Calls)
	require.Equal(t, 1, o.Timeouts)
	require.Equal(t, 0, o.Crashes)
	require.Len(t, o.Times, 2)
}

func TestLogDoesNotPanicOnEmptyStats(t *testing.T) {
	s := stats.New(nil)
	s.Log(corelog.NewNoOp())
}
