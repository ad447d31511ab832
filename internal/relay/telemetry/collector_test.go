// SPDX-License-Identifier: MIT

package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestSeriesCapacityIsFIFO(t *testing.T) {
	c := NewCollector()
	c.now = testClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	const total = seriesCapacity + 100
	for i := 0; i < total; i++ {
		c.Ingest("d1", fmt.Sprintf("frame=%d fps=30 time=00:00:01.00 bitrate=%d.0kbits/s speed=1.0x", i, i))
	}

	series := c.Series("d1", time.Time{}, seriesCapacity)
	require.Len(t, series, seriesCapacity)

	// The first 100 samples must be evicted, the newest retained.
	require.NotNil(t, series[0].BitrateKbps)
	assert.Equal(t, float64(100), *series[0].BitrateKbps)
	require.NotNil(t, series[len(series)-1].BitrateKbps)
	assert.Equal(t, float64(total-1), *series[len(series)-1].BitrateKbps)

	// Chronological order end to end.
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i].Timestamp.After(series[i-1].Timestamp))
	}
}

func TestFrameOnlyLineUpdatesCurrentNotSeries(t *testing.T) {
	c := NewCollector()
	c.now = testClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	c.Ingest("d1", "frame= 10 fps=30 time=00:00:00.33 bitrate=2000.0kbits/s speed=1.0x")
	c.Ingest("d1", "frame= 11")

	cur, ok := c.Current("d1")
	require.True(t, ok)
	require.NotNil(t, cur.Frame)
	assert.Equal(t, int64(11), *cur.Frame)
	assert.Nil(t, cur.BitrateKbps)

	series := c.Series("d1", time.Time{}, 0)
	require.Len(t, series, 1)
	require.NotNil(t, series[0].BitrateKbps)
	assert.Equal(t, float64(2000), *series[0].BitrateKbps)
}

func TestUnparseableLineIsIgnored(t *testing.T) {
	c := NewCollector()
	c.Ingest("d1", "[tcp @ 0x55f] Connection refused")

	_, ok := c.Current("d1")
	assert.False(t, ok)
	assert.Empty(t, c.Series("d1", time.Time{}, 0))
}

func TestSeriesSinceIsStrictlyGreater(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	c := NewCollector()
	c.now = testClock(start)

	for i := 0; i < 10; i++ {
		c.Ingest("d1", "bitrate=1000.0kbits/s")
	}

	// Samples carry timestamps start+1s .. start+10s.
	cut := start.Add(5 * time.Second)
	series := c.Series("d1", cut, 0)
	require.Len(t, series, 5)
	assert.Equal(t, start.Add(6*time.Second), series[0].Timestamp)
}

func TestSeriesDefaultLimit(t *testing.T) {
	c := NewCollector()
	c.now = testClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	for i := 0; i < defaultQueryLimit+50; i++ {
		c.Ingest("d1", "bitrate=900.0kbits/s")
	}

	series := c.Series("d1", time.Time{}, 0)
	assert.Len(t, series, defaultQueryLimit)

	series = c.Series("d1", time.Time{}, 10)
	assert.Len(t, series, 10)
}

func TestSeriesUnknownDestination(t *testing.T) {
	c := NewCollector()
	assert.Nil(t, c.Series("ghost", time.Time{}, 0))
	_, ok := c.Current("ghost")
	assert.False(t, ok)
	assert.False(t, c.Known("ghost"))
}

func TestRegisterKeepsFirstStart(t *testing.T) {
	c := NewCollector()
	t0 := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	c.Register("d1", t0)
	c.MarkEnded("d1", t0.Add(30*time.Second))
	c.Register("d1", t1)

	sum, ok := c.Summary("d1")
	require.True(t, ok)
	assert.Equal(t, t0, sum.StartedAt)
	assert.Nil(t, sum.EndedAt, "re-registration marks the series live again")
}

func TestMarkEndedRetainsSeries(t *testing.T) {
	c := NewCollector()
	c.now = testClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	c.Register("d1", time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	c.Ingest("d1", "bitrate=1500.0kbits/s")
	end := time.Date(2026, 2, 10, 12, 5, 0, 0, time.UTC)
	c.MarkEnded("d1", end)

	sum, ok := c.Summary("d1")
	require.True(t, ok)
	require.NotNil(t, sum.EndedAt)
	assert.Equal(t, end, *sum.EndedAt)
	assert.Equal(t, 1, sum.SampleCount)
	assert.Len(t, c.Series("d1", time.Time{}, 0), 1, "history readable after the worker is gone")
}

func TestClearAndClearAll(t *testing.T) {
	c := NewCollector()
	c.Ingest("d1", "bitrate=100.0kbits/s")
	c.Ingest("d2", "bitrate=200.0kbits/s")

	c.Clear("d1")
	assert.False(t, c.Known("d1"))
	assert.True(t, c.Known("d2"))

	c.ClearAll()
	assert.False(t, c.Known("d2"))
	assert.Empty(t, c.Summaries())
}

func TestSummariesSorted(t *testing.T) {
	c := NewCollector()
	c.Ingest("zeta", "bitrate=100.0kbits/s")
	c.Ingest("alpha", "bitrate=100.0kbits/s")
	c.Ingest("mid", "bitrate=100.0kbits/s")

	sums := c.Summaries()
	require.Len(t, sums, 3)
	assert.Equal(t, "alpha", sums[0].DestinationID)
	assert.Equal(t, "mid", sums[1].DestinationID)
	assert.Equal(t, "zeta", sums[2].DestinationID)
}
