// SPDX-License-Identifier: MIT

// Package telemetry turns the unstructured stderr of relay workers into
// bounded, queryable time series of progress samples.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/streamfork/relayd/internal/metrics"
)

const (
	// seriesCapacity bounds each destination's history to one hour of
	// one-per-second progress samples.
	seriesCapacity = 3600

	// defaultQueryLimit caps Series responses when the caller gives no
	// limit: five minutes at one sample per second.
	defaultQueryLimit = 300
)

// Sample is a point-in-time progress reading parsed from worker output.
// Optional fields are nil when the source line did not carry them.
type Sample struct {
	Timestamp   time.Time `json:"ts"`
	BitrateKbps *float64  `json:"bitrateKbps,omitempty"`
	FPS         *float64  `json:"fps,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Frame       *int64    `json:"frame,omitempty"`
	OffsetSec   *float64  `json:"offsetSec,omitempty"`
}

// Summary is the per-destination aggregate exposed by status queries.
type Summary struct {
	DestinationID string     `json:"destinationId"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	Current       *Sample    `json:"current,omitempty"`
	SampleCount   int        `json:"sampleCount"`
}

type stream struct {
	ring      *sampleRing
	current   *Sample
	startedAt time.Time
	endedAt   *time.Time
}

// Collector maintains one series per destination. Series survive a
// worker's stop/restart cycle and are removed only by Clear/ClearAll.
type Collector struct {
	mu      sync.Mutex
	streams map[string]*stream
	now     func() time.Time
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		streams: make(map[string]*stream),
		now:     time.Now,
	}
}

// Register creates the series for a destination if it does not exist yet
// and marks it live again after a restart. The relay-start reference time
// is kept from the first registration.
func (c *Collector) Register(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.streams[id]
	if !ok {
		c.streams[id] = &stream{ring: newSampleRing(seriesCapacity), startedAt: at}
		return
	}
	st.endedAt = nil
}

// Ingest parses one diagnostic line. Every parse that yields at least one
// field replaces the current sample; only bitrate-bearing parses are
// appended to the history, since bitrate presence is what separates a real
// progress report from transient partial output.
func (c *Collector) Ingest(id, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	s, ok := parseStatsLine(line, at)
	if !ok {
		return
	}

	st, exists := c.streams[id]
	if !exists {
		st = &stream{ring: newSampleRing(seriesCapacity), startedAt: at}
		c.streams[id] = st
	}

	cur := s
	st.current = &cur
	if s.BitrateKbps != nil {
		st.ring.append(s)
		metrics.IncTelemetrySample(id)
	}
}

// Current returns the most recent sample for a destination.
func (c *Collector) Current(id string) (Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.streams[id]
	if !ok || st.current == nil {
		return Sample{}, false
	}
	return *st.current, true
}

// Series returns samples with timestamps strictly after since, keeping the
// most recent limit entries (defaultQueryLimit when limit <= 0).
func (c *Collector) Series(id string, since time.Time, limit int) []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.streams[id]
	if !ok {
		return nil
	}
	all := st.ring.snapshot()
	filtered := all[:0:0]
	for _, s := range all {
		if s.Timestamp.After(since) {
			filtered = append(filtered, s)
		}
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

// Known reports whether a series exists for the destination.
func (c *Collector) Known(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.streams[id]
	return ok
}

// MarkEnded records the end of the owning worker. The series stays
// readable for historical queries.
func (c *Collector) MarkEnded(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.streams[id]; ok && st.endedAt == nil {
		end := at
		st.endedAt = &end
	}
}

// Clear removes one destination's series.
func (c *Collector) Clear(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streams, id)
}

// ClearAll removes every series, for a fresh relay-wide start.
func (c *Collector) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams = make(map[string]*stream)
}

// Summary returns the aggregate for one destination.
func (c *Collector) Summary(id string) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.streams[id]
	if !ok {
		return Summary{}, false
	}
	return summarize(id, st), true
}

// Summaries returns the aggregates for every known destination, ordered
// by destination ID.
func (c *Collector) Summaries() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Summary, 0, len(c.streams))
	for id, st := range c.streams {
		out = append(out, summarize(id, st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
	return out
}

func summarize(id string, st *stream) Summary {
	sum := Summary{
		DestinationID: id,
		StartedAt:     st.startedAt,
		SampleCount:   st.ring.len(),
	}
	if st.current != nil {
		cur := *st.current
		sum.Current = &cur
	}
	if st.endedAt != nil {
		end := *st.endedAt
		sum.EndedAt = &end
	}
	return sum
}
