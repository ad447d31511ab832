// SPDX-License-Identifier: MIT

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const destinationsJSON = `[
  {
    "id": "yt-main",
    "name": "YouTube Main",
    "enabled": true,
    "endpoint": "rtmp://a.rtmp.youtube.com/live2",
    "streamKey": "yt-key",
    "encoding": {"passthrough": false, "videoBitrateK": 6000, "preset": "fast"}
  },
  {
    "id": "srt-backup",
    "name": "SRT Backup",
    "enabled": false,
    "endpoint": "srt://ingest.example.com:9000",
    "streamKey": "srt-key",
    "srt": {"latencyMs": 120, "mode": "caller"}
  }
]`

func fastOptions() Options {
	return Options{
		Timeout:    2 * time.Second,
		Backoff:    time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
		RateLimit:  1000,
	}
}

func TestDestinations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/destinations", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, destinationsJSON)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "secret", fastOptions())
	dests, err := c.Destinations(context.Background())
	require.NoError(t, err)
	require.Len(t, dests, 2)

	assert.Equal(t, "yt-main", dests[0].ID)
	assert.True(t, dests[0].Enabled)
	require.NotNil(t, dests[0].Encoding)
	assert.Equal(t, 6000, dests[0].Encoding.VideoBitrateK)
	assert.Equal(t, "fast", dests[0].Encoding.Preset)

	assert.Equal(t, "srt-backup", dests[1].ID)
	assert.False(t, dests[1].Enabled)
	require.NotNil(t, dests[1].SRT)
	assert.Equal(t, 120, dests[1].SRT.LatencyMS)
}

func TestDestinationsRetriesServerError(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "secret", fastOptions())
	dests, err := c.Destinations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dests)
	assert.Equal(t, int64(2), hits.Load())
}

func TestDestinationsExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "secret", fastOptions())
	_, err := c.Destinations(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int64(3), hits.Load(), "default is two retries after the first attempt")
}

func TestDestinationsDoesNotRetryClientError(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "bad-token", fastOptions())
	_, err := c.Destinations(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
	assert.Equal(t, int64(1), hits.Load())
}

func TestDestinationsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"an array"`)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "secret", fastOptions())
	_, err := c.Destinations(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestDestinationsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "secret", fastOptions())
	_, err := c.Destinations(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDestinationsContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL, "secret", fastOptions())
	_, err := c.Destinations(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled))
}
