// SPDX-License-Identifier: MIT

package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamfork/relayd/internal/metrics"
)

func TestPromhttpExposure(t *testing.T) {
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	if _, err := srv.Client().Get(srv.URL); err != nil {
		t.Fatal(err)
	}
}

func TestHelpersNormalizeLabels(t *testing.T) {
	// Empty labels must map to a stable fallback instead of creating
	// an empty-string series.
	metrics.IncWorkerStart("")
	metrics.IncWorkerExit("", "")
	metrics.IncInputPoll("")
	metrics.IncTelemetrySample("")
	metrics.IncDashboardRequest("")
	metrics.IncProcSignal("", "")

	if got := testCounterValue(t, metrics.WorkerStartTotal.WithLabelValues("unknown")); got < 1 {
		t.Errorf("WorkerStartTotal[unknown] = %v, want >= 1", got)
	}
}

func TestGauges(t *testing.T) {
	metrics.SetHWAccelAvailable(true)
	if got := testGaugeValue(t, metrics.HWAccelAvailable); got != 1 {
		t.Errorf("HWAccelAvailable = %v, want 1", got)
	}
	metrics.SetHWAccelAvailable(false)
	if got := testGaugeValue(t, metrics.HWAccelAvailable); got != 0 {
		t.Errorf("HWAccelAvailable = %v, want 0", got)
	}

	metrics.SetWorkersActive(3)
	if got := testGaugeValue(t, metrics.WorkersActive); got != 3 {
		t.Errorf("WorkersActive = %v, want 3", got)
	}
}
