// SPDX-License-Identifier: MIT

// Package metrics defines the Prometheus instrumentation for the relay engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkerStartTotal counts worker process launches by destination.
	WorkerStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_worker_start_total",
		Help: "Total number of relay worker process launches",
	}, []string{"destination"})

	// WorkerExitTotal counts worker process exits by destination and reason.
	WorkerExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_worker_exit_total",
		Help: "Total number of relay worker process exits by reason",
	}, []string{"destination", "reason"})

	// WorkersActive tracks the number of currently running relay workers.
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayd_workers_active",
		Help: "Number of currently running relay workers",
	})

	// HWAccelAvailable reports the memoized hardware encoder probe result.
	HWAccelAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayd_hwaccel_available",
		Help: "Whether the hardware encoder probe succeeded (1) or failed (0)",
	})

	// InputAvailable reports the most recent input availability check.
	InputAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayd_input_available",
		Help: "Whether a live input is currently available (1) or not (0)",
	})

	// InputPollTotal counts media-server status polls by outcome.
	InputPollTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_input_poll_total",
		Help: "Total number of media-server status polls by outcome",
	}, []string{"outcome"})

	// TelemetrySamplesTotal counts parsed progress samples by destination.
	TelemetrySamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_telemetry_samples_total",
		Help: "Total number of parsed worker progress samples",
	}, []string{"destination"})

	// DashboardRequestTotal counts destination-list fetches by HTTP status.
	DashboardRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_dashboard_request_total",
		Help: "Total number of dashboard destination fetches by status code",
	}, []string{"code"})

	// ProcSignalTotal counts signals delivered to worker process groups.
	ProcSignalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_proc_signal_total",
		Help: "Total number of signals sent to worker process groups",
	}, []string{"signal", "result"})
)

// IncWorkerStart records a worker launch for the given destination.
func IncWorkerStart(destination string) {
	if destination == "" {
		destination = "unknown"
	}
	WorkerStartTotal.WithLabelValues(destination).Inc()
}

// IncWorkerExit records a worker exit with a concrete reason.
func IncWorkerExit(destination, reason string) {
	if destination == "" {
		destination = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	WorkerExitTotal.WithLabelValues(destination, reason).Inc()
}

// SetWorkersActive updates the active worker gauge.
func SetWorkersActive(n int) {
	WorkersActive.Set(float64(n))
}

// SetHWAccelAvailable records the hardware probe determination.
func SetHWAccelAvailable(available bool) {
	if available {
		HWAccelAvailable.Set(1)
	} else {
		HWAccelAvailable.Set(0)
	}
}

// SetInputAvailable records the latest input availability.
func SetInputAvailable(available bool) {
	if available {
		InputAvailable.Set(1)
	} else {
		InputAvailable.Set(0)
	}
}

// IncInputPoll records a status poll outcome ("ok" or "error").
func IncInputPoll(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	InputPollTotal.WithLabelValues(outcome).Inc()
}

// IncTelemetrySample records a parsed progress sample.
func IncTelemetrySample(destination string) {
	if destination == "" {
		destination = "unknown"
	}
	TelemetrySamplesTotal.WithLabelValues(destination).Inc()
}

// IncDashboardRequest records a destination fetch by status code.
func IncDashboardRequest(code string) {
	if code == "" {
		code = "error"
	}
	DashboardRequestTotal.WithLabelValues(code).Inc()
}

// IncProcSignal records a signal delivery attempt to a worker group.
func IncProcSignal(signal, result string) {
	if signal == "" {
		signal = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	ProcSignalTotal.WithLabelValues(signal, result).Inc()
}
