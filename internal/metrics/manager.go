// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/autobrr/updatorr/internal/deluge"
	"github.com/autobrr/updatorr/internal/panel"
)

const namespace = "updatorr"

// MetricsManager owns the registry and the collectors fed by the deluge client
// and the batch dispatcher.
type MetricsManager struct {
	registry *prometheus.Registry

	remoteCalls        *prometheus.CounterVec
	remoteCallDuration *prometheus.HistogramVec
	batches            *prometheus.CounterVec
	batchTargets       *prometheus.CounterVec
	batchFailures      *prometheus.CounterVec
	pluginEvents       *prometheus.CounterVec
}

func NewMetricsManager() *MetricsManager {
	m := &MetricsManager{
		registry: prometheus.NewRegistry(),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Deluge JSON-RPC calls by method and result.",
		}, []string{"method", "result"}),
		remoteCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Deluge JSON-RPC round trip time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Dispatched batches by action and result.",
		}, []string{"action", "result"}),
		batchTargets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_targets_total",
			Help:      "Torrents targeted by dispatched batches.",
		}, []string{"action"}),
		batchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failed_calls_total",
			Help:      "Remote calls that failed inside a batch.",
		}, []string{"action"}),
		pluginEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_events_total",
			Help:      "Events received from the Updatorr plugin by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remoteCalls,
		m.remoteCallDuration,
		m.batches,
		m.batchTargets,
		m.batchFailures,
		m.pluginEvents,
	)

	return m
}

func (m *MetricsManager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// ObserveRemoteCall matches deluge.CallObserver.
func (m *MetricsManager) ObserveRemoteCall(method string, took time.Duration, err error) {
	m.remoteCalls.WithLabelValues(method, resultLabel(err)).Inc()
	m.remoteCallDuration.WithLabelValues(method).Observe(took.Seconds())
}

// RecordBatch implements panel.ActivityRecorder.
func (m *MetricsManager) RecordBatch(_ context.Context, result panel.BatchResult) {
	action := string(result.Action)
	m.batches.WithLabelValues(action, resultLabel(result.Err)).Inc()
	m.batchTargets.WithLabelValues(action).Add(float64(result.Targets))
	if result.Failed > 0 {
		m.batchFailures.WithLabelValues(action).Add(float64(result.Failed))
	}
}

// RecordEvent can be subscribed to the event watcher.
func (m *MetricsManager) RecordEvent(ev deluge.Event) {
	m.pluginEvents.WithLabelValues(string(ev.Kind)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
