// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the resolver.
//
// # Description
//
// Metrics cover the job lifecycle (submissions, completions by status,
// active jobs), per-phase pipeline latency, registry lookups by
// outcome, and research cache behavior.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. All record helpers
// are safe to call before InitMetrics; they no-op until it runs, which
// keeps unit tests free of registry setup.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "depscout"

// Subsystem for resolution pipeline metrics
const resolverSubsystem = "resolver"

// ResolverMetrics holds all Prometheus metrics for the resolution
// pipeline. Initialize once at startup via InitMetrics().
type ResolverMetrics struct {
	// JobsSubmittedTotal counts accepted job submissions.
	JobsSubmittedTotal prometheus.Counter

	// JobsFinishedTotal counts finished jobs by terminal status.
	// Labels: status (completed, failed)
	JobsFinishedTotal *prometheus.CounterVec

	// ActiveJobs tracks pipelines currently running.
	ActiveJobs prometheus.Gauge

	// PhaseDurationSeconds measures wall-clock duration per phase.
	// Labels: phase (research, resolve, compile)
	PhaseDurationSeconds *prometheus.HistogramVec

	// RegistryLookupsTotal counts registry lookups by outcome.
	// Labels: outcome (ok, not_found, error)
	RegistryLookupsTotal *prometheus.CounterVec

	// CacheEventsTotal counts research cache events.
	// Labels: event (hit, miss, evict)
	CacheEventsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of ResolverMetrics.
// Initialized by InitMetrics(); nil until then.
var DefaultMetrics *ResolverMetrics

// InitMetrics initializes and registers the default metrics instance.
// Call once at application startup.
func InitMetrics() *ResolverMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = &ResolverMetrics{
		JobsSubmittedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: resolverSubsystem,
			Name:      "jobs_submitted_total",
			Help:      "Total number of accepted job submissions.",
		}),
		JobsFinishedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: resolverSubsystem,
			Name:      "jobs_finished_total",
			Help:      "Total number of finished jobs by terminal status.",
		}, []string{"status"}),
		ActiveJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: resolverSubsystem,
			Name:      "active_jobs",
			Help:      "Number of resolution pipelines currently running.",
		}),
		PhaseDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: resolverSubsystem,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock duration of each pipeline phase.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		RegistryLookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: resolverSubsystem,
			Name:      "registry_lookups_total",
			Help:      "Total registry lookups by outcome.",
		}, []string{"outcome"}),
		CacheEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: resolverSubsystem,
			Name:      "cache_events_total",
			Help:      "Research cache events by kind.",
		}, []string{"event"}),
	}
	return DefaultMetrics
}

// JobSubmitted records one accepted submission.
func JobSubmitted() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.JobsSubmittedTotal.Inc()
}

// JobStarted marks a pipeline as running.
func JobStarted() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ActiveJobs.Inc()
}

// JobFinished records a terminal job status and marks the pipeline done.
func JobFinished(status string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ActiveJobs.Dec()
	DefaultMetrics.JobsFinishedTotal.WithLabelValues(status).Inc()
}

// ObservePhase records one phase duration in seconds.
func ObservePhase(phase string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.PhaseDurationSeconds.WithLabelValues(phase).Observe(seconds)
}

// RecordRegistryLookup records one registry lookup outcome.
func RecordRegistryLookup(outcome string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RegistryLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheEvent records one research cache event.
func RecordCacheEvent(event string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CacheEventsTotal.WithLabelValues(event).Inc()
}
