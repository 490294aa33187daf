// SPDX-License-Identifier: GPL-3.0-or-later
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceRule      = "rule"
	SourceAI        = "ai"
	SourceFailSafe  = "failsafe"
	SourceReconcile = "reconcile"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomePanic   = "panic"

	QueueDelete = "delete"
	QueueKeep   = "keep"
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_runs_total",
			Help: "Total number of triage runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_run_duration_seconds",
			Help:    "Duration of triage runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	RunsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_runs_rejected_total",
			Help: "Total number of run requests rejected because a run was already executing",
		},
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_run_in_progress",
			Help: "1 while a triage run is executing",
		},
	)
)

// Decision metrics
var (
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_decisions_total",
			Help: "Total number of decisions by category, action and source",
		},
		[]string{"category", "action", "source"},
	)

	SkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_messages_skipped_total",
			Help: "Total number of messages skipped by reason",
		},
		[]string{"reason"},
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_classifier_duration_seconds",
			Help:    "Duration of classifier calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// Mailbox and store metrics
var (
	ApplyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_apply_failures_total",
			Help: "Total number of failed mailbox mutations by queue",
		},
		[]string{"queue"},
	)

	AppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_applied_messages_total",
			Help: "Total number of messages mutated in the mailbox by queue",
		},
		[]string{"queue"},
	)

	SweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_swept_records_total",
			Help: "Total number of decision records removed by the retention sweep",
		},
	)
)
