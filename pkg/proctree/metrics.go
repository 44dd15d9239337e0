// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edgesec/proctree/pkg/metrics/consts"
)

var (
	trackedProcesses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "tracked_processes",
		Help:      "The number of processes currently tracked in the tree.",
	})
	retainedPids = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "retained_pids",
		Help:      "The number of outstanding pid retentions.",
	})
	lookupMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "lookup_misses_total",
		Help:      "The total number of operations that did not find their pid in the tree.",
	}, []string{"op"})
	duplicateEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "duplicate_events_total",
		Help:      "The total number of events dropped because their timestamp was already processed.",
	})
	removalsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "removals_scheduled_total",
		Help:      "The total number of pids scheduled for deferred removal.",
	})
	removalsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "removals_completed_total",
		Help:      "The total number of pending removals completed after aging out.",
	})
)
