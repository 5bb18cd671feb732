// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPasses counts started synchronization passes.
	SyncPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsm_sync_passes_total",
		Help: "Total number of subscription synchronization passes started.",
	})

	// SyncErrors counts synchronization passes aborted with an error.
	SyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsm_sync_errors_total",
		Help: "Total number of subscription synchronization passes that failed.",
	})

	// VideosDiscovered counts video rows created from remote playlists.
	VideosDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsm_videos_discovered_total",
		Help: "Total number of new videos discovered during synchronization.",
	})

	// JobsScheduled counts jobs handed off to the external scheduler,
	// labeled by job type (download, delete, resync).
	JobsScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsm_jobs_scheduled_total",
		Help: "Total number of jobs handed off to the scheduler by type.",
	}, []string{"type"})
)
