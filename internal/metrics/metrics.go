// Package metrics exposes Prometheus instrumentation for differentiation
// stacks.
//
// A nil *Collectors is valid and records nothing, so callers never branch on
// whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stanmath"

// Collectors holds the metrics shared by every Stack reporting to one
// registry. All methods are safe for concurrent use.
type Collectors struct {
	EpisodesBegun prometheus.Counter
	EpisodesEnded prometheus.Counter
	EpisodeNodes  prometheus.Histogram
	Sweeps        prometheus.Counter
	SweepDuration prometheus.Histogram
	ArenaGrows    prometheus.Counter
	ArenaBytes    prometheus.Counter
	ArenaReserved prometheus.Gauge
	TasksFailed   prometheus.Counter
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer for
// the process-wide registry or a fresh prometheus.NewRegistry in tests.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		EpisodesBegun: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_begun_total",
			Help:      "Total number of differentiation episodes begun",
		}),
		EpisodesEnded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_ended_total",
			Help:      "Total number of differentiation episodes ended",
		}),
		EpisodeNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_nodes",
			Help:      "Tape nodes recorded per episode",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		Sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Total number of reverse sweeps",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reverse sweeps in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		ArenaGrows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arena",
			Name:      "grows_total",
			Help:      "Total number of arena blocks allocated",
		}),
		ArenaBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arena",
			Name:      "allocated_bytes_total",
			Help:      "Total bytes of arena blocks allocated",
		}),
		ArenaReserved: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "arena",
			Name:      "reserved_bytes",
			Help:      "Bytes retained by the most recently reset stack",
		}),
		TasksFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of parallel episode tasks that returned an error",
		}),
	}
}

// EpisodeBegun counts a new episode.
func (c *Collectors) EpisodeBegun() {
	if c == nil {
		return
	}
	c.EpisodesBegun.Inc()
}

// EpisodeEnded counts an ended episode that recorded nodes nodes.
func (c *Collectors) EpisodeEnded(nodes int) {
	if c == nil {
		return
	}
	c.EpisodesEnded.Inc()
	c.EpisodeNodes.Observe(float64(nodes))
}

// ObserveSweep records one reverse sweep.
func (c *Collectors) ObserveSweep(d time.Duration) {
	if c == nil {
		return
	}
	c.Sweeps.Inc()
	c.SweepDuration.Observe(d.Seconds())
}

// ArenaGrew records a new arena block of the given size.
func (c *Collectors) ArenaGrew(bytes int64) {
	if c == nil {
		return
	}
	c.ArenaGrows.Inc()
	c.ArenaBytes.Add(float64(bytes))
}

// SetArenaReserved records the bytes retained after an outermost episode.
func (c *Collectors) SetArenaReserved(bytes int64) {
	if c == nil {
		return
	}
	c.ArenaReserved.Set(float64(bytes))
}

// TaskFailed counts a failed parallel task.
func (c *Collectors) TaskFailed() {
	if c == nil {
		return
	}
	c.TasksFailed.Inc()
}
