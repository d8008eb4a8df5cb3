package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	require.NotNil(t, c)

	// Counters and gauges are exported at zero; histograms once observed.
	c.EpisodeEnded(0)
	c.ObserveSweep(0)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"stanmath_episodes_begun_total",
		"stanmath_episodes_ended_total",
		"stanmath_episode_nodes",
		"stanmath_sweeps_total",
		"stanmath_sweep_duration_seconds",
		"stanmath_arena_grows_total",
		"stanmath_arena_allocated_bytes_total",
		"stanmath_arena_reserved_bytes",
		"stanmath_tasks_failed_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestCollectors_Record(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.EpisodeBegun()
	c.EpisodeBegun()
	c.EpisodeEnded(12)
	c.ObserveSweep(3 * time.Microsecond)
	c.ArenaGrew(4096)
	c.ArenaGrew(1024)
	c.SetArenaReserved(5120)
	c.SetArenaReserved(2048)
	c.TaskFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.EpisodesBegun))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EpisodesEnded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Sweeps))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ArenaGrows))
	assert.Equal(t, 5120.0, testutil.ToFloat64(c.ArenaBytes))
	assert.Equal(t, 2048.0, testutil.ToFloat64(c.ArenaReserved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TasksFailed))
	assert.Equal(t, 1, testutil.CollectAndCount(c.EpisodeNodes))
	assert.Equal(t, 1, testutil.CollectAndCount(c.SweepDuration))
}

func TestCollectors_NilIsNoop(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.EpisodeBegun()
		c.EpisodeEnded(3)
		c.ObserveSweep(time.Millisecond)
		c.ArenaGrew(64)
		c.SetArenaReserved(64)
		c.TaskFailed()
	})
}
