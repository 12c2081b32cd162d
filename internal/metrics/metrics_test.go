package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func TestCollector_RunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RunStarted()
	c.RunStarted()
	c.GenerationCompleted()
	c.GenerationCompleted()
	c.GenerationCompleted()
	c.RunFinished(domain.RunStatusConverged, 12.5, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeRuns))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.generations))

	expected := `
# HELP scheduler_runs_finished_total Total number of scheduling runs finished, by final status
# TYPE scheduler_runs_finished_total counter
scheduler_runs_finished_total{status="converged"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(c.runsFinished, strings.NewReader(expected)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.runDuration))
}

func TestCollector_FailedRunSkipsFitness(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RunStarted()
	c.RunFinished(domain.RunStatusFailed, 0, time.Second)

	expected := `
# HELP scheduler_best_fitness Fitness of the best candidate at the end of a run
# TYPE scheduler_best_fitness histogram
scheduler_best_fitness_bucket{le="1"} 0
scheduler_best_fitness_bucket{le="4"} 0
scheduler_best_fitness_bucket{le="16"} 0
scheduler_best_fitness_bucket{le="64"} 0
scheduler_best_fitness_bucket{le="256"} 0
scheduler_best_fitness_bucket{le="1024"} 0
scheduler_best_fitness_bucket{le="4096"} 0
scheduler_best_fitness_bucket{le="16384"} 0
scheduler_best_fitness_bucket{le="65536"} 0
scheduler_best_fitness_bucket{le="262144"} 0
scheduler_best_fitness_bucket{le="+Inf"} 0
scheduler_best_fitness_sum 0
scheduler_best_fitness_count 0
`
	assert.NoError(t, testutil.CollectAndCompare(c.bestFitness, strings.NewReader(expected)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.activeRuns))
}

func TestNewCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.RunStarted()

	assert.Equal(t, 1.0, testutil.ToFloat64(second.runsStarted))
}
