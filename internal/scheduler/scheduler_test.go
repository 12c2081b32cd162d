package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// infeasibleProblem 无论怎样排班都违反最低人数，运行一定跑满所有代数
func infeasibleProblem(t *testing.T) *domain.ScheduleProblem {
	spec := relaxedSpec(2, 5)
	spec.MinStaffPerShift = map[domain.ShiftType]int{M: 3}
	return mustProblem(t, spec)
}

func TestSchedule_ConvergesWithSeededGrid(t *testing.T) {
	problem := mustProblem(t, relaxedSpec(3, 7))
	params := testParameters()
	params.MaxGenerations = 100

	s, err := New(&params, problem, WithSeedGrids(fillGrid(3, 7, O)), WithLogger(quietLogger))
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusConverged, result.Status)
	assert.Less(t, result.Generations, params.MaxGenerations)
	assert.Equal(t, 0, result.Best.HardPenalty())
	assert.Less(t, result.Best.SoftPenalty(), params.SoftAcceptanceThreshold)
	assert.Equal(t, StateConverged, s.State())

	snapshot := s.Progress().Snapshot()
	assert.True(t, snapshot.Completed)
	assert.Equal(t, domain.RunStatusConverged, snapshot.Status)
}

func TestSchedule_ExhaustsGenerations(t *testing.T) {
	params := testParameters()
	s, err := New(&params, infeasibleProblem(t), WithLogger(quietLogger))
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusExhausted, result.Status)
	assert.Equal(t, params.MaxGenerations, result.Generations)
	assert.Len(t, result.History, params.MaxGenerations)
	assert.Positive(t, result.Best.HardPenalty())
	assert.NotEmpty(t, result.Violations.Hard[RuleMinimumStaffing])

	snapshot := s.Progress().Snapshot()
	assert.True(t, snapshot.Completed)
	assert.Equal(t, params.MaxGenerations, snapshot.CurrentGeneration)
	assert.Equal(t, 100.0, snapshot.Percentage())
}

func TestSchedule_BestFitnessNeverWorsens(t *testing.T) {
	params := testParameters()
	params.MaxGenerations = 40
	params.EliteCount = 1
	s, err := New(&params, mustProblem(t, domain.DefaultProblemSpec()), WithLogger(quietLogger))
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	for i := 1; i < len(result.History); i++ {
		assert.LessOrEqual(t, result.History[i].BestFitness, result.History[i-1].BestFitness, "第 %d 代", i)
	}
	last := result.History[len(result.History)-1]
	assert.LessOrEqual(t, result.Best.Fitness(), last.BestFitness)
}

func TestSchedule_KeepsBestEverWithoutElitism(t *testing.T) {
	params := testParameters()
	params.MaxGenerations = 30
	params.EliteCount = 0
	params.MutationRate = 0.5
	s, err := New(&params, mustProblem(t, domain.DefaultProblemSpec()), WithLogger(quietLogger))
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	lowest := math.Inf(1)
	for _, summary := range result.History {
		lowest = math.Min(lowest, summary.BestFitness)
	}
	assert.LessOrEqual(t, result.Best.Fitness(), lowest)

	// 返回的个体与其评分一致
	ev := NewEvaluator(s.problem).Evaluate(result.Best.Grid())
	assert.Equal(t, ev.Fitness, result.Best.Fitness())
	assert.Equal(t, result.Best.Fitness(), s.Progress().Snapshot().BestFitness)
}

func TestSchedule_HistoryMatchesGenerations(t *testing.T) {
	params := testParameters()
	s, err := New(&params, infeasibleProblem(t), WithLogger(quietLogger))
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	for i, summary := range result.History {
		assert.Equal(t, i, summary.Generation)
		assert.GreaterOrEqual(t, summary.AverageFitness, summary.BestFitness)
	}
}

func TestSchedule_SameSeedSameResult(t *testing.T) {
	problem := mustProblem(t, domain.DefaultProblemSpec())

	run := func(workers int) *Result {
		params := testParameters()
		params.Workers = workers
		s, err := New(&params, problem, WithLogger(quietLogger))
		require.NoError(t, err)
		result, err := s.Schedule(context.Background())
		require.NoError(t, err)
		return result
	}

	first := run(1)
	second := run(1)
	parallel := run(4)

	assert.Equal(t, first.History, second.History)
	assert.True(t, first.Best.Grid().Equal(second.Best.Grid()))
	assert.Equal(t, first.History, parallel.History)
	assert.True(t, first.Best.Grid().Equal(parallel.Best.Grid()))
}

func TestSchedule_ObserverSeesEveryGeneration(t *testing.T) {
	params := testParameters()
	var seen []int
	s, err := New(&params, infeasibleProblem(t),
		WithLogger(quietLogger),
		WithObserver(func(summary domain.GenerationSummary) {
			seen = append(seen, summary.Generation)
		}),
	)
	require.NoError(t, err)

	_, err = s.Schedule(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, params.MaxGenerations)
	for i, g := range seen {
		assert.Equal(t, i, g)
	}
}

func TestSchedule_CancelledBeforeStart(t *testing.T) {
	params := testParameters()
	s, err := New(&params, infeasibleProblem(t), WithLogger(quietLogger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Schedule(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCancelled, result.Status)
	assert.Equal(t, 0, result.Generations)
	require.NotNil(t, result.Best)
	assert.True(t, result.Best.Evaluated())
	assert.Equal(t, StateCancelled, s.State())

	snapshot := s.Progress().Snapshot()
	assert.True(t, snapshot.Completed)
	assert.Equal(t, domain.RunStatusCancelled, snapshot.Status)
}

func TestSchedule_CancelledAtGenerationBoundary(t *testing.T) {
	params := testParameters()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(&params, infeasibleProblem(t),
		WithLogger(quietLogger),
		WithObserver(func(summary domain.GenerationSummary) {
			if summary.Generation == 3 {
				cancel()
			}
		}),
	)
	require.NoError(t, err)

	result, err := s.Schedule(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCancelled, result.Status)
	assert.Equal(t, 4, result.Generations)
}

func TestSchedule_NonFiniteFitnessFails(t *testing.T) {
	problem := mustProblem(t, relaxedSpec(2, 3))
	nan := SoftRule{
		Name: "nan",
		Check: func(*domain.ShiftGrid, *domain.ScheduleProblem, Recorder) float64 {
			return math.NaN()
		},
	}
	params := testParameters()
	s, err := New(&params, problem,
		WithLogger(quietLogger),
		WithEvaluator(NewEvaluatorWithRules(problem, nil, []SoftRule{nan})),
	)
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	assert.Nil(t, result)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 0, runErr.Generation)
	assert.Equal(t, StateFailed, s.State())

	snapshot := s.Progress().Snapshot()
	assert.True(t, snapshot.Completed)
	assert.Equal(t, domain.RunStatusFailed, snapshot.Status)
	require.NotNil(t, snapshot.Error)
}

func TestSchedule_PanicBecomesRunError(t *testing.T) {
	problem := mustProblem(t, relaxedSpec(2, 3))
	boom := HardRule{
		Name: "boom",
		Check: func(*domain.ShiftGrid, *domain.ScheduleProblem, Recorder) int {
			panic("boom")
		},
	}
	params := testParameters()
	s, err := New(&params, problem,
		WithLogger(quietLogger),
		WithEvaluator(NewEvaluatorWithRules(problem, []HardRule{boom}, nil)),
	)
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	assert.Nil(t, result)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Contains(t, runErr.Error(), "boom")
	assert.Equal(t, domain.RunStatusFailed, s.Progress().Snapshot().Status)
}

func TestNew_Rejects(t *testing.T) {
	problem := mustProblem(t, relaxedSpec(2, 3))

	t.Run("参数为空", func(t *testing.T) {
		_, err := New(nil, problem)
		assert.Error(t, err)
	})

	t.Run("问题为空", func(t *testing.T) {
		params := testParameters()
		_, err := New(&params, nil)
		assert.Error(t, err)
	})

	t.Run("参数不合法", func(t *testing.T) {
		params := testParameters()
		params.PopulationSize = 1
		_, err := New(&params, problem)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "populationSize", verr.Field)
	})

	t.Run("初始个体多于种群", func(t *testing.T) {
		params := testParameters()
		params.PopulationSize = 2
		params.EliteCount = 1
		_, err := New(&params, problem, WithSeedGrids(fillGrid(2, 3, O), fillGrid(2, 3, O), fillGrid(2, 3, O)))

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("初始个体尺寸不一致", func(t *testing.T) {
		params := testParameters()
		_, err := New(&params, problem, WithSeedGrids(fillGrid(3, 3, O)))

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestNextGeneration_KeepsPopulationSize(t *testing.T) {
	problem := mustProblem(t, domain.DefaultProblemSpec())

	for _, size := range []int{2, 5, 8, 11} {
		params := testParameters()
		params.PopulationSize = size
		params.EliteCount = 1
		s, err := New(&params, problem, WithLogger(quietLogger))
		require.NoError(t, err)

		pop, err := s.initPopulation()
		require.NoError(t, err)
		sortPopulation(pop)

		next, err := s.nextGeneration(pop)
		require.NoError(t, err)

		assert.Len(t, next, size)
		for _, c := range next {
			assert.True(t, c.Evaluated())
		}
		// 精英是拷贝而不是同一个对象
		assert.NotSame(t, pop[0], next[0])
		assert.NotSame(t, pop[0].Grid(), next[0].Grid())
		assert.True(t, pop[0].Grid().Equal(next[0].Grid()))
		assert.Equal(t, pop[0].Fitness(), next[0].Fitness())
	}
}

func TestSchedule_SeedGridIsNotShared(t *testing.T) {
	problem := mustProblem(t, relaxedSpec(3, 7))
	seed := fillGrid(3, 7, O)
	params := testParameters()

	s, err := New(&params, problem, WithSeedGrids(seed), WithLogger(quietLogger))
	require.NoError(t, err)

	result, err := s.Schedule(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, seed, result.Best.Grid())
	assert.True(t, seed.Equal(fillGrid(3, 7, O)))
}

func TestRunError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := error(&RunError{Generation: 7, Err: inner})

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "7")
}
