package repository

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestScanSchedulingRun(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	violations := domain.NewViolations()
	violations.Hard["night_then_morning"] = []string{"员工 1: 第 1 天夜班后第 2 天早班"}

	row := fakeRow{values: []any{
		id,
		"alice",
		"exhausted",
		[]byte(`[[3,1,0],[0,0,0]]`),
		1030.0,
		1,
		3.0,
		300,
		int64(42),
		mustJSON(t, []domain.GenerationSummary{{Generation: 0, BestFitness: 1030}}),
		mustJSON(t, violations),
		sql.NullString{},
		created,
		created.Add(time.Minute),
	}}

	run, err := scanSchedulingRun(row)
	require.NoError(t, err)

	assert.Equal(t, id, run.ID)
	assert.Equal(t, domain.RunStatusExhausted, run.Status)
	require.NotNil(t, run.Grid)
	assert.Equal(t, domain.ShiftNight, run.Grid.At(0, 0))
	assert.Equal(t, 3, run.Grid.Days())
	assert.Equal(t, int64(42), run.Seed)
	assert.Len(t, run.History, 1)
	assert.Equal(t, violations, run.Violations)
	assert.Nil(t, run.Error)
	assert.Equal(t, created.Add(time.Minute), run.FinishedAt)
}

func TestScanSchedulingRun_FailedRunWithoutGrid(t *testing.T) {
	row := fakeRow{values: []any{
		uuid.New(),
		"alice",
		"failed",
		[]byte(nil),
		0.0,
		0,
		0.0,
		3,
		int64(1),
		[]byte(`null`),
		mustJSON(t, domain.NewViolations()),
		sql.NullString{String: "第 3 代运行失败: panic", Valid: true},
		time.Now(),
		time.Now(),
	}}

	run, err := scanSchedulingRun(row)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Nil(t, run.Grid)
	assert.Empty(t, run.History)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "panic")
}

func TestScanSchedulingRun_PropagatesScanError(t *testing.T) {
	_, err := scanSchedulingRun(fakeRow{err: sql.ErrNoRows})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunCacheKey(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	assert.Equal(t, "scheduling_run_7d444840-9dc0-11d1-b245-5ffdce74fad2", runCacheKey(id))
}
