package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

const (
	O = domain.ShiftOff
	M = domain.ShiftMorning
	A = domain.ShiftAfternoon
	N = domain.ShiftNight
)

// relaxedSpec 没有最低人数和专科要求，便于单独测试某一条规则
func relaxedSpec(staff, days int) domain.ProblemSpec {
	return domain.ProblemSpec{
		StaffCount:                staff,
		DayCount:                  days,
		MaxConsecutiveWorkingDays: 6,
		MaxNightShiftsPerStaff:    8,
		HardWeight:                100,
		SoftWeight:                1,
		WorkloadEquityScale:       3,
		NightEquityScale:          5,
	}
}

func mustProblem(t *testing.T, spec domain.ProblemSpec) *domain.ScheduleProblem {
	t.Helper()
	p, err := domain.NewScheduleProblem(spec)
	require.NoError(t, err)
	return p
}

func mustGrid(t *testing.T, rows [][]domain.ShiftType) *domain.ShiftGrid {
	t.Helper()
	g, err := domain.ShiftGridFromRows(rows)
	require.NoError(t, err)
	return g
}

func fillGrid(staff, days int, shift domain.ShiftType) *domain.ShiftGrid {
	g := domain.NewShiftGrid(staff, days)
	for s := 0; s < staff; s++ {
		for d := 0; d < days; d++ {
			g.Set(s, d, shift)
		}
	}
	return g
}

func testParameters() Parameters {
	p := DefaultParameters()
	p.PopulationSize = 20
	p.MaxGenerations = 15
	p.Seed = 42
	return p
}
