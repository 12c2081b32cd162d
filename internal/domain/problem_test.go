package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduleProblem_Default(t *testing.T) {
	p, err := NewScheduleProblem(DefaultProblemSpec())
	require.NoError(t, err)

	assert.Equal(t, 10, p.StaffCount())
	assert.Equal(t, 30, p.DayCount())
	assert.Equal(t, []int{0, 1, 2}, p.SpecialistIDs())
	assert.True(t, p.IsSpecialist(2))
	assert.False(t, p.IsSpecialist(3))
	assert.Equal(t, 3, p.MinStaff(ShiftMorning))
	assert.Equal(t, 2, p.MinStaff(ShiftNight))
	assert.Equal(t, 0, p.MinStaff(ShiftOff))
	assert.Equal(t, 8, p.NightShiftCap(9))
	assert.Equal(t, 1000.0, p.HardWeight())
	assert.Equal(t, 10.0, p.SoftWeight())
}

func TestNewScheduleProblem_CopiesInput(t *testing.T) {
	spec := DefaultProblemSpec()
	spec.PreferredDaysOff = map[int][]int{4: {7, 2, 7}}
	spec.NightShiftCaps = map[int]int{1: 3}

	p, err := NewScheduleProblem(spec)
	require.NoError(t, err)

	spec.SpecialistIDs[0] = 9
	spec.PreferredDaysOff[4][0] = 20
	spec.NightShiftCaps[1] = 0

	assert.Equal(t, []int{0, 1, 2}, p.SpecialistIDs())
	assert.Equal(t, []int{2, 7}, p.PreferredDaysOff(4))
	assert.Empty(t, p.PreferredDaysOff(5))
	assert.Equal(t, 3, p.NightShiftCap(1))
	assert.Equal(t, 8, p.NightShiftCap(0))
}

func TestNewScheduleProblem_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *ProblemSpec)
		field  string
	}{
		{"员工人数为 0", func(s *ProblemSpec) { s.StaffCount = 0 }, "staffCount"},
		{"天数为负数", func(s *ProblemSpec) { s.DayCount = -1 }, "dayCount"},
		{"专科编号越界", func(s *ProblemSpec) { s.SpecialistIDs = []int{10} }, "specialistIds"},
		{"偏好员工越界", func(s *ProblemSpec) { s.PreferredDaysOff = map[int][]int{-1: {0}} }, "preferences"},
		{"偏好日期越界", func(s *ProblemSpec) { s.PreferredDaysOff = map[int][]int{0: {30}} }, "preferences"},
		{"休息不能设最低人数", func(s *ProblemSpec) { s.MinStaffPerShift = map[ShiftType]int{ShiftOff: 1} }, "minStaffPerShift"},
		{"最低人数为负数", func(s *ProblemSpec) { s.MinStaffPerShift = map[ShiftType]int{ShiftNight: -1} }, "minStaffPerShift"},
		{"连续上班上限为 0", func(s *ProblemSpec) { s.MaxConsecutiveWorkingDays = 0 }, "maxConsecutiveWorkingDays"},
		{"夜班上限为负数", func(s *ProblemSpec) { s.NightShiftCaps = map[int]int{0: -2} }, "nightShiftCaps"},
		{"权重为 NaN", func(s *ProblemSpec) { s.HardWeight = math.NaN() }, "hardWeight"},
		{"权重为无穷大", func(s *ProblemSpec) { s.SoftWeight = math.Inf(1) }, "softWeight"},
		{"系数为负数", func(s *ProblemSpec) { s.NightEquityScale = -1 }, "nightEquityScale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultProblemSpec()
			tt.modify(&spec)

			_, err := NewScheduleProblem(spec)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestScheduleProblem_CheckGrid(t *testing.T) {
	spec := DefaultProblemSpec()
	spec.StaffCount, spec.DayCount = 2, 3
	spec.SpecialistIDs = []int{0}
	p, err := NewScheduleProblem(spec)
	require.NoError(t, err)

	assert.NoError(t, p.CheckGrid(NewShiftGrid(2, 3)))
	assert.Error(t, p.CheckGrid(NewShiftGrid(3, 2)))
	assert.Error(t, p.CheckGrid(nil))
}

func TestProgressSnapshot_Percentage(t *testing.T) {
	assert.Equal(t, 25.0, ProgressSnapshot{CurrentGeneration: 50, MaxGenerations: 200}.Percentage())
	assert.Equal(t, 0.0, ProgressSnapshot{}.Percentage())
}

func TestSchedulingRun_Acceptable(t *testing.T) {
	assert.True(t, (&SchedulingRun{Status: RunStatusExhausted}).Acceptable())
	assert.False(t, (&SchedulingRun{Status: RunStatusConverged, HardPenalty: 1}).Acceptable())
	assert.False(t, (&SchedulingRun{Status: RunStatusFailed}).Acceptable())
}
