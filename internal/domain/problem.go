package domain

import (
	"math"
	"slices"
)

// ProblemSpec 是构造排班问题所需的原始输入，调用方可以随意修改
// 真正参与计算的是经过校验和深拷贝之后的 ScheduleProblem
type ProblemSpec struct {
	StaffCount                     int
	DayCount                       int
	SpecialistIDs                  []int
	PreferredDaysOff               map[int][]int
	MinStaffPerShift               map[ShiftType]int
	MinSpecialistsPerOccupiedShift int
	MaxConsecutiveWorkingDays      int
	MaxNightShiftsPerStaff         int
	NightShiftCaps                 map[int]int // 按员工覆盖 MaxNightShiftsPerStaff
	MinRestDaysAfterNight          int         // 仅保存，目前没有任何规则使用
	HardWeight                     float64
	SoftWeight                     float64
	WorkloadEquityScale            float64
	NightEquityScale               float64
}

// DefaultProblemSpec 返回一个 10 人 30 天的默认排班问题
func DefaultProblemSpec() ProblemSpec {
	return ProblemSpec{
		StaffCount:    10,
		DayCount:      30,
		SpecialistIDs: []int{0, 1, 2},
		MinStaffPerShift: map[ShiftType]int{
			ShiftMorning:   3,
			ShiftAfternoon: 3,
			ShiftNight:     2,
		},
		MinSpecialistsPerOccupiedShift: 1,
		MaxConsecutiveWorkingDays:      6,
		MaxNightShiftsPerStaff:         8,
		MinRestDaysAfterNight:          1,
		HardWeight:                     1000,
		SoftWeight:                     10,
		WorkloadEquityScale:            3,
		NightEquityScale:               5,
	}
}

// ScheduleProblem 是一次排班运行的不可变配置
// 所有字段都不导出，只能通过 NewScheduleProblem 构造，保证并发运行之间互不影响
type ScheduleProblem struct {
	staffCount                     int
	dayCount                       int
	specialist                     []bool
	specialistIDs                  []int
	preferredDaysOff               [][]int
	minStaffPerShift               [NumShiftTypes]int
	minSpecialistsPerOccupiedShift int
	maxConsecutiveWorkingDays      int
	nightShiftCaps                 []int
	minRestDaysAfterNight          int
	hardWeight                     float64
	softWeight                     float64
	workloadEquityScale            float64
	nightEquityScale               float64
}

// NewScheduleProblem 校验输入并拷贝一份不可变的排班问题
func NewScheduleProblem(spec ProblemSpec) (*ScheduleProblem, error) {
	if spec.StaffCount <= 0 {
		return nil, NewValidationError("staffCount", "员工人数必须为正数，当前为 %d", spec.StaffCount)
	}
	if spec.DayCount <= 0 {
		return nil, NewValidationError("dayCount", "排班天数必须为正数，当前为 %d", spec.DayCount)
	}
	if spec.MinSpecialistsPerOccupiedShift < 0 {
		return nil, NewValidationError("minSpecialistsPerOccupiedShift", "不能为负数")
	}
	if spec.MaxConsecutiveWorkingDays <= 0 {
		return nil, NewValidationError("maxConsecutiveWorkingDays", "必须为正数，当前为 %d", spec.MaxConsecutiveWorkingDays)
	}
	if spec.MaxNightShiftsPerStaff < 0 {
		return nil, NewValidationError("maxNightShiftsPerStaff", "不能为负数")
	}
	if spec.MinRestDaysAfterNight < 0 {
		return nil, NewValidationError("minRestDaysAfterNight", "不能为负数")
	}

	weights := []struct {
		field string
		value float64
	}{
		{"hardWeight", spec.HardWeight},
		{"softWeight", spec.SoftWeight},
		{"workloadEquityScale", spec.WorkloadEquityScale},
		{"nightEquityScale", spec.NightEquityScale},
	}
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
			return nil, NewValidationError(w.field, "必须是非负的有限数，当前为 %v", w.value)
		}
	}

	p := &ScheduleProblem{
		staffCount:                     spec.StaffCount,
		dayCount:                       spec.DayCount,
		specialist:                     make([]bool, spec.StaffCount),
		preferredDaysOff:               make([][]int, spec.StaffCount),
		minSpecialistsPerOccupiedShift: spec.MinSpecialistsPerOccupiedShift,
		maxConsecutiveWorkingDays:      spec.MaxConsecutiveWorkingDays,
		nightShiftCaps:                 make([]int, spec.StaffCount),
		minRestDaysAfterNight:          spec.MinRestDaysAfterNight,
		hardWeight:                     spec.HardWeight,
		softWeight:                     spec.SoftWeight,
		workloadEquityScale:            spec.WorkloadEquityScale,
		nightEquityScale:               spec.NightEquityScale,
	}

	for _, id := range spec.SpecialistIDs {
		if id < 0 || id >= spec.StaffCount {
			return nil, NewValidationError("specialistIds", "员工编号 %d 超出范围 [0, %d)", id, spec.StaffCount)
		}
		p.specialist[id] = true
	}
	for id, isSpecialist := range p.specialist {
		if isSpecialist {
			p.specialistIDs = append(p.specialistIDs, id)
		}
	}

	for staff, days := range spec.PreferredDaysOff {
		if staff < 0 || staff >= spec.StaffCount {
			return nil, NewValidationError("preferences", "员工编号 %d 超出范围 [0, %d)", staff, spec.StaffCount)
		}
		set := make([]int, 0, len(days))
		for _, day := range days {
			if day < 0 || day >= spec.DayCount {
				return nil, NewValidationError("preferences", "员工 %d 的偏好休息日 %d 超出范围 [0, %d)", staff, day, spec.DayCount)
			}
			if !slices.Contains(set, day) {
				set = append(set, day)
			}
		}
		slices.Sort(set)
		p.preferredDaysOff[staff] = set
	}

	for shift, n := range spec.MinStaffPerShift {
		if !shift.IsWorking() || !shift.Valid() {
			return nil, NewValidationError("minStaffPerShift", "班次 %d 不能设置最低人数", shift)
		}
		if n < 0 {
			return nil, NewValidationError("minStaffPerShift", "%s 的最低人数不能为负数", shift)
		}
		p.minStaffPerShift[shift] = n
	}

	for staff := range p.nightShiftCaps {
		p.nightShiftCaps[staff] = spec.MaxNightShiftsPerStaff
	}
	for staff, limit := range spec.NightShiftCaps {
		if staff < 0 || staff >= spec.StaffCount {
			return nil, NewValidationError("nightShiftCaps", "员工编号 %d 超出范围 [0, %d)", staff, spec.StaffCount)
		}
		if limit < 0 {
			return nil, NewValidationError("nightShiftCaps", "员工 %d 的夜班上限不能为负数", staff)
		}
		p.nightShiftCaps[staff] = limit
	}

	return p, nil
}

func (p *ScheduleProblem) StaffCount() int { return p.staffCount }

func (p *ScheduleProblem) DayCount() int { return p.dayCount }

func (p *ScheduleProblem) IsSpecialist(staff int) bool { return p.specialist[staff] }

// SpecialistIDs 返回升序的专科员工编号，调用方不得修改
func (p *ScheduleProblem) SpecialistIDs() []int { return p.specialistIDs }

// PreferredDaysOff 返回员工偏好休息的天（升序去重），调用方不得修改
func (p *ScheduleProblem) PreferredDaysOff(staff int) []int { return p.preferredDaysOff[staff] }

func (p *ScheduleProblem) MinStaff(shift ShiftType) int { return p.minStaffPerShift[shift] }

func (p *ScheduleProblem) MinSpecialistsPerOccupiedShift() int {
	return p.minSpecialistsPerOccupiedShift
}

func (p *ScheduleProblem) MaxConsecutiveWorkingDays() int { return p.maxConsecutiveWorkingDays }

func (p *ScheduleProblem) NightShiftCap(staff int) int { return p.nightShiftCaps[staff] }

func (p *ScheduleProblem) MinRestDaysAfterNight() int { return p.minRestDaysAfterNight }

func (p *ScheduleProblem) HardWeight() float64 { return p.hardWeight }

func (p *ScheduleProblem) SoftWeight() float64 { return p.softWeight }

func (p *ScheduleProblem) WorkloadEquityScale() float64 { return p.workloadEquityScale }

func (p *ScheduleProblem) NightEquityScale() float64 { return p.nightEquityScale }

// CheckGrid 检查排班表的尺寸是否与问题一致
func (p *ScheduleProblem) CheckGrid(g *ShiftGrid) error {
	if g == nil {
		return NewValidationError("grid", "排班表为空")
	}
	if g.Staff() != p.staffCount || g.Days() != p.dayCount {
		return NewValidationError("grid", "排班表尺寸 %d x %d 与问题 %d x %d 不一致", g.Staff(), g.Days(), p.staffCount, p.dayCount)
	}
	return g.Validate()
}
