package scheduler

import (
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"gonum.org/v1/gonum/stat"
)

const (
	RuleNightThenMorning   = "night_then_morning"
	RuleConsecutiveDays    = "consecutive_days"
	RuleSpecialistCoverage = "specialist_coverage"
	RuleMinimumStaffing    = "minimum_staffing"
	RuleNightShiftCap      = "night_shift_cap"

	RulePreferences    = "preferences"
	RuleWorkloadEquity = "workload_equity"
	RuleNightEquity    = "night_equity"
)

// Recorder 收集违规描述，为 nil 时不记录
// 规则在调用 Recorder 时不得影响自身的计分
type Recorder func(format string, args ...any)

func (r Recorder) add(format string, args ...any) {
	if r != nil {
		r(format, args...)
	}
}

func (r Recorder) enabled() bool {
	return r != nil
}

// HardRule 返回违规次数
type HardRule struct {
	Name  string
	Check func(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) int
}

// SoftRule 返回非负的惩罚值
type SoftRule struct {
	Name  string
	Check func(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) float64
}

func DefaultHardRules() []HardRule {
	return []HardRule{
		{Name: RuleNightThenMorning, Check: checkNightThenMorning},
		{Name: RuleConsecutiveDays, Check: checkConsecutiveDays},
		{Name: RuleSpecialistCoverage, Check: checkSpecialistCoverage},
		{Name: RuleMinimumStaffing, Check: checkMinimumStaffing},
		{Name: RuleNightShiftCap, Check: checkNightShiftCap},
	}
}

func DefaultSoftRules() []SoftRule {
	return []SoftRule{
		{Name: RulePreferences, Check: checkPreferences},
		{Name: RuleWorkloadEquity, Check: checkWorkloadEquity},
		{Name: RuleNightEquity, Check: checkNightEquity},
	}
}

// 夜班之后紧接着第二天早班，只检查相邻的一天
func checkNightThenMorning(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) int {
	violations := 0
	for s := 0; s < g.Staff(); s++ {
		row := g.Row(s)
		for d := 0; d+1 < len(row); d++ {
			if row[d] == domain.ShiftNight && row[d+1] == domain.ShiftMorning {
				violations++
				rec.add("员工 %d: 第 %d 天夜班后第 %d 天早班", s+1, d+1, d+2)
			}
		}
	}
	return violations
}

// 连续上班天数超过上限的每一天都计一次
func checkConsecutiveDays(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) int {
	limit := p.MaxConsecutiveWorkingDays()
	violations := 0
	for s := 0; s < g.Staff(); s++ {
		run, longest := 0, 0
		for _, shift := range g.Row(s) {
			if shift == domain.ShiftOff {
				run = 0
				continue
			}
			run++
			longest = max(longest, run)
			if run > limit {
				violations++
			}
		}
		if longest > limit {
			rec.add("员工 %d: 连续上班 %d 天（上限 %d）", s+1, longest, limit)
		}
	}
	return violations
}

// 有人上班的班次里专科员工不足
func checkSpecialistCoverage(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) int {
	required := p.MinSpecialistsPerOccupiedShift()
	violations := 0
	for d := 0; d < g.Days(); d++ {
		var assigned, specialists [domain.NumShiftTypes]int
		for s := 0; s < g.Staff(); s++ {
			shift := g.At(s, d)
			assigned[shift]++
			if p.IsSpecialist(s) {
				specialists[shift]++
			}
		}
		for _, shift := range domain.WorkingShifts {
			if assigned[shift] > 0 && specialists[shift] < required {
				violations++
				rec.add("第 %d 天%s: %d 人中只有 %d 名专科员工（至少 %d）", d+1, shift, assigned[shift], specialists[shift], required)
			}
		}
	}
	return violations
}

// 每个班次人数低于下限时，按缺口人数计
func checkMinimumStaffing(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) int {
	shortfall := 0
	for d := 0; d < g.Days(); d++ {
		var assigned [domain.NumShiftTypes]int
		for s := 0; s < g.Staff(); s++ {
			assigned[g.At(s, d)]++
		}
		for _, shift := range domain.WorkingShifts {
			if missing := p.MinStaff(shift) - assigned[shift]; missing > 0 {
				shortfall += missing
				rec.add("第 %d 天%s: %d 人（至少 %d）", d+1, shift, assigned[shift], p.MinStaff(shift))
			}
		}
	}
	return shortfall
}

// 夜班总数超过个人上限的部分
func checkNightShiftCap(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) int {
	excess := 0
	for s := 0; s < g.Staff(); s++ {
		nights := g.Count(s, domain.ShiftNight)
		if over := nights - p.NightShiftCap(s); over > 0 {
			excess += over
			rec.add("员工 %d: %d 个夜班（上限 %d）", s+1, nights, p.NightShiftCap(s))
		}
	}
	return excess
}

func checkPreferences(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) float64 {
	violated := 0
	for s := 0; s < g.Staff(); s++ {
		for _, d := range p.PreferredDaysOff(s) {
			if g.At(s, d) != domain.ShiftOff {
				violated++
				rec.add("员工 %d: 希望第 %d 天休息", s+1, d+1)
			}
		}
	}
	return float64(violated)
}

func checkWorkloadEquity(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) float64 {
	worked := make([]float64, g.Staff())
	for s := range worked {
		worked[s] = float64(g.WorkedDays(s))
	}
	dev := popStdDev(worked)
	if rec.enabled() && dev > 0 {
		rec.add("%s", describeSpread("天", worked, dev))
	}
	return dev * p.WorkloadEquityScale()
}

func checkNightEquity(g *domain.ShiftGrid, p *domain.ScheduleProblem, rec Recorder) float64 {
	nights := make([]float64, g.Staff())
	for s := range nights {
		nights[s] = float64(g.Count(s, domain.ShiftNight))
	}
	dev := popStdDev(nights)
	if rec.enabled() && dev > 0 {
		rec.add("%s", describeSpread("个夜班", nights, dev))
	}
	return dev * p.NightEquityScale()
}

// popStdDev 总体标准差；方差因舍入误差出现负数时按 0 处理
func popStdDev(values []float64) float64 {
	variance := stat.PopVariance(values, nil)
	if !(variance > 0) {
		return 0
	}
	return math.Sqrt(variance)
}

func describeSpread(unit string, values []float64, dev float64) string {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return fmt.Sprintf("标准差 %.1f %s（最少 %.0f，最多 %.0f，平均 %.1f）", dev, unit, lo, hi, stat.Mean(values, nil))
}
