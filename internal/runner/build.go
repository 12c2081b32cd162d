package runner

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/scheduler"
)

// BuildProblem 由请求和默认配置构造排班问题
func BuildProblem(cfg *config.SchedulerConfig, req *domain.RunRequest) (*domain.ScheduleProblem, error) {
	staff := orDefault(req.StaffCount, cfg.StaffCount)
	days := orDefault(req.DayCount, cfg.DayCount)

	specialists := req.SpecialistIDs
	if specialists == nil {
		// 默认的专科员工只保留在人数范围内的部分
		for _, id := range cfg.SpecialistIDs {
			if id >= 0 && id < staff {
				specialists = append(specialists, id)
			}
		}
	}

	var preferences map[int][]int
	if len(req.Preferences) > 0 {
		preferences = make(map[int][]int, len(req.Preferences))
		for _, item := range req.Preferences {
			preferences[item.Staff] = append(preferences[item.Staff], item.Days...)
		}
	}

	minStaff := map[domain.ShiftType]int{
		domain.ShiftMorning:   cfg.MinStaffMorning,
		domain.ShiftAfternoon: cfg.MinStaffAfternoon,
		domain.ShiftNight:     cfg.MinStaffNight,
	}
	for shift, n := range req.MinStaffPerShift {
		minStaff[shift] = n
	}

	return domain.NewScheduleProblem(domain.ProblemSpec{
		StaffCount:                     staff,
		DayCount:                       days,
		SpecialistIDs:                  specialists,
		PreferredDaysOff:               preferences,
		MinStaffPerShift:               minStaff,
		MinSpecialistsPerOccupiedShift: cfg.MinSpecialistsPerOccupiedShift,
		MaxConsecutiveWorkingDays:      cfg.MaxConsecutiveWorkingDays,
		MaxNightShiftsPerStaff:         cfg.MaxNightShiftsPerStaff,
		NightShiftCaps:                 req.NightShiftCaps,
		MinRestDaysAfterNight:          cfg.MinRestDaysAfterNight,
		HardWeight:                     cfg.HardWeight,
		SoftWeight:                     cfg.SoftWeight,
		WorkloadEquityScale:            cfg.WorkloadEquityScale,
		NightEquityScale:               cfg.NightEquityScale,
	})
}

// BuildParameters 由请求和默认配置构造算法参数；未指定随机数种子时使用当前时间
func BuildParameters(cfg *config.SchedulerConfig, req *domain.RunRequest) (scheduler.Parameters, error) {
	params := scheduler.Parameters{
		PopulationSize:          orDefault(req.PopulationSize, cfg.PopulationSize),
		MaxGenerations:          orDefault(req.MaxGenerations, cfg.MaxGenerations),
		CrossoverRate:           cfg.CrossoverRate,
		MutationRate:            cfg.MutationRate,
		GuidedMutationRate:      cfg.GuidedMutationRate,
		EliteCount:              cfg.EliteCount,
		TournamentSize:          orDefault(req.TournamentSize, cfg.TournamentSize),
		SoftAcceptanceThreshold: cfg.SoftAcceptanceThreshold,
		Crossover:               scheduler.CrossoverStrategy(orDefault(req.Crossover, cfg.Crossover)),
		Init: scheduler.InitDistribution{
			Kind:           scheduler.InitKind(orDefault(req.InitDistribution, cfg.InitDistribution)),
			OffProbability: cfg.OffProbability,
		},
		Workers: cfg.Workers,
	}
	if req.CrossoverRate != nil {
		params.CrossoverRate = *req.CrossoverRate
	}
	if req.MutationRate != nil {
		params.MutationRate = *req.MutationRate
	}
	if req.EliteCount != nil {
		params.EliteCount = *req.EliteCount
	}
	if req.GuidedMutationRate != nil {
		params.GuidedMutationRate = *req.GuidedMutationRate
	}
	if req.OffProbability != nil {
		params.Init.OffProbability = *req.OffProbability
	}
	if req.Seed != nil {
		params.Seed = *req.Seed
	} else {
		params.Seed = time.Now().UnixNano()
	}

	if err := params.Validate(); err != nil {
		return scheduler.Parameters{}, err
	}
	return params, nil
}

// CheckRunSize 限制一次运行的种群规模（种群大小 × 员工数 × 天数）
// 每一代都会同时持有新旧两代种群，规模过大时直接拒绝
func CheckRunSize(cfg *config.SchedulerConfig, problem *domain.ScheduleProblem, params *scheduler.Parameters) error {
	if cfg.MaxPopulationCells <= 0 {
		return nil
	}

	cells := int64(params.PopulationSize) * int64(problem.StaffCount()) * int64(problem.DayCount())
	if cells > cfg.MaxPopulationCells {
		return domain.NewValidationError("populationSize",
			"种群规模 %d × %d 名员工 × %d 天超过了上限 %d 个格子",
			params.PopulationSize, problem.StaffCount(), problem.DayCount(), cfg.MaxPopulationCells)
	}
	return nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
