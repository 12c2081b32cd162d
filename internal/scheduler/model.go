package scheduler

import (
	"fmt"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Candidate: 一个个体，持有一张排班表以及缓存的评分
// 评分只在 evaluate 之后有效，任何对排班表的修改都会使其失效
type Candidate struct {
	grid        *domain.ShiftGrid
	hardPenalty int
	softPenalty float64
	fitness     float64
	evaluated   bool
}

// NewCandidate 包装一张排班表，调用方之后不应再修改该排班表
func NewCandidate(grid *domain.ShiftGrid) *Candidate {
	return &Candidate{grid: grid}
}

func (c *Candidate) Grid() *domain.ShiftGrid { return c.grid }
func (c *Candidate) HardPenalty() int        { return c.hardPenalty }
func (c *Candidate) SoftPenalty() float64    { return c.softPenalty }
func (c *Candidate) Fitness() float64        { return c.fitness }
func (c *Candidate) Evaluated() bool         { return c.evaluated }

func (c *Candidate) evaluate(e *Evaluator) {
	ev := e.Evaluate(c.grid)
	c.hardPenalty = ev.HardPenalty
	c.softPenalty = ev.SoftPenalty
	c.fitness = ev.Fitness
	c.evaluated = true
}

func (c *Candidate) invalidate() {
	c.evaluated = false
}

// clone 深拷贝排班表，评分一并复制（用于精英保留）
func (c *Candidate) clone() *Candidate {
	return &Candidate{
		grid:        c.grid.Clone(),
		hardPenalty: c.hardPenalty,
		softPenalty: c.softPenalty,
		fitness:     c.fitness,
		evaluated:   c.evaluated,
	}
}

type CrossoverStrategy string

const (
	CrossoverCellUniform CrossoverStrategy = "cell"
	CrossoverDayUniform  CrossoverStrategy = "day"
)

type InitKind string

const (
	InitUniform     InitKind = "uniform"
	InitWeightedOff InitKind = "weighted_off"
)

// InitDistribution 描述初始种群中每个格子的抽样分布
type InitDistribution struct {
	Kind           InitKind
	OffProbability float64 // 仅 InitWeightedOff 时使用
}

// 遗传算法参数
type Parameters struct {
	PopulationSize          int               // 种群大小
	MaxGenerations          int               // 最大迭代次数
	CrossoverRate           float64           // 交叉概率
	MutationRate            float64           // 每个格子的随机变异概率
	GuidedMutationRate      float64           // 每个个体触发修复变异的概率
	EliteCount              int               // 精英数量
	TournamentSize          int               // 锦标赛规模
	SoftAcceptanceThreshold float64           // 软约束惩罚低于该值且无硬约束违规时提前结束
	Crossover               CrossoverStrategy // 交叉策略
	Init                    InitDistribution  // 初始化分布
	Seed                    int64             // 随机数种子
	Workers                 int               // 并行评估的 goroutine 数，<= 1 表示串行
}

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:          150,
		MaxGenerations:          300,
		CrossoverRate:           0.8,
		MutationRate:            0.03,
		GuidedMutationRate:      0.1,
		EliteCount:              2,
		TournamentSize:          3,
		SoftAcceptanceThreshold: 20,
		Crossover:               CrossoverCellUniform,
		Init: InitDistribution{
			Kind:           InitWeightedOff,
			OffProbability: 0.3,
		},
		Workers: 1,
	}
}

func (p *Parameters) Validate() error {
	if p.PopulationSize < 2 {
		return domain.NewValidationError("populationSize", "种群大小至少为 2，当前为 %d", p.PopulationSize)
	}
	if p.MaxGenerations <= 0 {
		return domain.NewValidationError("maxGenerations", "最大迭代次数必须为正数，当前为 %d", p.MaxGenerations)
	}
	if p.EliteCount < 0 || p.EliteCount >= p.PopulationSize {
		return domain.NewValidationError("elitismCount", "精英数量必须在 [0, %d) 之间，当前为 %d", p.PopulationSize, p.EliteCount)
	}
	if p.TournamentSize <= 0 {
		return domain.NewValidationError("tournamentSize", "锦标赛规模必须为正数，当前为 %d", p.TournamentSize)
	}

	rates := []struct {
		field string
		value float64
	}{
		{"pCrossover", p.CrossoverRate},
		{"pMutation", p.MutationRate},
		{"pGuided", p.GuidedMutationRate},
	}
	for _, r := range rates {
		if !(r.value >= 0 && r.value <= 1) {
			return domain.NewValidationError(r.field, "概率必须在 [0, 1] 之间，当前为 %v", r.value)
		}
	}

	if !(p.SoftAcceptanceThreshold >= 0) {
		return domain.NewValidationError("softAcceptanceThreshold", "不能为负数")
	}

	switch p.Crossover {
	case CrossoverCellUniform, CrossoverDayUniform:
	default:
		return domain.NewValidationError("crossover", "未知的交叉策略 %q", p.Crossover)
	}

	switch p.Init.Kind {
	case InitUniform:
	case InitWeightedOff:
		if !(p.Init.OffProbability >= 0 && p.Init.OffProbability <= 1) {
			return domain.NewValidationError("offProbability", "概率必须在 [0, 1] 之间，当前为 %v", p.Init.OffProbability)
		}
	default:
		return domain.NewValidationError("initDistribution", "未知的初始化分布 %q", p.Init.Kind)
	}

	return nil
}

// RunError 表示某一代运行过程中出现的意外错误，整个运行直接终止
type RunError struct {
	Generation int
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("第 %d 代运行失败: %v", e.Generation, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
