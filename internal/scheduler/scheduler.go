package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// State 是演化过程所处的阶段
type State string

const (
	StateInitializing State = "initializing"
	StateEvaluating   State = "evaluating"
	StateSelecting    State = "selecting"
	StateConverged    State = "converged"
	StateExhausted    State = "exhausted"
	StateCancelled    State = "cancelled"
	StateFailed       State = "failed"
)

// 每隔多少代输出一次进度日志
const logEvery = 50

type Scheduler struct {
	parameters *Parameters
	problem    *domain.ScheduleProblem
	evaluator  *Evaluator
	rng        *rand.Rand
	seeds      []*domain.ShiftGrid
	progress   *Progress
	observer   func(domain.GenerationSummary)
	logger     *slog.Logger

	state atomic.Value // State
	idx   []int        // 锦标赛抽样用的下标排列
}

type Option func(*Scheduler)

// WithSeedGrids 把给定的排班表放入初始种群（排在随机个体之前）
func WithSeedGrids(grids ...*domain.ShiftGrid) Option {
	return func(s *Scheduler) {
		s.seeds = append(s.seeds, grids...)
	}
}

func WithProgress(p *Progress) Option {
	return func(s *Scheduler) {
		s.progress = p
	}
}

// WithObserver 每完成一代调用一次，在运行所在的 goroutine 中同步执行
func WithObserver(fn func(domain.GenerationSummary)) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithEvaluator(e *Evaluator) Option {
	return func(s *Scheduler) {
		s.evaluator = e
	}
}

// Result 是一次运行的最终结果
type Result struct {
	Best        *Candidate
	Status      domain.RunStatus
	Generations int
	History     []domain.GenerationSummary
	Violations  domain.Violations
}

func New(parameters *Parameters, problem *domain.ScheduleProblem, opts ...Option) (*Scheduler, error) {
	if parameters == nil {
		return nil, errors.New("算法参数不能为空")
	}
	if problem == nil {
		return nil, errors.New("排班问题不能为空")
	}
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		parameters: parameters,
		problem:    problem,
		rng:        rand.New(rand.NewSource(parameters.Seed)),
		logger:     slog.Default(),
		idx:        identityIndex(parameters.PopulationSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.evaluator == nil {
		s.evaluator = NewEvaluator(problem)
	}
	if s.progress == nil {
		s.progress = NewProgress(parameters.MaxGenerations)
	}

	if len(s.seeds) > parameters.PopulationSize {
		return nil, domain.NewValidationError("seeds", "初始个体数量 %d 超过了种群大小 %d", len(s.seeds), parameters.PopulationSize)
	}
	for _, g := range s.seeds {
		if err := problem.CheckGrid(g); err != nil {
			return nil, err
		}
	}

	s.setState(StateInitializing)
	return s, nil
}

func (s *Scheduler) Progress() *Progress {
	return s.progress
}

func (s *Scheduler) State() State {
	return s.state.Load().(State)
}

func (s *Scheduler) setState(state State) {
	s.state.Store(state)
}

// Schedule 运行遗传算法直到收敛、达到最大代数或 ctx 被取消
// 取消只在每一代开始时检查，此时返回目前为止的最优个体
func (s *Scheduler) Schedule(ctx context.Context) (result *Result, err error) {
	generation := 0

	defer func() {
		if r := recover(); r != nil {
			err = &RunError{Generation: generation, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			result = nil
			s.setState(StateFailed)
			s.progress.Fail(err)
		}
	}()

	// 生成初始种群
	s.setState(StateInitializing)
	pop, err := s.initPopulation()
	if err != nil {
		return nil, err
	}

	history := make([]domain.GenerationSummary, 0, s.parameters.MaxGenerations)
	status := domain.RunStatusExhausted

	// 历史最优个体；精英数量为 0 时它可能已经不在当前种群中
	var bestEver *Candidate

	for generation = 0; generation < s.parameters.MaxGenerations; generation++ {
		if ctx.Err() != nil {
			status = domain.RunStatusCancelled
			break
		}

		s.setState(StateEvaluating)
		sortPopulation(pop)
		bestEver = keepBest(bestEver, pop[0])

		summary := summarize(generation, pop)
		history = append(history, summary)
		s.publish(summary, domain.RunStatusRunning)
		if s.observer != nil {
			s.observer(summary)
		}
		if generation%logEvery == 0 {
			s.logger.Info("排班进度",
				"generation", generation,
				"bestFitness", summary.BestFitness,
				"hardPenalty", summary.HardPenalty,
				"softPenalty", summary.SoftPenalty,
			)
		}

		// 没有硬约束违规且软约束惩罚足够小，提前结束
		best := pop[0]
		if best.hardPenalty == 0 && best.softPenalty < s.parameters.SoftAcceptanceThreshold {
			status = domain.RunStatusConverged
			break
		}

		s.setState(StateSelecting)
		pop, err = s.nextGeneration(pop)
		if err != nil {
			return nil, &RunError{Generation: generation, Err: err}
		}
	}

	// 达到最大代数时最后一代还没有排序，也要参与比较
	sortPopulation(pop)
	best := keepBest(bestEver, pop[0])
	detailed := s.evaluator.EvaluateDetailed(best.grid)

	result = &Result{
		Best:        best,
		Status:      status,
		Generations: len(history),
		History:     history,
		Violations:  *detailed.Violations,
	}

	switch status {
	case domain.RunStatusConverged:
		s.setState(StateConverged)
	case domain.RunStatusCancelled:
		s.setState(StateCancelled)
	default:
		s.setState(StateExhausted)
	}

	final := summarize(len(history), pop)
	final.BestFitness = best.fitness
	final.HardPenalty = best.hardPenalty
	final.SoftPenalty = best.softPenalty
	s.publishFinal(final, status)

	s.logger.Info("排班结束",
		"status", status,
		"generations", len(history),
		"fitness", best.fitness,
		"hardPenalty", best.hardPenalty,
		"softPenalty", best.softPenalty,
	)

	return result, nil
}

func (s *Scheduler) initPopulation() ([]*Candidate, error) {
	size := s.parameters.PopulationSize
	pop := make([]*Candidate, 0, size)

	for _, g := range s.seeds {
		pop = append(pop, NewCandidate(g.Clone()))
	}
	for len(pop) < size {
		g := randomGrid(s.problem.StaffCount(), s.problem.DayCount(), s.parameters.Init, s.rng)
		pop = append(pop, NewCandidate(g))
	}

	if err := s.evaluateAll(pop); err != nil {
		return nil, &RunError{Generation: 0, Err: err}
	}
	return pop, nil
}

// nextGeneration 产生下一代：精英直接复制，其余由锦标赛选择、交叉、变异得到
// pop 必须已经按 fitness 升序排好
func (s *Scheduler) nextGeneration(pop []*Candidate) ([]*Candidate, error) {
	size := s.parameters.PopulationSize
	elites := s.parameters.EliteCount

	next := make([]*Candidate, 0, size)
	for _, elite := range pop[:elites] {
		next = append(next, elite.clone())
	}

	for len(next) < size {
		p1 := tournamentSelect(pop, s.parameters.TournamentSize, s.rng, s.idx)
		p2 := tournamentSelect(pop, s.parameters.TournamentSize, s.rng, s.idx)

		c1, c2 := s.reproduce(p1, p2)

		next = append(next, c1)
		// 种群大小为奇数时丢弃多出来的一个子代
		if len(next) < size {
			next = append(next, c2)
		}
	}

	if err := s.evaluateAll(next[elites:]); err != nil {
		return nil, err
	}
	return next, nil
}

// evaluateAll 评估一批个体；Evaluator 是纯函数且每个个体只写自己的字段，所以可以并行
// 所有随机数都在评估之前抽取完毕，并行与否不影响结果
func (s *Scheduler) evaluateAll(batch []*Candidate) error {
	if s.parameters.Workers <= 1 || len(batch) < 2 {
		for _, c := range batch {
			c.evaluate(s.evaluator)
		}
	} else {
		p := pool.New().WithMaxGoroutines(s.parameters.Workers)
		for _, c := range batch {
			c := c
			p.Go(func() {
				c.evaluate(s.evaluator)
			})
		}
		p.Wait()
	}

	for _, c := range batch {
		if math.IsNaN(c.fitness) || math.IsInf(c.fitness, 0) {
			return fmt.Errorf("fitness 不是有限数: %v", c.fitness)
		}
	}
	return nil
}

// keepBest 返回两者中 fitness 更小的一个；新的更优时保存其副本，之后对种群的修改不会影响它
func keepBest(best, candidate *Candidate) *Candidate {
	if best == nil || candidate.fitness < best.fitness {
		return candidate.clone()
	}
	return best
}

func sortPopulation(pop []*Candidate) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].fitness < pop[j].fitness
	})
}

func summarize(generation int, pop []*Candidate) domain.GenerationSummary {
	best := pop[0]
	total := 0.0
	for _, c := range pop {
		total += c.fitness
	}

	return domain.GenerationSummary{
		Generation:     generation,
		BestFitness:    best.fitness,
		AverageFitness: total / float64(len(pop)),
		HardPenalty:    best.hardPenalty,
		SoftPenalty:    best.softPenalty,
	}
}

func (s *Scheduler) publish(summary domain.GenerationSummary, status domain.RunStatus) {
	s.progress.publish(domain.ProgressSnapshot{
		CurrentGeneration: summary.Generation + 1,
		MaxGenerations:    s.parameters.MaxGenerations,
		BestFitness:       summary.BestFitness,
		HardPenalty:       summary.HardPenalty,
		SoftPenalty:       summary.SoftPenalty,
		Status:            status,
	})
}

func (s *Scheduler) publishFinal(summary domain.GenerationSummary, status domain.RunStatus) {
	s.progress.publish(domain.ProgressSnapshot{
		CurrentGeneration: summary.Generation,
		MaxGenerations:    s.parameters.MaxGenerations,
		BestFitness:       summary.BestFitness,
		HardPenalty:       summary.HardPenalty,
		SoftPenalty:       summary.SoftPenalty,
		Status:            status,
		Completed:         true,
	})
}
