package runner

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/scheduler"
)

var (
	ErrRunNotFound    = domain.ErrRunNotFound
	ErrRunNotFinished = errors.New("排班运行尚未结束")
	ErrTooManyRuns    = errors.New("正在进行的排班运行过多，请稍后再试")
	ErrShuttingDown   = errors.New("服务正在关闭")
)

// ResultCache 缓存已经结束的运行，未命中时返回 ErrRunNotFound
type ResultCache interface {
	SaveRun(ctx context.Context, run *domain.SchedulingRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*domain.SchedulingRun, error)
}

// Archive 持久化已经结束的运行，未命中时返回 ErrRunNotFound
type Archive interface {
	InsertSchedulingRun(ctx context.Context, run *domain.SchedulingRun) error
	GetSchedulingRun(ctx context.Context, id uuid.UUID, owner string) (*domain.SchedulingRun, error)
	GetSchedulingRunsByOwner(ctx context.Context, owner string) ([]*domain.SchedulingRun, error)
}

type Notifier interface {
	NotifyRunFinished(ctx context.Context, to string, run *domain.SchedulingRun) error
}

type Metrics interface {
	RunStarted()
	GenerationCompleted()
	RunFinished(status domain.RunStatus, fitness float64, elapsed time.Duration)
}

type Option func(*Manager)

func WithResultCache(c ResultCache) Option { return func(m *Manager) { m.cache = c } }

func WithArchive(a Archive) Option { return func(m *Manager) { m.archive = a } }

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notifier = n } }

func WithMetrics(mt Metrics) Option { return func(m *Manager) { m.metrics = mt } }

func WithLogger(logger *slog.Logger) Option { return func(m *Manager) { m.logger = logger } }

// run 是一次正在进行或刚结束的运行；result 只在 done 关闭之后可读
type run struct {
	id          uuid.UUID
	owner       string
	notifyEmail string
	seed        int64
	createdAt   time.Time

	scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
	result    *domain.SchedulingRun
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Manager 管理所有排班运行，每次运行拥有独立的问题、种群和随机数
// 所有查询都以 (owner, id) 为键，不属于调用方的运行一律视为不存在
type Manager struct {
	cfg      *config.SchedulerConfig
	logger   *slog.Logger
	cache    ResultCache
	archive  Archive
	notifier Notifier
	metrics  Metrics

	mu     sync.Mutex
	runs   map[uuid.UUID]*run
	active int
	closed bool
	wg     sync.WaitGroup
}

func NewManager(cfg *config.SchedulerConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: slog.Default(),
		runs:   make(map[uuid.UUID]*run),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start 校验请求并在后台启动一次运行，立即返回运行 ID
// 运行不受 ctx 取消的影响，只能通过 Cancel 或 Shutdown 终止
func (m *Manager) Start(ctx context.Context, owner string, req *domain.RunRequest) (uuid.UUID, error) {
	problem, err := BuildProblem(m.cfg, req)
	if err != nil {
		return uuid.Nil, err
	}
	params, err := BuildParameters(m.cfg, req)
	if err != nil {
		return uuid.Nil, err
	}
	if err := CheckRunSize(m.cfg, problem, &params); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	opts := []scheduler.Option{
		scheduler.WithLogger(m.logger.With("run", id.String())),
	}
	if m.metrics != nil {
		opts = append(opts, scheduler.WithObserver(func(domain.GenerationSummary) {
			m.metrics.GenerationCompleted()
		}))
	}
	sched, err := scheduler.New(&params, problem, opts...)
	if err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return uuid.Nil, ErrShuttingDown
	}
	if m.cfg.MaxActiveRuns > 0 && m.active >= m.cfg.MaxActiveRuns {
		m.mu.Unlock()
		return uuid.Nil, ErrTooManyRuns
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:          id,
		owner:       owner,
		notifyEmail: req.NotifyEmail,
		seed:        params.Seed,
		createdAt:   time.Now(),
		scheduler:   sched,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	m.runs[id] = r
	m.active++
	m.wg.Add(1)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RunStarted()
	}
	m.logger.Info("排班运行已启动",
		"run", id,
		"owner", owner,
		"staffCount", problem.StaffCount(),
		"dayCount", problem.DayCount(),
		"populationSize", params.PopulationSize,
		"maxGenerations", params.MaxGenerations,
		"seed", params.Seed,
	)

	go m.execute(runCtx, r)

	return id, nil
}

func (m *Manager) execute(ctx context.Context, r *run) {
	defer m.wg.Done()
	defer r.cancel()

	start := time.Now()
	result, err := r.scheduler.Schedule(ctx)
	finished := m.buildRun(r, result, err)

	m.mu.Lock()
	r.result = finished
	m.active--
	m.mu.Unlock()
	close(r.done)

	if err != nil {
		m.logger.Error("排班运行失败", "run", r.id, "error", err)
	}
	if m.metrics != nil {
		m.metrics.RunFinished(finished.Status, finished.Fitness, time.Since(start))
	}

	m.publish(finished, r.notifyEmail)

	if retention := time.Duration(m.cfg.ResultRetention) * time.Second; retention > 0 {
		time.AfterFunc(retention, func() { m.forget(r.id) })
	}
}

func (m *Manager) buildRun(r *run, result *scheduler.Result, err error) *domain.SchedulingRun {
	finished := &domain.SchedulingRun{
		ID:         r.id,
		Owner:      r.owner,
		Seed:       r.seed,
		Violations: domain.NewViolations(),
		CreatedAt:  r.createdAt,
		FinishedAt: time.Now(),
	}

	if err != nil {
		msg := err.Error()
		finished.Status = domain.RunStatusFailed
		finished.Error = &msg
		finished.Generations = r.scheduler.Progress().Snapshot().CurrentGeneration
		return finished
	}

	finished.Status = result.Status
	finished.Grid = result.Best.Grid()
	finished.Fitness = result.Best.Fitness()
	finished.HardPenalty = result.Best.HardPenalty()
	finished.SoftPenalty = result.Best.SoftPenalty()
	finished.Generations = result.Generations
	finished.History = result.History
	finished.Violations = result.Violations
	return finished
}

// publish 把结果写入缓存、归档并发送通知；这些都是附带操作，失败只记录日志
func (m *Manager) publish(finished *domain.SchedulingRun, notifyEmail string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(m.cfg.SideEffectTimeout)*time.Second)
	defer cancel()

	if m.cache != nil {
		if err := m.cache.SaveRun(ctx, finished); err != nil {
			m.logger.Error("无法缓存排班结果", "run", finished.ID, "error", err)
		}
	}
	if m.archive != nil {
		if err := m.archive.InsertSchedulingRun(ctx, finished); err != nil {
			m.logger.Error("无法保存排班结果", "run", finished.ID, "error", err)
		}
	}
	if m.notifier != nil && notifyEmail != "" {
		if err := m.notifier.NotifyRunFinished(ctx, notifyEmail, finished); err != nil {
			m.logger.Error("无法发送排班结束通知", "run", finished.ID, "error", err)
		}
	}
}

func (m *Manager) forget(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, id)
}

func (m *Manager) lookup(owner string, id uuid.UUID) (*run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.owner != owner {
		return nil, false
	}
	return r, true
}

// Progress 读取运行的最新进度，只查询内存中的运行
func (m *Manager) Progress(owner string, id uuid.UUID) (domain.ProgressSnapshot, error) {
	r, ok := m.lookup(owner, id)
	if !ok {
		return domain.ProgressSnapshot{}, ErrRunNotFound
	}
	return r.scheduler.Progress().Snapshot(), nil
}

// Result 依次从内存、缓存、归档中查找运行结果
func (m *Manager) Result(ctx context.Context, owner string, id uuid.UUID) (*domain.SchedulingRun, error) {
	if r, ok := m.lookup(owner, id); ok {
		if !r.finished() {
			return nil, ErrRunNotFinished
		}
		return r.result, nil
	}

	if m.cache != nil {
		cached, err := m.cache.GetRun(ctx, id)
		switch {
		case err == nil && cached.Owner == owner:
			return cached, nil
		case err == nil, errors.Is(err, ErrRunNotFound):
		default:
			m.logger.Warn("读取排班结果缓存失败", "run", id, "error", err)
		}
	}

	if m.archive != nil {
		archived, err := m.archive.GetSchedulingRun(ctx, id, owner)
		if err != nil {
			return nil, err
		}
		return archived, nil
	}

	return nil, ErrRunNotFound
}

// Cancel 请求取消运行，运行会在当前这一代结束后停止；已经结束的运行不受影响
func (m *Manager) Cancel(owner string, id uuid.UUID) error {
	r, ok := m.lookup(owner, id)
	if !ok {
		return ErrRunNotFound
	}
	r.cancel()
	return nil
}

// List 返回调用方的所有运行，按创建时间倒序
// 正在进行的运行只有状态和 ID，不包含排班表
func (m *Manager) List(ctx context.Context, owner string) ([]*domain.SchedulingRun, error) {
	var runs []*domain.SchedulingRun
	seen := make(map[uuid.UUID]bool)

	m.mu.Lock()
	for _, r := range m.runs {
		if r.owner != owner {
			continue
		}
		seen[r.id] = true
		if r.result != nil {
			runs = append(runs, r.result)
			continue
		}
		snapshot := r.scheduler.Progress().Snapshot()
		runs = append(runs, &domain.SchedulingRun{
			ID:          r.id,
			Owner:       r.owner,
			Status:      snapshot.Status,
			Fitness:     snapshot.BestFitness,
			HardPenalty: snapshot.HardPenalty,
			SoftPenalty: snapshot.SoftPenalty,
			Generations: snapshot.CurrentGeneration,
			Seed:        r.seed,
			CreatedAt:   r.createdAt,
		})
	}
	m.mu.Unlock()

	if m.archive != nil {
		archived, err := m.archive.GetSchedulingRunsByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		for _, a := range archived {
			if !seen[a.ID] {
				runs = append(runs, a)
			}
		}
	}

	slices.SortFunc(runs, func(a, b *domain.SchedulingRun) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return runs, nil
}

// Shutdown 取消所有运行并等待它们结束（包括结果的缓存和归档）
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, r := range m.runs {
		r.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
