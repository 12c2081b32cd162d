package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Collector 记录排班运行相关的 Prometheus 指标
type Collector struct {
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	generations  prometheus.Counter
	activeRuns   prometheus.Gauge
	runDuration  prometheus.Histogram
	bestFitness  prometheus.Histogram
}

// NewCollector 在 reg 上注册指标，reg 为 nil 时使用默认的 registerer
// 已经注册过的指标直接复用
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{}
	var err error

	if c.runsStarted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_runs_started_total",
		Help: "Total number of scheduling runs started",
	})); err != nil {
		return nil, err
	}
	if c.runsFinished, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_finished_total",
		Help: "Total number of scheduling runs finished, by final status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if c.generations, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_generations_total",
		Help: "Total number of generations evaluated across all runs",
	})); err != nil {
		return nil, err
	}
	if c.activeRuns, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_active_runs",
		Help: "Number of scheduling runs currently in progress",
	})); err != nil {
		return nil, err
	}
	if c.runDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_run_duration_seconds",
		Help:    "Wall-clock duration of scheduling runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})); err != nil {
		return nil, err
	}
	if c.bestFitness, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_best_fitness",
		Help:    "Fitness of the best candidate at the end of a run",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})); err != nil {
		return nil, err
	}

	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (c *Collector) RunStarted() {
	c.runsStarted.Inc()
	c.activeRuns.Inc()
}

func (c *Collector) GenerationCompleted() {
	c.generations.Inc()
}

func (c *Collector) RunFinished(status domain.RunStatus, fitness float64, elapsed time.Duration) {
	c.activeRuns.Dec()
	c.runsFinished.WithLabelValues(string(status)).Inc()
	c.runDuration.Observe(elapsed.Seconds())
	// 失败的运行没有有效的 fitness
	if status != domain.RunStatusFailed {
		c.bestFitness.Observe(fitness)
	}
}
