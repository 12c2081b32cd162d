package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusConverged RunStatus = "converged"
	RunStatusExhausted RunStatus = "exhausted"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	return s != RunStatusRunning
}

// GenerationSummary 是 RunHistory 中的一项，每完成一代追加一项
type GenerationSummary struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"bestFitness"`
	AverageFitness float64 `json:"averageFitness"`
	HardPenalty    int     `json:"hardPenalty"`
	SoftPenalty    float64 `json:"softPenalty"`
}

// Violations 按规则名称归类的违规描述
type Violations struct {
	Hard map[string][]string `json:"hard"`
	Soft map[string][]string `json:"soft"`
}

func NewViolations() Violations {
	return Violations{
		Hard: make(map[string][]string),
		Soft: make(map[string][]string),
	}
}

// PreferenceItem 对应请求中的 (staffIndex, [dayIndices])
type PreferenceItem struct {
	Staff int   `json:"staff" validate:"min=0"`
	Days  []int `json:"days" validate:"dive,min=0"`
}

// RunRequest 为启动一次排班运行所需的全部输入
// 可选字段为零值时使用服务端配置的默认值；0 本身有意义的字段用指针，nil 才表示未指定
type RunRequest struct {
	PopulationSize int              `json:"populationSize" validate:"omitempty,min=2,max=5000"`
	MaxGenerations int              `json:"maxGenerations" validate:"omitempty,min=1,max=100000"`
	CrossoverRate  *float64         `json:"pCrossover" validate:"omitempty,min=0,max=1"`
	MutationRate   *float64         `json:"pMutation" validate:"omitempty,min=0,max=1"`
	EliteCount     *int             `json:"elitismCount" validate:"omitempty,min=0"`
	StaffCount     int              `json:"staffCount" validate:"omitempty,min=1,max=1000"`
	DayCount       int              `json:"dayCount" validate:"omitempty,min=1,max=366"`
	Preferences    []PreferenceItem `json:"preferences" validate:"dive"`
	SpecialistIDs  []int            `json:"specialistIds" validate:"dive,min=0"`

	GuidedMutationRate *float64          `json:"pGuided,omitempty" validate:"omitempty,min=0,max=1"`
	TournamentSize     int               `json:"tournamentSize,omitempty" validate:"omitempty,min=1"`
	Crossover          string            `json:"crossover,omitempty" validate:"omitempty,oneof=cell day"`
	InitDistribution   string            `json:"initDistribution,omitempty" validate:"omitempty,oneof=uniform weighted_off"`
	OffProbability     *float64          `json:"offProbability,omitempty" validate:"omitempty,min=0,max=1"`
	Seed               *int64            `json:"seed,omitempty"`
	MinStaffPerShift   map[ShiftType]int `json:"minStaffPerShift,omitempty" validate:"dive,min=0"`
	NightShiftCaps     map[int]int       `json:"nightShiftCaps,omitempty" validate:"dive,min=0"`
	NotifyEmail        string            `json:"notifyEmail,omitempty" validate:"omitempty,email"`
}

// ProgressSnapshot 是某一时刻运行进度的不可变快照
type ProgressSnapshot struct {
	CurrentGeneration int       `json:"currentGeneration"`
	MaxGenerations    int       `json:"maxGenerations"`
	BestFitness       float64   `json:"bestFitness"`
	HardPenalty       int       `json:"hardPenalty"`
	SoftPenalty       float64   `json:"softPenalty"`
	Status            RunStatus `json:"status"`
	Completed         bool      `json:"completed"`
	Error             *string   `json:"error"`
}

// Percentage 返回已完成的代数占比（0-100）
func (p ProgressSnapshot) Percentage() float64 {
	if p.MaxGenerations <= 0 {
		return 0
	}
	return float64(p.CurrentGeneration) / float64(p.MaxGenerations) * 100
}

// SchedulingRun 是一次运行的最终结果
type SchedulingRun struct {
	ID          uuid.UUID           `json:"id"`
	Owner       string              `json:"owner"`
	Status      RunStatus           `json:"status"`
	Grid        *ShiftGrid          `json:"grid"`
	Fitness     float64             `json:"fitness"`
	HardPenalty int                 `json:"hardPenalty"`
	SoftPenalty float64             `json:"softPenalty"`
	Generations int                 `json:"generations"`
	Seed        int64               `json:"seed"`
	History     []GenerationSummary `json:"history"`
	Violations  Violations          `json:"violations"`
	Error       *string             `json:"error"`
	CreatedAt   time.Time           `json:"createdAt"`
	FinishedAt  time.Time           `json:"finishedAt"`
}

// Acceptable 没有违反任何硬约束
func (r *SchedulingRun) Acceptable() bool {
	return r.Status != RunStatusFailed && r.HardPenalty == 0
}

// Optimal 没有违反硬约束且软约束惩罚低于阈值
func (r *SchedulingRun) Optimal(softThreshold float64) bool {
	return r.Acceptable() && r.SoftPenalty < softThreshold
}
