package scheduler

import (
	"fmt"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Evaluation 是一次评估的结果，fitness 越小越好
type Evaluation struct {
	HardPenalty int
	SoftPenalty float64
	Fitness     float64
	Violations  *domain.Violations // 仅 EvaluateDetailed 时非空
}

// Evaluator 对排班表打分，是一个纯函数：不修改任何状态，可以被多个 goroutine 同时调用
type Evaluator struct {
	problem *domain.ScheduleProblem
	hard    []HardRule
	soft    []SoftRule
}

func NewEvaluator(problem *domain.ScheduleProblem) *Evaluator {
	return NewEvaluatorWithRules(problem, DefaultHardRules(), DefaultSoftRules())
}

// NewEvaluatorWithRules 使用自定义的规则列表，规则按顺序求和
func NewEvaluatorWithRules(problem *domain.ScheduleProblem, hard []HardRule, soft []SoftRule) *Evaluator {
	return &Evaluator{
		problem: problem,
		hard:    append([]HardRule(nil), hard...),
		soft:    append([]SoftRule(nil), soft...),
	}
}

func (e *Evaluator) Problem() *domain.ScheduleProblem {
	return e.problem
}

func (e *Evaluator) Evaluate(g *domain.ShiftGrid) Evaluation {
	return e.evaluate(g, nil)
}

// EvaluateDetailed 额外返回每条规则的违规描述，分数与 Evaluate 完全一致
func (e *Evaluator) EvaluateDetailed(g *domain.ShiftGrid) Evaluation {
	violations := domain.NewViolations()
	return e.evaluate(g, &violations)
}

func (e *Evaluator) evaluate(g *domain.ShiftGrid, violations *domain.Violations) Evaluation {
	ev := Evaluation{Violations: violations}

	for _, rule := range e.hard {
		var rec Recorder
		if violations != nil {
			rec = collect(violations.Hard, rule.Name)
		}
		ev.HardPenalty += rule.Check(g, e.problem, rec)
	}

	for _, rule := range e.soft {
		var rec Recorder
		if violations != nil {
			rec = collect(violations.Soft, rule.Name)
		}
		ev.SoftPenalty += rule.Check(g, e.problem, rec)
	}

	ev.Fitness = float64(ev.HardPenalty)*e.problem.HardWeight() + ev.SoftPenalty*e.problem.SoftWeight()
	return ev
}

func collect(into map[string][]string, name string) Recorder {
	return func(format string, args ...any) {
		into[name] = append(into[name], fmt.Sprintf(format, args...))
	}
}
