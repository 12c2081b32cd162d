package scheduler

import (
	"sync/atomic"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Progress 是一次运行对外暴露的进度句柄
// 只有运行本身会写入，任意数量的轮询方可以随时读取；每次写入都替换整个快照，读方不会阻塞，也不会读到写了一半的数据
type Progress struct {
	snapshot atomic.Pointer[domain.ProgressSnapshot]
}

func NewProgress(maxGenerations int) *Progress {
	p := &Progress{}
	p.snapshot.Store(&domain.ProgressSnapshot{
		MaxGenerations: maxGenerations,
		Status:         domain.RunStatusRunning,
	})
	return p
}

func (p *Progress) Snapshot() domain.ProgressSnapshot {
	return *p.snapshot.Load()
}

func (p *Progress) publish(next domain.ProgressSnapshot) {
	// 代数只增不减
	if current := p.snapshot.Load(); next.CurrentGeneration < current.CurrentGeneration {
		next.CurrentGeneration = current.CurrentGeneration
	}
	p.snapshot.Store(&next)
}

// Fail 将运行标记为失败并结束
func (p *Progress) Fail(err error) {
	msg := err.Error()
	next := p.Snapshot()
	next.Status = domain.RunStatusFailed
	next.Completed = true
	next.Error = &msg
	p.publish(next)
}
