package scheduler

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// randomGrid 按初始化分布随机生成一张排班表
func randomGrid(staff, days int, dist InitDistribution, rng *rand.Rand) *domain.ShiftGrid {
	g := domain.NewShiftGrid(staff, days)
	for s := 0; s < staff; s++ {
		row := g.Row(s)
		for d := range row {
			row[d] = drawShift(dist, rng)
		}
	}
	return g
}

func drawShift(dist InitDistribution, rng *rand.Rand) domain.ShiftType {
	if dist.Kind == InitWeightedOff {
		// 一定概率休息，其余在三种上班班次中均匀选择
		if rng.Float64() < dist.OffProbability {
			return domain.ShiftOff
		}
		return domain.WorkingShifts[rng.Intn(len(domain.WorkingShifts))]
	}
	return domain.ShiftType(rng.Intn(domain.NumShiftTypes))
}

// identityIndex 返回 [0, 1, ..., n-1]，作为锦标赛抽样的下标缓冲
func identityIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// tournamentSelect 锦标赛选择：不放回地抽取 k 个个体，返回 fitness 最小者
// 平局时保留先抽到的个体；idx 必须是 [0, len(pop)) 的一个排列，抽样后仍然是排列
func tournamentSelect(pop []*Candidate, k int, rng *rand.Rand, idx []int) *Candidate {
	n := len(pop)
	k = min(k, n)

	var best *Candidate
	for i := 0; i < k; i++ {
		// 部分 Fisher-Yates 洗牌，保证抽到的下标互不相同
		j := i + rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]

		c := pop[idx[i]]
		if best == nil || c.fitness < best.fitness {
			best = c
		}
	}
	return best
}

// cellUniformCrossover 逐格均匀交叉
func cellUniformCrossover(p1, p2 *domain.ShiftGrid, rng *rand.Rand) (*domain.ShiftGrid, *domain.ShiftGrid) {
	c1 := p1.Clone()
	c2 := p2.Clone()

	for s := 0; s < p1.Staff(); s++ {
		row1, row2 := c1.Row(s), c2.Row(s)
		for d := range row1 {
			if rng.Intn(2) == 0 {
				row1[d], row2[d] = row2[d], row1[d]
			}
		}
	}

	return c1, c2
}

// dayUniformCrossover 按天交叉：每一天以 1/2 的概率交换整列
func dayUniformCrossover(p1, p2 *domain.ShiftGrid, rng *rand.Rand) (*domain.ShiftGrid, *domain.ShiftGrid) {
	c1 := p1.Clone()
	c2 := p2.Clone()

	for d := 0; d < p1.Days(); d++ {
		if rng.Intn(2) != 0 {
			continue
		}
		for s := 0; s < p1.Staff(); s++ {
			c1.Set(s, d, p2.At(s, d))
			c2.Set(s, d, p1.At(s, d))
		}
	}

	return c1, c2
}

// randomMutation 每个格子以 rate 的概率重新均匀抽取班次，返回被重新抽取的格子数
func randomMutation(g *domain.ShiftGrid, rate float64, rng *rand.Rand) int {
	if rate <= 0 {
		return 0
	}

	redrawn := 0
	for s := 0; s < g.Staff(); s++ {
		row := g.Row(s)
		for d := range row {
			if rng.Float64() < rate {
				row[d] = domain.ShiftType(rng.Intn(domain.NumShiftTypes))
				redrawn++
			}
		}
	}
	return redrawn
}

// guidedRepair 把每一处「夜班后接早班」的早班改成休息或中班，返回修复的数量
func guidedRepair(g *domain.ShiftGrid, rng *rand.Rand) int {
	repaired := 0
	for s := 0; s < g.Staff(); s++ {
		row := g.Row(s)
		for d := 0; d+1 < len(row); d++ {
			if row[d] == domain.ShiftNight && row[d+1] == domain.ShiftMorning {
				if rng.Intn(2) == 0 {
					row[d+1] = domain.ShiftOff
				} else {
					row[d+1] = domain.ShiftAfternoon
				}
				repaired++
			}
		}
	}
	return repaired
}

// reproduce 由两个父本产生两个子代：交叉（或复制）之后分别变异
// 子代的排班表都是新分配的，与父本不共享底层数组
func (s *Scheduler) reproduce(p1, p2 *Candidate) (*Candidate, *Candidate) {
	var g1, g2 *domain.ShiftGrid

	if s.rng.Float64() < s.parameters.CrossoverRate {
		switch s.parameters.Crossover {
		case CrossoverDayUniform:
			g1, g2 = dayUniformCrossover(p1.grid, p2.grid, s.rng)
		default:
			g1, g2 = cellUniformCrossover(p1.grid, p2.grid, s.rng)
		}
	} else {
		g1, g2 = p1.grid.Clone(), p2.grid.Clone()
	}

	children := [2]*Candidate{NewCandidate(g1), NewCandidate(g2)}
	for _, child := range children {
		s.mutate(child)
	}

	return children[0], children[1]
}

// mutate 随机变异与修复变异相互独立，可能在同一个子代上同时发生
func (s *Scheduler) mutate(c *Candidate) {
	randomMutation(c.grid, s.parameters.MutationRate, s.rng)
	if s.rng.Float64() < s.parameters.GuidedMutationRate {
		guidedRepair(c.grid, s.rng)
	}
	c.invalidate()
}
