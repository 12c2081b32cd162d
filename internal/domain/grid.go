package domain

import (
	"encoding/json"
	"fmt"
)

// ShiftGrid 即染色体：staff × days 的班次矩阵，构造后尺寸不再改变
type ShiftGrid struct {
	staff int
	days  int
	cells []ShiftType // 行优先存储，cells[s*days+d]
}

// NewShiftGrid 创建一个全部为休息的排班表
func NewShiftGrid(staff, days int) *ShiftGrid {
	if staff <= 0 || days <= 0 {
		panic(fmt.Sprintf("排班表尺寸不合法: %d x %d", staff, days))
	}
	return &ShiftGrid{
		staff: staff,
		days:  days,
		cells: make([]ShiftType, staff*days),
	}
}

// ShiftGridFromRows 从二维数组构造排班表，每一行是一位员工
func ShiftGridFromRows(rows [][]ShiftType) (*ShiftGrid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, NewValidationError("grid", "排班表不能为空")
	}

	g := NewShiftGrid(len(rows), len(rows[0]))
	for s, row := range rows {
		if len(row) != g.days {
			return nil, NewValidationError("grid", "第 %d 行长度为 %d，应为 %d", s, len(row), g.days)
		}
		for d, shift := range row {
			if !shift.Valid() {
				return nil, NewValidationError("grid", "第 %d 行第 %d 列的班次 %d 不合法", s, d, shift)
			}
			g.cells[s*g.days+d] = shift
		}
	}

	return g, nil
}

func (g *ShiftGrid) Staff() int { return g.staff }

func (g *ShiftGrid) Days() int { return g.days }

func (g *ShiftGrid) At(staff, day int) ShiftType {
	return g.cells[staff*g.days+day]
}

func (g *ShiftGrid) Set(staff, day int, shift ShiftType) {
	g.cells[staff*g.days+day] = shift
}

// Row 返回某位员工整行的视图，修改它会直接修改排班表
func (g *ShiftGrid) Row(staff int) []ShiftType {
	return g.cells[staff*g.days : (staff+1)*g.days]
}

// Clone 深拷贝，返回的排班表与原表不共享底层数组
func (g *ShiftGrid) Clone() *ShiftGrid {
	cells := make([]ShiftType, len(g.cells))
	copy(cells, g.cells)
	return &ShiftGrid{
		staff: g.staff,
		days:  g.days,
		cells: cells,
	}
}

func (g *ShiftGrid) Rows() [][]ShiftType {
	rows := make([][]ShiftType, g.staff)
	for s := range rows {
		rows[s] = make([]ShiftType, g.days)
		copy(rows[s], g.Row(s))
	}
	return rows
}

func (g *ShiftGrid) Equal(other *ShiftGrid) bool {
	if other == nil || g.staff != other.staff || g.days != other.days {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Validate 检查每一个格子是否都是合法的班次
func (g *ShiftGrid) Validate() error {
	for i, shift := range g.cells {
		if !shift.Valid() {
			return NewValidationError("grid", "第 %d 行第 %d 列的班次 %d 不合法", i/g.days, i%g.days, shift)
		}
	}
	return nil
}

// Count 统计某位员工在整个周期内被分配某班次的次数
func (g *ShiftGrid) Count(staff int, shift ShiftType) int {
	n := 0
	for _, s := range g.Row(staff) {
		if s == shift {
			n++
		}
	}
	return n
}

// WorkedDays 统计某位员工的上班天数
func (g *ShiftGrid) WorkedDays(staff int) int {
	return g.days - g.Count(staff, ShiftOff)
}

// MarshalJSON 以班次序号的二维数组输出
func (g *ShiftGrid) MarshalJSON() ([]byte, error) {
	rows := make([][]int, g.staff)
	for s := range rows {
		rows[s] = make([]int, g.days)
		for d := range rows[s] {
			rows[s][d] = int(g.At(s, d))
		}
	}
	return json.Marshal(rows)
}

func (g *ShiftGrid) UnmarshalJSON(data []byte) error {
	var rows [][]ShiftType
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := ShiftGridFromRows(rows)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
