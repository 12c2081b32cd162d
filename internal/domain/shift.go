package domain

import "fmt"

// ShiftType 表示某位员工某一天被分配的班次
// 序号只用于数组下标，不代表任何先后关系
type ShiftType int8

const (
	ShiftOff ShiftType = iota
	ShiftMorning
	ShiftAfternoon
	ShiftNight
)

// NumShiftTypes 为班次种类总数（包括休息）
const NumShiftTypes = 4

// WorkingShifts 为所有需要上班的班次（不包括休息）
var WorkingShifts = []ShiftType{ShiftMorning, ShiftAfternoon, ShiftNight}

var shiftLabels = [NumShiftTypes]string{"休息", "早班", "中班", "夜班"}

func (s ShiftType) Valid() bool {
	return s >= ShiftOff && s <= ShiftNight
}

func (s ShiftType) IsWorking() bool {
	return s != ShiftOff
}

// String 只在违规描述中使用，对外的排班结果一律使用序号
func (s ShiftType) String() string {
	if !s.Valid() {
		return fmt.Sprintf("未知班次(%d)", int(s))
	}
	return shiftLabels[s]
}
