package domain

type Role string

const (
	RolePlanner Role = "planner" // 可以发起和取消排班
	RoleViewer  Role = "viewer"  // 只能查看进度和结果
)

func (r Role) Valid() bool {
	return r == RolePlanner || r == RoleViewer
}
