package domain

// OperatorRole 运营人员角色
type OperatorRole string

const (
	OperatorRoleAdmin    OperatorRole = "admin"    // 管理员，可管理秒杀活动
	OperatorRoleOperator OperatorRole = "operator" // 运营，可管理秒杀活动
	OperatorRoleViewer   OperatorRole = "viewer"   // 只读
)

// Operator 表示执行活动管理操作的运营人员，身份由访问令牌携带
type Operator struct {
	ID       int64        `json:"id"`
	Username string       `json:"username"`
	Role     OperatorRole `json:"role"`
}

// CanManageActivities 判断是否有权限发布、修改、上下线活动
func (o *Operator) CanManageActivities() bool {
	return o.Role == OperatorRoleAdmin || o.Role == OperatorRoleOperator
}
