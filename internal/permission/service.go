// Package permission 作者或只读权限检查
// 所有人可读; 只有作者可以修改或删除自己的内容
package permission

// 角色等级常量
// 数值越大权限越高
const (
	RoleLevelAuthor  = 100 // 内容作者
	RoleLevelAdmin   = 80  // 全局管理员, 只管理标签等目录数据
	RoleLevelUser    = 10  // 已登录用户
	RoleLevelUnknown = 0   // 匿名或未知角色
)

const (
	RoleAuthor = "author"
	RoleAdmin  = "admin"
	RoleUser   = "user"
)

// RoleLevelMap 角色名称到等级的映射
var RoleLevelMap = map[string]int{
	RoleAuthor: RoleLevelAuthor,
	RoleAdmin:  RoleLevelAdmin,
	RoleUser:   RoleLevelUser,
}

// PermissionSource 权限来源类型
type PermissionSource string

const (
	PermissionSourceOwner PermissionSource = "owner" // 内容属于当前用户
	PermissionSourceNone  PermissionSource = "none"  // 无权限
)

// PermissionResult 权限检查结果
type PermissionResult struct {
	HasPermission    bool             `json:"has_permission"`
	EffectiveRole    string           `json:"effective_role"`
	PermissionSource PermissionSource `json:"permission_source"`
}

// GetRoleLevel 获取角色的权限等级
// 如果角色不存在于映射中，返回 RoleLevelUnknown
func GetRoleLevel(role string) int {
	if level, ok := RoleLevelMap[role]; ok {
		return level
	}
	return RoleLevelUnknown
}

// HasRequiredRole 检查实际角色是否满足所需角色的权限要求
// 空角色(匿名用户)总是被拒绝
func HasRequiredRole(actualRole, requiredRole string) bool {
	if actualRole == "" {
		return false
	}
	return GetRoleLevel(actualRole) >= GetRoleLevel(requiredRole)
}

// IsGlobalAdmin 检查用户是否是全局管理员
// userRole: 来自 JWT 的用户角色
func IsGlobalAdmin(userRole string) bool {
	return userRole == RoleAdmin
}

// EffectiveRole 用户对某条内容的有效角色
// 管理员对他人的菜谱没有作者权限
func EffectiveRole(ownerID, userID uint) (string, PermissionSource) {
	switch {
	case userID == 0:
		return "", PermissionSourceNone
	case ownerID == userID:
		return RoleAuthor, PermissionSourceOwner
	default:
		return RoleUser, PermissionSourceNone
	}
}

// Check 检查用户对 ownerID 所属内容的权限
func Check(ownerID, userID uint, requiredRole string) PermissionResult {
	role, source := EffectiveRole(ownerID, userID)
	return PermissionResult{
		HasPermission:    HasRequiredRole(role, requiredRole),
		EffectiveRole:    role,
		PermissionSource: source,
	}
}

// CanModify 只有作者可以修改或删除
func CanModify(ownerID, userID uint) bool {
	return Check(ownerID, userID, RoleAuthor).HasPermission
}
