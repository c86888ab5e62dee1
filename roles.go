package auth

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at registration
	RoleUser UserRole = "user"
	// RoleAdmin can manage other accounts (e.g. reset passwords)
	RoleAdmin UserRole = "admin"
	// RoleOwner is the single highest-privilege role, superset of admin
	RoleOwner UserRole = "owner"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

var roleHierarchy = map[UserRole]int{
	RoleUser:  0,
	RoleAdmin: 1,
	RoleOwner: 2,
}

// RoleAtLeast checks if role meets the minimum required level. Unknown roles
// never satisfy any minimum.
func RoleAtLeast(role, minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[role]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// RoleIn reports whether role is a member of the given set. An empty set
// matches any role, so guards configured without roles only require a valid
// token.
func RoleIn(role UserRole, roles ...UserRole) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleAdmin,
		RoleOwner,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
