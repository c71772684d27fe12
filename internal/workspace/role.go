package workspace

import "fmt"

// Portal roles. Investors get a read-only view; all mutating actions
// require admin.
const (
	RoleAdmin    = "admin"
	RoleInvestor = "investor"
)

// ForbiddenError indicates a mutating action attempted without the
// admin role. The store is guaranteed untouched.
type ForbiddenError struct {
	Action string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("admin role required for %s", e.Action)
}

// ValidRole reports whether r is a known portal role.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleInvestor
}

// RequireAdmin returns a ForbiddenError unless role is admin.
func RequireAdmin(role, action string) error {
	if role != RoleAdmin {
		return ForbiddenError{Action: action}
	}
	return nil
}

func requireAdmin(role, action string) error {
	return RequireAdmin(role, action)
}
