package enums

import "fmt"

// AccountRole is the platform-level role attached to an account.
type AccountRole string

const (
	AccountRoleAdmin AccountRole = "admin"
	AccountRoleStaff AccountRole = "staff"
)

var validAccountRoles = []AccountRole{
	AccountRoleAdmin,
	AccountRoleStaff,
}

// IsValid reports whether the value matches the canonical account role enum.
func (a AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountRole converts the raw string to AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
