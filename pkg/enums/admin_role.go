package enums

import "fmt"

// AdminRole scopes back-office tokens.
type AdminRole string

const (
	AdminRoleOwner AdminRole = "owner"
	AdminRoleSales AdminRole = "sales"
)

var validAdminRoles = []AdminRole{AdminRoleOwner, AdminRoleSales}

func (r AdminRole) IsValid() bool {
	for _, candidate := range validAdminRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseAdminRole(value string) (AdminRole, error) {
	for _, candidate := range validAdminRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin role %q", value)
}
