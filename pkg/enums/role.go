package enums

// SystemRole is the account-level role carried in access tokens.
type SystemRole string

const (
	SystemRoleUser  SystemRole = "user"
	SystemRoleAdmin SystemRole = "admin"
)

var systemRoles = []SystemRole{SystemRoleUser, SystemRoleAdmin}

func (v SystemRole) String() string { return string(v) }
func (v SystemRole) IsValid() bool  { _, err := ParseSystemRole(string(v)); return err == nil }

func ParseSystemRole(raw string) (SystemRole, error) { return parse(systemRoles, "system role", raw) }
