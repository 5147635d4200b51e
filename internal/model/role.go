package model

// Role is the single authorization attribute carried by every user.
type Role string

const (
	// RoleAdmin can manage users and generate questions.
	RoleAdmin Role = "admin"

	// RoleTestTaker takes speaking tests.
	RoleTestTaker Role = "test_taker"
)

// AllRoles lists every recognized role.
var AllRoles = []Role{RoleAdmin, RoleTestTaker}

// Valid reports whether r is one of the known roles.
// Anything else grants no access.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTestTaker:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
