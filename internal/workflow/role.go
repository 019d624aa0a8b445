package workflow

import "strings"

// Role is the authority class of an actor.
type Role string

const (
	RoleRequester          Role = "requester"
	RoleInstitutionManager Role = "institution_manager"
	RoleSOPVerifier        Role = "sop_verifier"
	RoleAccountant         Role = "accountant"
	RoleVP                 Role = "vp"
	RoleHeadOfInstitution  Role = "head_of_institution"
	RoleDean               Role = "dean"
	RoleMMA                Role = "mma"
	RoleHR                 Role = "hr"
	RoleAudit              Role = "audit"
	RoleIT                 Role = "it"
	RoleChiefDirector      Role = "chief_director"
	RoleChairman           Role = "chairman"
)

var allRoles = []Role{
	RoleRequester,
	RoleInstitutionManager,
	RoleSOPVerifier,
	RoleAccountant,
	RoleVP,
	RoleHeadOfInstitution,
	RoleDean,
	RoleMMA,
	RoleHR,
	RoleAudit,
	RoleIT,
	RoleChiefDirector,
	RoleChairman,
}

// DepartmentRoles are the four department desks that act as one group.
var DepartmentRoles = []Role{RoleMMA, RoleHR, RoleAudit, RoleIT}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole converts a wire value into a Role.
func ParseRole(raw string) (Role, bool) {
	r := Role(normalize(raw))
	return r, r.Valid()
}

func (r Role) String() string {
	return string(r)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
