// Package rbac holds the role model and the route table that both route
// gating and menu rendering are derived from.
//
// Roles arrive from the backend as untrusted strings. Normalize is the only
// place raw strings become a Role; everything downstream compares Role
// values.
package rbac

import "strings"

// Role is a canonical, upper-case role name.
type Role string

const (
	Admin    Role = "ADMIN"
	Viewer   Role = "VIEWER"
	Selector Role = "SELECTOR"
	Importer Role = "IMPORTER"
)

// AllRoles lists the canonical roles in display order.
var AllRoles = []Role{Admin, Viewer, Selector, Importer}

// aliases maps lower-cased backend role strings to canonical roles.
// student and teacher are legacy names still issued by older accounts.
var aliases = map[string]Role{
	"admin":    Admin,
	"viewer":   Viewer,
	"selector": Selector,
	"importer": Importer,
	"student":  Viewer,
	"teacher":  Selector,
}

// Normalize maps a backend role string to a Role.
//
// Known names and legacy aliases are matched case-insensitively. Anything
// else is upper-cased and passed through, so a role the backend introduces
// before this client knows about it still yields a Role; such roles are
// denied by every route except the catalog.
func Normalize(raw string) Role {
	if r, ok := aliases[strings.ToLower(raw)]; ok {
		return r
	}
	return Role(strings.ToUpper(raw))
}

// Known reports whether r is one of the canonical roles.
func (r Role) Known() bool {
	for _, k := range AllRoles {
		if r == k {
			return true
		}
	}
	return false
}

// Lower returns the role in lower case, as shown next to the user's email.
func (r Role) Lower() string { return strings.ToLower(string(r)) }

func (r Role) String() string { return string(r) }
