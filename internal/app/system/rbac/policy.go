package rbac

import "strings"

// User is the authenticated principal as the rest of the app sees it.
// Role should already be canonical; Authorize normalizes it again anyway.
type User struct {
	ID       int64
	Email    string
	Username string
	Role     Role
}

// Decision is the outcome of checking a user against a route.
// RedirectToDefault is an ordinary outcome, not an error.
type Decision int

const (
	Permit Decision = iota
	RedirectToLogin
	RedirectToDefault
)

func (d Decision) String() string {
	switch d {
	case Permit:
		return "permit"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToDefault:
		return "redirect_to_default"
	default:
		return "unknown"
	}
}

// Location is the redirect target for d, or "" for Permit.
func (d Decision) Location() string {
	switch d {
	case RedirectToLogin:
		return LoginPath
	case RedirectToDefault:
		return DefaultPath
	default:
		return ""
	}
}

// IsAllowed reports whether role is in allowed. Both sides are compared
// upper-cased.
func IsAllowed(role Role, allowed []Role) bool {
	want := strings.ToUpper(string(role))
	for _, a := range allowed {
		if strings.ToUpper(string(a)) == want {
			return true
		}
	}
	return false
}

// Authorize decides whether user may see a view gated by allowed.
func Authorize(user *User, allowed []Role) Decision {
	if user == nil {
		return RedirectToLogin
	}
	if !IsAllowed(Normalize(string(user.Role)), allowed) {
		return RedirectToDefault
	}
	return Permit
}

// AuthorizeRoute is Authorize against a table route. The base route admits
// any signed-in user so that a denied user always has somewhere to land.
func AuthorizeRoute(user *User, rt Route) Decision {
	if user != nil && rt.Base {
		return Permit
	}
	return Authorize(user, rt.Allowed)
}
