package rbac

import (
	"fmt"
	"strings"
)

// Paths of the access-controlled views.
const (
	CatalogPath  = "/books"
	ImportPath   = "/import"
	SelectPath   = "/select-books"
	GeneratePath = "/generate-questions"

	// LoginPath is where signed-out users are sent.
	LoginPath = "/login"

	// DefaultPath is where signed-in users land when a route denies them.
	DefaultPath = CatalogPath

	// AuditPath is the audit log. It is gated by AuditRoles, not the
	// table, so it never appears in the role menu.
	AuditPath = "/audit"
)

// AuditRoles returns the roles that may read the audit log.
func AuditRoles() []Role { return []Role{Admin} }

// Route describes one access-controlled view.
//
// Base marks the catalog: it is the landing page for every signed-in user,
// including users whose role this client does not recognise.
type Route struct {
	Path    string
	Label   string
	Icon    string
	Allowed []Role
	Base    bool
}

// table is the single source of truth for route access and navigation.
// Order matters: it is the menu order.
var table = []Route{
	{Path: CatalogPath, Label: "View Books", Icon: "book", Allowed: []Role{Admin, Viewer, Selector, Importer}, Base: true},
	{Path: ImportPath, Label: "Import Books", Icon: "upload", Allowed: []Role{Admin, Importer}},
	{Path: SelectPath, Label: "Select Books", Icon: "book-open", Allowed: []Role{Admin, Selector}},
	{Path: GeneratePath, Label: "Generate Questions", Icon: "help-circle", Allowed: []Role{Admin, Selector}},
}

// Routes returns a copy of the route table in menu order.
func Routes() []Route {
	out := make([]Route, len(table))
	for i, rt := range table {
		rt.Allowed = append([]Role(nil), rt.Allowed...)
		out[i] = rt
	}
	return out
}

// Lookup returns the route registered for path.
func Lookup(path string) (Route, bool) {
	for _, rt := range table {
		if rt.Path == path {
			return rt, true
		}
	}
	return Route{}, false
}

// MustLookup is Lookup for paths known at compile time.
func MustLookup(path string) Route {
	rt, ok := Lookup(path)
	if !ok {
		panic("rbac: no route registered for " + path)
	}
	return rt
}

// Validate checks the table invariants: unique paths, exactly one base
// route (the default), and a non-empty allowed set made only of canonical
// roles.
func Validate() error {
	return validate(table)
}

func validate(routes []Route) error {
	seen := make(map[string]struct{}, len(routes))
	bases := 0
	for _, rt := range routes {
		if !strings.HasPrefix(rt.Path, "/") {
			return fmt.Errorf("route %q: path must start with /", rt.Path)
		}
		if _, dup := seen[rt.Path]; dup {
			return fmt.Errorf("route %q: duplicate path", rt.Path)
		}
		seen[rt.Path] = struct{}{}
		if len(rt.Allowed) == 0 {
			return fmt.Errorf("route %q: no allowed roles", rt.Path)
		}
		for _, role := range rt.Allowed {
			if !role.Known() {
				return fmt.Errorf("route %q: unknown role %q", rt.Path, role)
			}
		}
		if rt.Base {
			bases++
			if rt.Path != DefaultPath {
				return fmt.Errorf("route %q: base route must be %s", rt.Path, DefaultPath)
			}
		}
	}
	if bases != 1 {
		return fmt.Errorf("route table: want exactly one base route, have %d", bases)
	}
	return nil
}
