package rbac

// NavItem is one entry of the navigation menu.
type NavItem struct {
	Path  string
	Label string
	Icon  string
}

// BuildMenu returns the navigation entries visible to role, catalog first.
//
// The list is derived from the route table, so an item is shown exactly
// when AuthorizeRoute would permit the route for the same role.
func BuildMenu(role Role) []NavItem {
	role = Normalize(string(role))

	items := make([]NavItem, 0, len(table))
	for _, rt := range table {
		if rt.Base {
			items = append(items, navItem(rt))
		}
	}

	if !role.Known() {
		// Unrecognised roles get the catalog and nothing else.
		return items
	}

	for _, rt := range table {
		if !rt.Base && IsAllowed(role, rt.Allowed) {
			items = append(items, navItem(rt))
		}
	}
	return items
}

func navItem(rt Route) NavItem {
	return NavItem{Path: rt.Path, Label: rt.Label, Icon: rt.Icon}
}
