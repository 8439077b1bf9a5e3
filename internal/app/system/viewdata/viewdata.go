// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/questionbank/internal/app/system/auth"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// SiteName is shown in the page title and header.
const SiteName = "Question Bank"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/books"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	Email      string
	UserName   string
	Role       string // lower-cased for display next to the email

	// Nav is the role's menu, derived from the same table that gates routes.
	Nav []rbac.NavItem
	// ShowAudit adds the audit log link, which sits outside the route table.
	ShowAudit bool

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string

	// Flash is a one-shot message set by the handler, if any.
	Flash *auth.Flash
}

// NewBaseVM creates a populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    SiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.Email = u.Email
		vm.UserName = u.Username
		vm.Role = u.Role.Lower()
		vm.Nav = rbac.BuildMenu(u.Role)
		vm.ShowAudit = rbac.IsAllowed(rbac.Normalize(string(u.Role)), rbac.AuditRoles())
	}
	return vm
}

// IsActive reports whether path is the current page, for nav highlighting.
func (vm BaseVM) IsActive(path string) bool {
	return vm.CurrentPath == path
}
