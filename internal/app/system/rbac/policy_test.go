package rbac_test

import (
	"testing"

	"github.com/dalemusser/questionbank/internal/app/system/rbac"
)

func TestIsAllowed_CaseInsensitive(t *testing.T) {
	allowed := []rbac.Role{"admin", rbac.Importer}
	if !rbac.IsAllowed(rbac.Admin, allowed) {
		t.Error("ADMIN should match lower-case admin in allowed set")
	}
	if !rbac.IsAllowed("importer", allowed) {
		t.Error("importer should match IMPORTER")
	}
	if rbac.IsAllowed(rbac.Viewer, allowed) {
		t.Error("VIEWER should not be allowed")
	}
	if rbac.IsAllowed(rbac.Viewer, nil) {
		t.Error("empty allowed set admits nobody")
	}
}

func TestAuthorize_NilUserRedirectsToLogin(t *testing.T) {
	sets := [][]rbac.Role{
		nil,
		{rbac.Admin},
		rbac.AllRoles,
	}
	for _, allowed := range sets {
		if got := rbac.Authorize(nil, allowed); got != rbac.RedirectToLogin {
			t.Errorf("Authorize(nil, %v) = %v, want RedirectToLogin", allowed, got)
		}
	}
}

func TestAuthorize_ViewerDeniedImport(t *testing.T) {
	u := &rbac.User{Role: "VIEWER"}
	got := rbac.Authorize(u, []rbac.Role{rbac.Admin, rbac.Importer})
	if got != rbac.RedirectToDefault {
		t.Errorf("got %v, want RedirectToDefault", got)
	}
	if got.Location() != "/books" {
		t.Errorf("Location() = %q, want /books", got.Location())
	}
}

func TestAuthorize_LowerCaseAdminPermitted(t *testing.T) {
	u := &rbac.User{Role: "admin"}
	if got := rbac.Authorize(u, []rbac.Role{rbac.Admin, rbac.Importer}); got != rbac.Permit {
		t.Errorf("got %v, want Permit", got)
	}
}

func TestAuthorize_LegacyAliasOnUser(t *testing.T) {
	u := &rbac.User{Role: "teacher"}
	if got := rbac.Authorize(u, []rbac.Role{rbac.Selector}); got != rbac.Permit {
		t.Errorf("teacher should be permitted as SELECTOR, got %v", got)
	}
}

func TestAuthorizeRoute_UnknownRoleLandsOnCatalog(t *testing.T) {
	u := &rbac.User{Role: rbac.Normalize("auditor")}
	for _, rt := range rbac.Routes() {
		got := rbac.AuthorizeRoute(u, rt)
		want := rbac.RedirectToDefault
		if rt.Base {
			want = rbac.Permit
		}
		if got != want {
			t.Errorf("%s: got %v, want %v", rt.Path, got, want)
		}
	}
}

func TestAuthorizeRoute_NilUserOnBase(t *testing.T) {
	if got := rbac.AuthorizeRoute(nil, rbac.MustLookup(rbac.CatalogPath)); got != rbac.RedirectToLogin {
		t.Errorf("got %v, want RedirectToLogin", got)
	}
}

func TestDecision_Location(t *testing.T) {
	if rbac.Permit.Location() != "" {
		t.Error("Permit has no location")
	}
	if rbac.RedirectToLogin.Location() != "/login" {
		t.Errorf("RedirectToLogin.Location() = %q", rbac.RedirectToLogin.Location())
	}
}
