package viewdata_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/questionbank/internal/testutil"
)

func TestNewBaseVM_SignedOut(t *testing.T) {
	vm := viewdata.NewBaseVM(httptest.NewRequest("GET", "/login", nil), "Login", "/books")
	if vm.IsLoggedIn || vm.Nav != nil || vm.Role != "" {
		t.Errorf("signed-out vm carries user data: %+v", vm)
	}
	if vm.SiteName != viewdata.SiteName || vm.Title != "Login" {
		t.Errorf("unexpected vm %+v", vm)
	}
}

func TestNewBaseVM_SignedIn(t *testing.T) {
	req := testutil.NewAuthenticatedRequest("GET", "/import", testutil.ImporterUser())
	vm := viewdata.NewBaseVM(req, "Import Books", "/books")

	if !vm.IsLoggedIn || vm.Email != "importer@test.com" {
		t.Fatalf("expected signed-in vm, got %+v", vm)
	}
	if vm.Role != "importer" {
		t.Errorf("Role = %q, want lower-cased importer", vm.Role)
	}
	want := rbac.BuildMenu(rbac.Importer)
	if len(vm.Nav) != len(want) {
		t.Fatalf("Nav = %+v, want %+v", vm.Nav, want)
	}
	for i := range want {
		if vm.Nav[i] != want[i] {
			t.Errorf("Nav[%d] = %+v, want %+v", i, vm.Nav[i], want[i])
		}
	}
	if !vm.IsActive("/import") || vm.IsActive("/books") {
		t.Errorf("IsActive wrong for CurrentPath %q", vm.CurrentPath)
	}
}

func TestNewBaseVM_ShowAuditFollowsAuditRoles(t *testing.T) {
	for _, u := range []rbac.User{testutil.AdminUser(), testutil.ViewerUser(), testutil.SelectorUser(), testutil.ImporterUser()} {
		vm := viewdata.NewBaseVM(testutil.NewAuthenticatedRequest("GET", "/books", u), "Books", "/books")
		want := rbac.IsAllowed(u.Role, rbac.AuditRoles())
		if vm.ShowAudit != want {
			t.Errorf("%s: ShowAudit = %v, want %v", u.Role, vm.ShowAudit, want)
		}
	}
	if !viewdata.NewBaseVM(testutil.NewAuthenticatedRequest("GET", "/books", testutil.AdminUser()), "Books", "/books").ShowAudit {
		t.Error("admin should see the audit link")
	}
}
