package rbac_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/questionbank/internal/app/system/rbac"
)

func TestNormalize_AliasesAnyCase(t *testing.T) {
	cases := map[string]rbac.Role{
		"admin":    rbac.Admin,
		"viewer":   rbac.Viewer,
		"selector": rbac.Selector,
		"importer": rbac.Importer,
		"student":  rbac.Viewer,
		"teacher":  rbac.Selector,
	}
	for raw, want := range cases {
		for _, in := range []string{raw, strings.ToUpper(raw), strings.ToUpper(raw[:1]) + raw[1:]} {
			if got := rbac.Normalize(in); got != want {
				t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
			}
		}
	}
}

func TestNormalize_LegacyStudent(t *testing.T) {
	for _, in := range []string{"Student", "STUDENT", "student"} {
		if got := rbac.Normalize(in); got != rbac.Viewer {
			t.Errorf("Normalize(%q) = %q, want VIEWER", in, got)
		}
	}
}

func TestNormalize_UnknownPassesThroughUppercased(t *testing.T) {
	for _, in := range []string{"auditor", "Librarian", "SUPER_user", "x"} {
		if got := rbac.Normalize(in); string(got) != strings.ToUpper(in) {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, strings.ToUpper(in))
		}
	}
}

func TestNormalize_ResultIsNeverRaw(t *testing.T) {
	// For mixed-case input the result differs from the raw string.
	if got := rbac.Normalize("Admin"); string(got) == "Admin" {
		t.Errorf("Normalize returned the raw string %q", got)
	}
}

func TestRole_Known(t *testing.T) {
	for _, r := range rbac.AllRoles {
		if !r.Known() {
			t.Errorf("%q should be known", r)
		}
	}
	if rbac.Role("AUDITOR").Known() {
		t.Error("AUDITOR should not be known")
	}
	if rbac.Role("admin").Known() {
		t.Error("lower-case admin is not canonical")
	}
}

func TestRole_Lower(t *testing.T) {
	if got := rbac.Selector.Lower(); got != "selector" {
		t.Errorf("Lower() = %q, want selector", got)
	}
}
