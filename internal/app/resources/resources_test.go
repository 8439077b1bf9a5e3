package resources_test

import (
	"html/template"
	"io/fs"
	"testing"

	"github.com/dalemusser/questionbank/internal/app/resources"
)

func TestSharedTemplatesParse(t *testing.T) {
	tmpl, err := template.ParseFS(resources.FS, "templates/*.gohtml")
	if err != nil {
		t.Fatalf("parse shared templates: %v", err)
	}
	for _, name := range resources.SharedTemplates {
		if tmpl.Lookup(name) == nil {
			t.Errorf("shared template %q is not defined", name)
		}
	}
}

func TestSharedTemplatesEmbedded(t *testing.T) {
	files, err := fs.Glob(resources.FS, "templates/*.gohtml")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) < 4 {
		t.Errorf("embedded %d template files, want at least 4", len(files))
	}
}
