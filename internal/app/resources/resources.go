// internal/app/resources/resources.go
package resources

import (
	"embed"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

// FS holds the layout, navigation, flash and pager partials every page
// template builds on.
//
//go:embed templates/*.gohtml
var FS embed.FS

// SharedTemplates names the partials defined in FS.
var SharedTemplates = []string{"layout_top", "layout_bottom", "nav", "flash", "book_filters"}

var registerOnce sync.Once

// LoadSharedTemplates registers the shared set with the template engine.
// Call it before the engine boots; repeat calls are no-ops.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       FS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}
