package testutil

import (
	"sync"
	"testing"

	"github.com/dalemusser/questionbank/internal/app/resources"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

var (
	bootOnce sync.Once
	bootErr  error
)

// BootTemplates boots the template engine with every set registered so far
// plus the shared layout, the same way BuildHandler does. Feature packages
// register their sets in init, so calling this from a feature test is
// enough for handlers to render.
func BootTemplates(t *testing.T) {
	t.Helper()
	bootOnce.Do(func() {
		resources.LoadSharedTemplates()
		logger := zap.NewNop()
		eng := templates.New(false)
		if bootErr = eng.Boot(logger); bootErr != nil {
			return
		}
		templates.UseEngine(eng, logger)
	})
	if bootErr != nil {
		t.Fatalf("template engine boot failed: %v", bootErr)
	}
}
