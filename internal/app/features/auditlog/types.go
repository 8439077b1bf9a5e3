// internal/app/features/auditlog/types.go
package auditlog

import (
	"github.com/dalemusser/questionbank/internal/app/store/audit"
	"github.com/dalemusser/questionbank/internal/app/system/paging"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
)

// listItem represents a single audit event row for display.
type listItem struct {
	When      string
	Category  string
	EventType string
	Who       string // email, or "user <id>" when the event has none
	Role      string
	IP        string
	Path      string
	Success   bool
	Reason    string
	Details   string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Category  string
	EventType string
	StartDate string
	EndDate   string

	// Filter options
	Categories []categoryOption
	EventTypes []string

	Page paging.Page
}

// categoryOption represents a category for the filter dropdown.
type categoryOption struct {
	Value string
	Label string
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryLibrary, Label: "Library"},
		{Value: audit.CategorySecurity, Label: "Security"},
	}
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailed,
		audit.EventLogout,
		audit.EventSessionExpired,
	}
	libraryEvents := []string{
		audit.EventBookUploaded,
		audit.EventBookUploadFailed,
		audit.EventQuestionsGenerated,
		audit.EventQuestionGenerationFailed,
	}
	securityEvents := []string{
		audit.EventAccessDenied,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryLibrary:
		return libraryEvents
	case audit.CategorySecurity:
		return securityEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(libraryEvents)+len(securityEvents))
		all = append(all, authEvents...)
		all = append(all, libraryEvents...)
		all = append(all, securityEvents...)
		return all
	default:
		return nil
	}
}
