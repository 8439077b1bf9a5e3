// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/questionbank/internal/app/store/audit"
	"github.com/dalemusser/questionbank/internal/app/system/paging"
	"github.com/dalemusser/questionbank/internal/app/system/rbac"
	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"github.com/dalemusser/questionbank/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const (
	pageSize   = 50
	dateLayout = "2006-01-02"
	whenLayout = "2006-01-02 15:04:05"
)

// ServeList handles GET /audit - displays the audit log list with filtering.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))
	startDate := strings.TrimSpace(query.Get(r, "start_date"))
	endDate := strings.TrimSpace(query.Get(r, "end_date"))
	page := paging.ParsePage(r)

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
	}
	if t, err := time.Parse(dateLayout, startDate); err == nil {
		filter.StartTime = &t
	} else {
		startDate = ""
	}
	if t, err := time.Parse(dateLayout, endDate); err == nil {
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	} else {
		endDate = ""
	}

	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events failed", err, "A database error occurred.", rbac.DefaultPath)
		return
	}

	page = paging.Clamp(page, paging.TotalPages(int(total), pageSize))
	filter.Limit = pageSize
	filter.Offset = int64((page - 1) * pageSize)

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "A database error occurred.", rbac.DefaultPath)
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, newListItem(e))
	}

	pg := paging.Compute(page, pageSize, int(total), len(items)).
		WithLinks(Path, r.URL.Query())

	h.Log.Debug("audit log listed",
		zap.String("category", category),
		zap.String("event_type", eventType),
		zap.Int64("total", total))

	templates.Render(w, r, "audit_list", listData{
		BaseVM:     viewdata.NewBaseVM(r, "Audit Log", rbac.DefaultPath),
		Items:      items,
		Category:   category,
		EventType:  eventType,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Page:       pg,
	})
}

func newListItem(e audit.Event) listItem {
	item := listItem{
		When:      e.Timestamp.Local().Format(whenLayout),
		Category:  e.Category,
		EventType: e.EventType,
		Who:       e.Email,
		Role:      e.Role,
		IP:        e.IP,
		Path:      e.Path,
		Success:   e.Success,
		Reason:    e.FailureReason,
		Details:   formatDetails(e.Details),
	}
	if item.Who == "" && e.UserID != nil {
		item.Who = "user " + strconv.FormatInt(*e.UserID, 10)
	}
	return item
}

// formatDetails renders details as "k=v" pairs in key order.
func formatDetails(d map[string]string) string {
	if len(d) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, ", ")
}
