// Package catalog loads the book list with its category and grade filters.
// The catalog, selection and import views all render from it.
package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/questionbank/internal/app/system/htmlsanitize"
	"github.com/dalemusser/questionbank/internal/app/system/libraryapi"
	"github.com/dalemusser/questionbank/internal/app/system/paging"
	"github.com/dalemusser/questionbank/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"golang.org/x/sync/errgroup"
)

// LoadFailedMessage is shown when any of the three catalog requests fails.
const LoadFailedMessage = "Failed to load books and filters"

// Filter is the catalog query a user can express in the URL.
// Category and Grade are 0 for "all".
type Filter struct {
	Search   string
	Category int64
	Grade    int64
	Page     int
}

// ParseFilter reads q, category, grade and page from the request.
func ParseFilter(r *http.Request) Filter {
	return Filter{
		Search:   query.Get(r, "q"),
		Category: parseID(query.Get(r, "category")),
		Grade:    parseID(query.Get(r, "grade")),
		Page:     paging.ParsePage(r),
	}
}

// parseID accepts a positive id; "all", "" and junk mean no filter.
func parseID(s string) int64 {
	if s == "" || strings.EqualFold(s, "all") {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Values renders the filter back into query parameters, page excluded.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.Category > 0 {
		v.Set("category", strconv.FormatInt(f.Category, 10))
	}
	if f.Grade > 0 {
		v.Set("grade", strconv.FormatInt(f.Grade, 10))
	}
	return v
}

func (f Filter) bookQuery(pageSize int) libraryapi.BookQuery {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return libraryapi.BookQuery{
		Search:   f.Search,
		Category: f.Category,
		Grade:    f.Grade,
		Page:     page,
		PageSize: pageSize,
	}
}

// Source is the subset of the backend client the catalog reads from.
type Source interface {
	Categories(ctx context.Context, token string) ([]models.Category, error)
	Grades(ctx context.Context, token string) ([]models.Grade, error)
	ListBooks(ctx context.Context, token string, q libraryapi.BookQuery) (libraryapi.BookPage, error)
}

// Row is a book ready for display.
type Row struct {
	ID            int64
	Title         string
	Author        string
	CategoryLabel string
	GradeLabel    string
	FileType      string
	SizeLabel     string
	UploadedLabel string
}

// Result is one loaded catalog page.
type Result struct {
	Categories []models.Category
	Grades     []models.Grade
	Rows       []Row
	Count      int
}

// Load fetches categories, grades and the requested page of books
// concurrently. Any failure fails the whole load.
func Load(ctx context.Context, src Source, token string, f Filter, pageSize int) (Result, error) {
	var (
		res  Result
		page libraryapi.BookPage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Categories, err = src.Categories(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		res.Grades, err = src.Grades(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		page, err = src.ListBooks(gctx, token, f.bookQuery(pageSize))
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	catNames := make(map[int64]string, len(res.Categories))
	for _, c := range res.Categories {
		catNames[c.ID] = c.Name
	}
	gradeNames := make(map[int64]string, len(res.Grades))
	for _, gr := range res.Grades {
		gradeNames[gr.ID] = gr.Name
	}

	res.Count = page.Count
	res.Rows = make([]Row, 0, len(page.Books))
	for _, b := range page.Books {
		res.Rows = append(res.Rows, NewRow(b, catNames, gradeNames))
	}
	return res, nil
}

// NewRow prepares b for display. Lookup misses fall back to the name the
// backend embedded in the book, then to "Category <id>" / "Grade <id>".
func NewRow(b models.Book, catNames, gradeNames map[int64]string) Row {
	return Row{
		ID:            b.ID,
		Title:         htmlsanitize.Text(b.Title),
		Author:        htmlsanitize.Text(b.Author),
		CategoryLabel: label(catNames, b.Category, b.CategoryName, "Category"),
		GradeLabel:    label(gradeNames, b.Grade, b.GradeName, "Grade"),
		FileType:      b.FileType,
		SizeLabel:     sizeLabel(b),
		UploadedLabel: uploadedLabel(b),
	}
}

func label(names map[int64]string, id int64, embedded, kind string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	if embedded != "" {
		return embedded
	}
	return kind + " " + strconv.FormatInt(id, 10)
}

func sizeLabel(b models.Book) string {
	if b.FileSizeDisplay != "" {
		return b.FileSizeDisplay
	}
	if b.FileSize <= 0 {
		return ""
	}
	return FormatSize(b.FileSize)
}

func uploadedLabel(b models.Book) string {
	if b.UploadedAt.IsZero() {
		return ""
	}
	return b.UploadedAt.Format("Jan 2, 2006")
}

// FormatSize renders a byte count the way the backend does ("1.2 MB").
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGT"[exp]) + "B"
}
