// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the number of books per catalog page.
const PageSize = 10

// SelectionSize is how many books the selection view lists at once.
const SelectionSize = 50

// ParsePage extracts the 1-based "page" query parameter.
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	s := query.Get(r, "page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// TotalPages returns ceil(count/size), never less than 1.
func TotalPages(count, size int) int {
	if size < 1 {
		size = PageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// Clamp forces page into [1, total].
func Clamp(page, total int) int {
	if page < 1 {
		return 1
	}
	if total >= 1 && page > total {
		return total
	}
	return page
}

// Page holds the values a pager template needs.
type Page struct {
	Number  int // current page, 1-based
	Total   int // total pages, at least 1
	Count   int // total rows across all pages
	Start   int // 1-based index of the first row shown (0 if none)
	End     int // 1-based index of the last row shown (0 if none)
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int

	// Set by WithLinks.
	PrevURL string
	NextURL string
}

// Compute builds a Page for the given page number, page size, total row
// count and number of rows actually shown.
func Compute(page, size, count, shown int) Page {
	if size < 1 {
		size = PageSize
	}
	total := TotalPages(count, size)
	page = Clamp(page, total)

	p := Page{
		Number:  page,
		Total:   total,
		Count:   count,
		HasPrev: page > 1,
		HasNext: page < total,
		Prev:    page - 1,
		Next:    page + 1,
	}
	if p.Prev < 1 {
		p.Prev = 1
	}
	if p.Next > total {
		p.Next = total
	}
	if shown > 0 {
		p.Start = (page-1)*size + 1
		p.End = p.Start + shown - 1
	}
	return p
}

// WithLinks fills PrevURL and NextURL with path plus q, with the page
// parameter replaced. q itself is not modified.
func (p Page) WithLinks(path string, q url.Values) Page {
	link := func(n int) string {
		v := url.Values{}
		for k, vals := range q {
			if k != "page" {
				v[k] = vals
			}
		}
		v.Set("page", strconv.Itoa(n))
		return path + "?" + v.Encode()
	}
	if p.HasPrev {
		p.PrevURL = link(p.Prev)
	}
	if p.HasNext {
		p.NextURL = link(p.Next)
	}
	return p
}
