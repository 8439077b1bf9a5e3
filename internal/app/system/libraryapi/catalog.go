package libraryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/questionbank/internal/domain/models"
)

// BookQuery filters the catalog. Zero Category or Grade means any.
type BookQuery struct {
	Search   string
	Category int64
	Grade    int64
	Page     int
	PageSize int
}

func (q BookQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category > 0 {
		v.Set("category", strconv.FormatInt(q.Category, 10))
	}
	if q.Grade > 0 {
		v.Set("grade", strconv.FormatInt(q.Grade, 10))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// BookPage is one page of catalog results. Count is the total across all
// pages.
type BookPage struct {
	Books []models.Book
	Count int
}

// Categories lists book categories.
func (c *Client) Categories(ctx context.Context, token string) ([]models.Category, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "categories", token, "/api/categories/", nil, &raw); err != nil {
		return nil, err
	}
	items, _, err := listOf[models.Category](raw)
	if err != nil {
		return nil, fmt.Errorf("libraryapi: categories: decode: %w", err)
	}
	return items, nil
}

// Grades lists grade levels.
func (c *Client) Grades(ctx context.Context, token string) ([]models.Grade, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "grades", token, "/api/grades/", nil, &raw); err != nil {
		return nil, err
	}
	items, _, err := listOf[models.Grade](raw)
	if err != nil {
		return nil, fmt.Errorf("libraryapi: grades: decode: %w", err)
	}
	return items, nil
}

// ListBooks returns one page of the catalog.
func (c *Client) ListBooks(ctx context.Context, token string, q BookQuery) (BookPage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "list_books", token, "/api/books/", q.values(), &raw); err != nil {
		return BookPage{}, err
	}
	books, count, err := listOf[models.Book](raw)
	if err != nil {
		return BookPage{}, fmt.Errorf("libraryapi: list_books: decode: %w", err)
	}
	return BookPage{Books: books, Count: count}, nil
}

// BookMode selects between the inline and attachment PDF endpoints.
type BookMode string

const (
	BookView     BookMode = "view"
	BookDownload BookMode = "download"
)

// BookStream is an open PDF body. The caller must Close it.
type BookStream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

func (s *BookStream) Close() error { return s.Body.Close() }

// OpenBook streams the PDF for book id.
func (c *Client) OpenBook(ctx context.Context, token string, id int64, mode BookMode) (*BookStream, error) {
	if mode != BookView && mode != BookDownload {
		return nil, fmt.Errorf("libraryapi: open_book: unknown mode %q", mode)
	}
	path := fmt.Sprintf("/api/books/%d/%s/", id, mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("libraryapi: open_book: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	resp, err := c.do("open_book", token, req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return &BookStream{Body: resp.Body, ContentType: ct, ContentLength: resp.ContentLength}, nil
}
