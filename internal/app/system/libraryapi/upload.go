package libraryapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
)

// BookUpload is a new catalog entry with its PDF.
type BookUpload struct {
	Title      string
	Author     string
	CategoryID int64
	GradeID    int64
	FileName   string
	File       io.Reader
}

// UploadBook sends a multipart create request. The backend answers 201 on
// success.
func (c *Client) UploadBook(ctx context.Context, token string, up BookUpload) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf_file"; filename=%q`, up.FileName))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("libraryapi: upload_book: %w", err)
	}
	if _, err := io.Copy(part, up.File); err != nil {
		return fmt.Errorf("libraryapi: upload_book: read file: %w", err)
	}

	fields := []struct{ k, v string }{
		{"title", up.Title},
		{"author", up.Author},
		{"category_id", strconv.FormatInt(up.CategoryID, 10)},
		{"grade_id", strconv.FormatInt(up.GradeID, 10)},
		{"file_type", "PDF"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.k, f.v); err != nil {
			return fmt.Errorf("libraryapi: upload_book: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("libraryapi: upload_book: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/books/", nil), &buf)
	if err != nil {
		return fmt.Errorf("libraryapi: upload_book: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do("upload_book", token, req, http.StatusCreated)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
