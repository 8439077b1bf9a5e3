// internal/domain/models/book.go
package models

import "time"

// Book is a catalog entry as served by the library backend.
//
// CategoryName and GradeName are filled in by the client from the category
// and grade lookups; the backend only guarantees the numeric references.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Category        int64     `json:"category"`
	CategoryName    string    `json:"category_name,omitempty"`
	Grade           int64     `json:"grade"`
	GradeName       string    `json:"grade_name,omitempty"`
	FileType        string    `json:"file_type,omitempty"`
	FileSize        int64     `json:"file_size,omitempty"`
	FileSizeDisplay string    `json:"file_size_display,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// Category is a subject grouping for books (e.g. "Science").
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Grade is a school grade level for books (e.g. "Grade 5").
type Grade struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
