// Package htmlsanitize cleans text that comes back from the library backend
// before it reaches a template. Question text is model-generated and may
// carry stray markup; book titles and error details should never render as
// HTML at all.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()

	// inline allows the handful of elements that show up in generated
	// questions: emphasis, code, and sub/superscripts for formulas.
	inline = func() *bluemonday.Policy {
		p := bluemonday.NewPolicy()
		p.AllowElements("b", "strong", "i", "em", "u", "code", "sub", "sup", "br", "p")
		return p
	}()
)

// Text strips every tag from s and returns plain text. Entities are decoded
// so the template layer escapes the result exactly once.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Sanitize keeps the inline formatting subset and drops everything else.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return inline.Sanitize(s)
}

// IsPlainText reports whether s contains no HTML tags.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || strict.Sanitize(s) == html.EscapeString(s)
}

// PrepareForDisplay returns s ready for a template. Plain text is escaped
// with newlines turned into <br>; markup goes through Sanitize.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(strings.ReplaceAll(html.EscapeString(s), "\n", "<br>"))
	}
	return template.HTML(Sanitize(s))
}
