// Package outline renders a slide document as Markdown or sanitized HTML
// for previews and offline export.
package outline

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/gnemet/slidegen/internal/slides"
)

// Markdown writes the presentation title as a level one heading and each
// slide as a numbered level two heading followed by its content and notes.
func Markdown(doc *slides.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", singleLine(doc.PresentationTitle))

	for i, s := range doc.Slides {
		title := s.Title
		if title == "" {
			title = slides.DefaultTitle(i)
		}
		fmt.Fprintf(&b, "\n## %d. %s\n", i+1, singleLine(title))

		switch {
		case s.Content.Empty():
		case s.Content.IsList():
			b.WriteString("\n")
			for _, item := range s.Content.Bullets {
				fmt.Fprintf(&b, "- %s\n", singleLine(item))
			}
		default:
			fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(s.Content.Paragraph))
		}

		if notes := strings.TrimSpace(s.Notes); notes != "" {
			fmt.Fprintf(&b, "\n> Notes: %s\n", singleLine(notes))
		}
	}
	return b.String()
}

// HTML converts the Markdown outline and sanitizes the result. Model output
// is untrusted, so raw HTML in it never survives.
func HTML(doc *slides.Document) string {
	rendered := blackfriday.Run([]byte(Markdown(doc)))
	return string(sanitizer.SanitizeBytes(rendered))
}

var sanitizer = newSanitizer()

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("p", "br", "hr")
	p.AllowElements("strong", "b", "em", "i", "del", "code", "pre")
	p.AllowElements("ul", "ol", "li", "blockquote")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)

	return p
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
