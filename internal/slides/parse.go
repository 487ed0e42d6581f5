package slides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNoJSON           = errors.New("no JSON object found in response")
	ErrMalformedJSON    = errors.New("response JSON is malformed")
	ErrInvalidStructure = errors.New("response JSON has no slides array")
)

// ParseError carries the raw model output so callers can show it.
type ParseError struct {
	Reason error
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse AI response into valid slide structure: %v", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Reason }

// jsonBlock spans from the first '{' to the last '}'.
var jsonBlock = regexp.MustCompile(`\{[\s\S]*\}`)

// Parse extracts and normalizes a Document from free-form model output.
// It never panics; on failure the error is a *ParseError.
func Parse(raw string) (*Document, error) {
	block := jsonBlock.FindString(raw)
	if block == "" {
		return nil, &ParseError{Reason: ErrNoJSON, Raw: raw}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &top); err != nil {
		return nil, &ParseError{Reason: fmt.Errorf("%w: %v", ErrMalformedJSON, err), Raw: raw}
	}

	rawSlides, ok := top["slides"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(rawSlides), []byte("[")) {
		return nil, &ParseError{Reason: ErrInvalidStructure, Raw: raw}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawSlides, &items); err != nil {
		return nil, &ParseError{Reason: fmt.Errorf("%w: %v", ErrInvalidStructure, err), Raw: raw}
	}

	doc := &Document{Slides: make([]Slide, 0, len(items))}
	for i, item := range items {
		doc.Slides = append(doc.Slides, parseSlide(item, i))
	}

	if n, ok := positiveInt(top["totalSlides"]); ok {
		doc.TotalSlides = n
	} else {
		doc.TotalSlides = len(doc.Slides)
	}

	doc.PresentationTitle = DefaultPresentationTitle
	if t, ok := top["presentationTitle"]; ok {
		if s := scalarText(t); strings.TrimSpace(s) != "" {
			doc.PresentationTitle = s
		}
	}

	return doc, nil
}

// parseSlide is lenient: anything that is not an object becomes an untitled slide.
func parseSlide(raw json.RawMessage, index int) Slide {
	s := Slide{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		s.Title = scalarText(fields["title"])
		s.Type = scalarText(fields["type"])
		s.Notes = scalarText(fields["notes"])
		if c, ok := fields["content"]; ok && string(bytes.TrimSpace(c)) != "null" {
			var content Content
			if err := json.Unmarshal(c, &content); err == nil {
				s.Content = &content
			}
		}
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = DefaultTitle(index)
	}
	return s
}

// DefaultTitle is the positional title for slide index (zero based).
func DefaultTitle(index int) string {
	return fmt.Sprintf("Slide %d", index+1)
}
