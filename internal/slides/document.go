package slides

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// DefaultPresentationTitle is used when the model leaves presentationTitle empty.
const DefaultPresentationTitle = "Generated Presentation"

// Document is the canonical slide outline. It is built once by Parse and not
// modified afterwards.
type Document struct {
	PresentationTitle string  `json:"presentationTitle"`
	TotalSlides       int     `json:"totalSlides"`
	Slides            []Slide `json:"slides"`
}

type Slide struct {
	Title   string   `json:"title"`
	Content *Content `json:"content,omitempty"`
	Type    string   `json:"type,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// Content is either an ordered list of bullets or a single paragraph.
type Content struct {
	Bullets   []string
	Paragraph string
	list      bool
}

func BulletContent(items ...string) *Content {
	return &Content{Bullets: items, list: true}
}

func ParagraphContent(text string) *Content {
	return &Content{Paragraph: text}
}

// IsList reports whether the content came as a sequence.
func (c *Content) IsList() bool {
	return c != nil && c.list
}

// Empty is true for an absent content, an empty list or an empty paragraph.
func (c *Content) Empty() bool {
	if c == nil {
		return true
	}
	if c.list {
		return len(c.Bullets) == 0
	}
	return c.Paragraph == ""
}

func (c *Content) MarshalJSON() ([]byte, error) {
	if c.list {
		items := c.Bullets
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(c.Paragraph)
}

// UnmarshalJSON accepts a string, an array or any other scalar. Array items
// that are not strings are kept in their JSON text form.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty content")
	}
	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		c.list = true
		c.Bullets = make([]string, 0, len(items))
		for _, item := range items {
			c.Bullets = append(c.Bullets, scalarText(item))
		}
		return nil
	default:
		c.list = false
		c.Bullets = nil
		c.Paragraph = scalarText(data)
		return nil
	}
}

// scalarText renders a JSON value as display text: strings are unquoted,
// null is empty and everything else keeps its compact JSON form.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// positiveInt returns the integral value of a JSON number in [1, MaxInt32].
func positiveInt(raw json.RawMessage) (int, bool) {
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil || !(f >= 1 && f <= math.MaxInt32) {
		return 0, false
	}
	return int(f), true
}
