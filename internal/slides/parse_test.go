package slides

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/gnemet/slidegen/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIsTotal(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason error
	}{
		{"empty", "", ErrNoJSON},
		{"prose", "Sorry, I cannot help with that.", ErrNoJSON},
		{"unterminated", "Here you go: {\"slides\": [", ErrNoJSON},
		{"malformed block", "Here you go: {\"slides\": [}", ErrMalformedJSON},
		{"missing slides", `{"presentationTitle":"x"}`, ErrInvalidStructure},
		{"slides not array", `{"slides":{"title":"x"}}`, ErrInvalidStructure},
		{"slides null", `{"slides":null}`, ErrInvalidStructure},
		{"braces in prose", "use {curly} and then {\"slides\":[]}", ErrMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.raw)
			assert.Nil(t, doc)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.True(t, errors.Is(err, tt.reason), err.Error())
			assert.Equal(t, tt.raw, pe.Raw)
			assert.True(t, strings.HasPrefix(pe.Error(), "Failed to parse AI response into valid slide structure"))
		})
	}
}

func TestParseEmbeddedInProse(t *testing.T) {
	raw := "Sure! Here is the outline:\n```json\n" +
		`{"slides":[{"title":"Intro","content":["a","b"],"type":"title"}],"totalSlides":1,"presentationTitle":"Demo"}` +
		"\n```\nLet me know if you need more."

	doc, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Demo", doc.PresentationTitle)
	assert.Equal(t, 1, doc.TotalSlides)
	require.Len(t, doc.Slides, 1)
	assert.Equal(t, "Intro", doc.Slides[0].Title)
	assert.Equal(t, "title", doc.Slides[0].Type)
	assert.True(t, doc.Slides[0].Content.IsList())
	assert.Equal(t, []string{"a", "b"}, doc.Slides[0].Content.Bullets)
}

func TestParseDefaults(t *testing.T) {
	doc, err := Parse(`{"slides":[{"content":"just text"},{"title":""},"oops",{"title":"Last","content":null}]}`)
	require.NoError(t, err)

	assert.Equal(t, DefaultPresentationTitle, doc.PresentationTitle)
	assert.Equal(t, 4, doc.TotalSlides)
	require.Len(t, doc.Slides, 4)

	assert.Equal(t, "Slide 1", doc.Slides[0].Title)
	assert.False(t, doc.Slides[0].Content.IsList())
	assert.Equal(t, "just text", doc.Slides[0].Content.Paragraph)

	assert.Equal(t, "Slide 2", doc.Slides[1].Title)
	assert.Nil(t, doc.Slides[1].Content)
	assert.Equal(t, "Slide 3", doc.Slides[2].Title)
	assert.Equal(t, "Last", doc.Slides[3].Title)
	assert.True(t, doc.Slides[3].Content.Empty())
}

func TestParseTotalSlides(t *testing.T) {
	tests := map[string]int{
		`{"slides":[{},{}],"totalSlides":0}`:          2,
		`{"slides":[{},{}],"totalSlides":7}`:          7,
		`{"slides":[{},{}],"totalSlides":"7"}`:        2,
		`{"slides":[{},{}],"totalSlides":-3}`:         2,
		`{"slides":[{},{}],"totalSlides":null}`:       2,
		`{"slides":[{},{}],"totalSlides":3.9}`:        3,
		`{"slides":[{},{}],"totalSlides":1e300}`:      2,
		`{"slides":[{},{}],"totalSlides":9.3e18}`:     2,
		`{"slides":[{},{}],"totalSlides":2147483648}`: 2,
		`{"slides":[],"presentationTitle":"  "}`:      0,
	}
	for raw, want := range tests {
		doc, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, doc.TotalSlides, raw)
	}
}

func TestParseLenientContent(t *testing.T) {
	doc, err := Parse(`{"slides":[{"title":"Numbers","content":[1, true, "three", {"k":"v"}]},{"title":"N","content":42}]}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "true", "three", `{"k":"v"}`}, doc.Slides[0].Content.Bullets)
	assert.Equal(t, "42", doc.Slides[1].Content.Paragraph)
}

func TestParseSchemaExampleRoundTrip(t *testing.T) {
	var example struct {
		Slides []json.RawMessage `json:"slides"`
	}
	require.NoError(t, json.Unmarshal([]byte(ai.SchemaExample), &example))

	doc, err := Parse(ai.SchemaExample)
	require.NoError(t, err)
	assert.Len(t, doc.Slides, len(example.Slides))
	assert.Equal(t, len(doc.Slides), doc.TotalSlides)
	assert.Equal(t, "Overall Presentation Title", doc.PresentationTitle)
	assert.Equal(t, "Optional speaker notes", doc.Slides[0].Notes)
}

func TestParseExplicitTotalRoundTrip(t *testing.T) {
	in := &Document{
		PresentationTitle: "Roadmap",
		TotalSlides:       2,
		Slides: []Slide{
			{Title: "One", Content: BulletContent("x", "y"), Type: "content"},
			{Title: "Two", Content: ParagraphContent("para"), Notes: "say hi"},
		},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := Parse(string(data))
	require.NoError(t, err)
	assert.Equal(t, in.PresentationTitle, out.PresentationTitle)
	assert.Equal(t, len(out.Slides), out.TotalSlides)
	assert.Equal(t, in.Slides[0].Content.Bullets, out.Slides[0].Content.Bullets)
	assert.Equal(t, "para", out.Slides[1].Content.Paragraph)
	assert.Equal(t, "say hi", out.Slides[1].Notes)
}

func TestContentMarshal(t *testing.T) {
	data, err := json.Marshal(Slide{Title: "t", Content: BulletContent()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t","content":[]}`, string(data))

	data, err = json.Marshal(Slide{Title: "t"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t"}`, string(data))
}
