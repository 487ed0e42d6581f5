package ai

import "strings"

// SchemaExample is the JSON shape the prompt asks the model to return.
const SchemaExample = `{
  "slides": [
    {
      "title": "Slide Title",
      "content": ["Bullet point 1", "Bullet point 2", "Bullet point 3"],
      "type": "content",
      "notes": "Optional speaker notes"
    }
  ],
  "totalSlides": 0,
  "presentationTitle": "Overall Presentation Title"
}`

// BuildPrompt returns the instruction sent to every provider. The wording is
// the contract the slide parser relies on, so change it with care.
func BuildPrompt(text, guidance string) string {
	var b strings.Builder
	b.WriteString("Analyze the following text and break it into a PowerPoint presentation structure. ")
	if guidance != "" {
		b.WriteString("Context: ")
		b.WriteString(guidance)
	}
	b.WriteString(`

Create 5-12 slides based on the content. For each slide, provide:
1. A clear, concise title (max 10 words)
2. Key content points (2-5 bullet points or 1-2 short paragraphs)
3. Slide type (title, content, summary, etc.)

Text to analyze:
`)
	b.WriteString(text)
	b.WriteString(`

Please respond in the following JSON format:
`)
	b.WriteString(SchemaExample)
	b.WriteString(`

IMPORTANT: Return ONLY the JSON object, no additional text or explanation.`)
	return b.String()
}
