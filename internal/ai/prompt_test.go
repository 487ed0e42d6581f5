package ai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptWithoutGuidance(t *testing.T) {
	p := BuildPrompt("The quarterly numbers.", "")

	assert.True(t, strings.HasPrefix(p,
		"Analyze the following text and break it into a PowerPoint presentation structure. \n\nCreate 5-12 slides"))
	assert.NotContains(t, p, "Context:")
	assert.Contains(t, p, "Text to analyze:\nThe quarterly numbers.\n\nPlease respond")
	assert.True(t, strings.HasSuffix(p, "IMPORTANT: Return ONLY the JSON object, no additional text or explanation."))
}

func TestBuildPromptWithGuidance(t *testing.T) {
	p := BuildPrompt("body", "board meeting")
	assert.Contains(t, p, "presentation structure. Context: board meeting\n\nCreate 5-12 slides")
}

func TestBuildPromptIsPure(t *testing.T) {
	assert.Equal(t, BuildPrompt("a", "b"), BuildPrompt("a", "b"))
}

func TestSchemaExampleIsValidJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(SchemaExample), &v))
	assert.Contains(t, v, "slides")
	assert.Contains(t, v, "presentationTitle")
}
