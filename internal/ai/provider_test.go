package ai

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/gnemet/slidegen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolve(t *testing.T, name string) Provider {
	t.Helper()
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	p, err := r.Resolve(name)
	require.NoError(t, err)
	return p
}

func TestOpenAIRequestShape(t *testing.T) {
	p := mustResolve(t, "openai")

	req, err := NewRequest(context.Background(), p, "sk-test", "hello")
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "gpt-3.5-turbo", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)
	assert.EqualValues(t, 4000, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hello", msgs[0].(map[string]any)["content"])
}

func TestAnthropicRequestShape(t *testing.T) {
	p := mustResolve(t, "anthropic")

	req, err := NewRequest(context.Background(), p, "ak", "hi")
	require.NoError(t, err)

	assert.Equal(t, "https://api.anthropic.com/v1/messages", req.URL.String())
	assert.Equal(t, "ak", req.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", req.Header.Get("anthropic-version"))
	assert.Empty(t, req.Header.Get("Authorization"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "claude-sonnet-4-20250514", got["model"])
	assert.EqualValues(t, 4000, got["max_tokens"])
	_, hasTemp := got["temperature"]
	assert.False(t, hasTemp)
}

func TestGeminiKeyInQuery(t *testing.T) {
	p := mustResolve(t, "gemini")

	req, err := NewRequest(context.Background(), p, "a b&c", "hi")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", req.URL.Path)
	assert.Equal(t, "a b&c", req.URL.Query().Get("key"))
	assert.Empty(t, req.Header.Get("Authorization"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var got struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig map[string]any `json:"generationConfig"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "hi", got.Contents[0].Parts[0].Text)
	assert.InDelta(t, 0.8, got.GenerationConfig["topP"], 1e-9)
	assert.EqualValues(t, 10, got.GenerationConfig["topK"])
	assert.EqualValues(t, 4000, got.GenerationConfig["maxOutputTokens"])
}

func TestAIPipeUsesChatCompletions(t *testing.T) {
	p := mustResolve(t, "aipipe")

	req, err := NewRequest(context.Background(), p, "tok", "hi")
	require.NoError(t, err)
	assert.Equal(t, "https://aipipe.org/openai/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		provider string
		raw      string
		want     string
	}{
		{"openai", `{"choices":[{"message":{"content":"{\"slides\":[]}"}}]}`, `{"slides":[]}`},
		{"openai", `{"choices":[{"message":{"content":""}}]}`, ""},
		{"anthropic", `{"content":[{"type":"text","text":"ok"}]}`, "ok"},
		{"gemini", `{"candidates":[{"content":{"parts":[{"text":"g"}]}}]}`, "g"},
		{"aipipe", `{"choices":[{"message":{"content":"pipe"}}]}`, "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			got, err := mustResolve(t, tt.provider).ExtractText([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTextMalformed(t *testing.T) {
	tests := []struct {
		provider string
		raw      string
		display  string
	}{
		{"openai", `{"choices":[]}`, "OpenAI"},
		{"openai", `not json`, "OpenAI"},
		{"anthropic", `{"content":[]}`, "Anthropic"},
		{"anthropic", `{"content":[{"text":""}]}`, "Anthropic"},
		{"gemini", `{"candidates":[]}`, "Gemini"},
		{"gemini", `{"candidates":[{"content":{"parts":[]}}]}`, "Gemini"},
		{"aipipe", `{}`, "AIPipe"},
	}
	for _, tt := range tests {
		_, err := mustResolve(t, tt.provider).ExtractText([]byte(tt.raw))
		var fe *FormatError
		require.ErrorAs(t, err, &fe, tt.raw)
		assert.Equal(t, "Invalid "+tt.display+" response format", fe.Error())
	}
}

func TestWithSettingsOverridesBuiltin(t *testing.T) {
	r, err := NewRegistry(map[string]config.ProviderSettings{
		"Gemini": {Model: "gemini-1.5-pro", MaxTokens: 1000},
		"openai": {Endpoint: "http://proxy.local/v1/chat/completions", Temperature: 0.1},
	})
	require.NoError(t, err)

	g, err := r.Resolve("gemini")
	require.NoError(t, err)
	assert.Contains(t, g.Endpoint("k"), "/models/gemini-1.5-pro:generateContent?key=k")

	o, err := r.Resolve("openai")
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local/v1/chat/completions", o.Endpoint("k"))
	body := o.Body("x").(chatRequest)
	assert.Equal(t, "gpt-3.5-turbo", body.Model)
	assert.InDelta(t, 0.1, body.Temperature, 1e-9)
}
