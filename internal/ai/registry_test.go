package ai

import (
	"testing"

	"github.com/gnemet/slidegen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"openai", "anthropic", "gemini", "aipipe"}, r.Names())

	for _, name := range []string{"openai", " OpenAI ", "ANTHROPIC", "gemini", "AiPipe"} {
		p, err := r.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, NormalizeName(name), p.Name())
	}
}

func TestRegistryUnsupported(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	_, err = r.Resolve("cohere")
	var ue *UnsupportedProviderError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Unsupported provider: cohere. Supported: openai, anthropic, gemini, aipipe", err.Error())
}

func TestRegistryNamesIsCopy(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	names := r.Names()
	names[0] = "mutated"
	assert.Equal(t, "openai", r.Names()[0])
}

func TestRegistryExtraProviders(t *testing.T) {
	r, err := NewRegistry(map[string]config.ProviderSettings{
		"zeta":   {Driver: "anthropic", Endpoint: "http://z.local/v1/messages", Model: "z-1"},
		"Local":  {Driver: "OpenAI", Endpoint: "http://localhost:11434/v1/chat/completions", Model: "llama3"},
		"vertex": {Driver: "gemini", Model: "gemini-exp"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"openai", "anthropic", "gemini", "aipipe", "local", "vertex", "zeta"}, r.Names())

	local, err := r.Resolve("local")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", local.Endpoint("k"))
	assert.Equal(t, "Bearer k", local.Headers("k").Get("Authorization"))

	vertex, err := r.Resolve("vertex")
	require.NoError(t, err)
	assert.Contains(t, vertex.Endpoint("k"), "/models/gemini-exp:generateContent?key=k")
}

func TestRegistryRejectsBadExtra(t *testing.T) {
	tests := map[string]config.ProviderSettings{
		"unknown driver": {Driver: "cohere", Endpoint: "http://x", Model: "m"},
		"no endpoint":    {Driver: "openai", Model: "m"},
		"no model":       {Driver: "anthropic", Endpoint: "http://x"},
	}
	for name, s := range tests {
		_, err := NewRegistry(map[string]config.ProviderSettings{"extra": s})
		assert.Error(t, err, name)
	}
}
