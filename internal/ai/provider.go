package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gnemet/slidegen/internal/config"
)

// Provider describes how to talk to one text-generation API. It performs no
// I/O itself; the Client turns the description into a single HTTP call.
type Provider interface {
	// Name is the registry key, e.g. "openai".
	Name() string
	// Endpoint may depend on the caller's key (Gemini passes it in the query).
	Endpoint(apiKey string) string
	Headers(apiKey string) http.Header
	Body(prompt string) any
	// ExtractText returns the generated text from a raw response body or a
	// *FormatError naming the provider.
	ExtractText(raw []byte) (string, error)
}

// Drivers understood in ai.providers.<name>.driver.
const (
	DriverOpenAI    = "openai"
	DriverAnthropic = "anthropic"
	DriverGemini    = "gemini"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000
	anthropicVersion   = "2023-06-01"
)

// NewRequest builds the outbound HTTP request for p.
func NewRequest(ctx context.Context, p Provider, apiKey, prompt string) (*http.Request, error) {
	payload, err := json.Marshal(p.Body(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", p.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(apiKey), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", p.Name(), err)
	}
	for k, vals := range p.Headers(apiKey) {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// --- OpenAI-style chat completions (also AIPipe and compatible proxies) ---

type chatCompletions struct {
	name        string
	display     string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *chatCompletions) Name() string                  { return c.name }
func (c *chatCompletions) Endpoint(apiKey string) string { return c.endpoint }

func (c *chatCompletions) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}

func (c *chatCompletions) Body(prompt string) any {
	return chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}

func (c *chatCompletions) ExtractText(raw []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &FormatError{Provider: c.display, Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return "", &FormatError{Provider: c.display}
	}
	return *resp.Choices[0].Message.Content, nil
}

// --- Anthropic messages API ---

type anthropicMessages struct {
	name        string
	display     string
	endpoint    string
	model       string
	temperature float64 // zero leaves the API default
	maxTokens   int
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (a *anthropicMessages) Name() string                  { return a.name }
func (a *anthropicMessages) Endpoint(apiKey string) string { return a.endpoint }

func (a *anthropicMessages) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", anthropicVersion)
	return h
}

func (a *anthropicMessages) Body(prompt string) any {
	return anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: a.temperature,
	}
}

func (a *anthropicMessages) ExtractText(raw []byte) (string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &FormatError{Provider: a.display, Err: err}
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", &FormatError{Provider: a.display}
	}
	return resp.Content[0].Text, nil
}

// --- Gemini generateContent ---

type gemini struct {
	name        string
	display     string
	endpoint    string // without the key parameter
	temperature float64
	maxTokens   int
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func geminiEndpoint(model string) string {
	return fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
}

func (g *gemini) Name() string { return g.name }

// Endpoint carries the key as a query parameter; Gemini takes no auth header.
func (g *gemini) Endpoint(apiKey string) string {
	sep := "?"
	if strings.Contains(g.endpoint, "?") {
		sep = "&"
	}
	return g.endpoint + sep + "key=" + url.QueryEscape(apiKey)
}

func (g *gemini) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

func (g *gemini) Body(prompt string) any {
	return geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
			TopP:            0.8,
			TopK:            10,
		},
	}
}

func (g *gemini) ExtractText(raw []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &FormatError{Provider: g.display, Err: err}
	}
	if len(resp.Candidates) == 0 {
		return "", &FormatError{Provider: g.display}
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == nil {
		return "", &FormatError{Provider: g.display}
	}
	return *content.Parts[0].Text, nil
}

// builtins returns the adapters every deployment knows, in registration order.
func builtins() []Provider {
	return []Provider{
		&chatCompletions{
			name:        "openai",
			display:     "OpenAI",
			endpoint:    "https://api.openai.com/v1/chat/completions",
			model:       "gpt-3.5-turbo",
			temperature: defaultTemperature,
			maxTokens:   defaultMaxTokens,
		},
		&anthropicMessages{
			name:      "anthropic",
			display:   "Anthropic",
			endpoint:  "https://api.anthropic.com/v1/messages",
			model:     "claude-sonnet-4-20250514",
			maxTokens: defaultMaxTokens,
		},
		&gemini{
			name:        "gemini",
			display:     "Gemini",
			endpoint:    geminiEndpoint("gemini-2.0-flash"),
			temperature: defaultTemperature,
			maxTokens:   defaultMaxTokens,
		},
		&chatCompletions{
			name:        "aipipe",
			display:     "AIPipe",
			endpoint:    "https://aipipe.org/openai/v1/chat/completions",
			model:       "gpt-4o-mini",
			temperature: defaultTemperature,
			maxTokens:   defaultMaxTokens,
		},
	}
}

// fromDriver creates a configured adapter for a name the built-ins don't cover.
func fromDriver(name string, s config.ProviderSettings) (Provider, error) {
	var p Provider
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	switch driver {
	case DriverOpenAI:
		p = &chatCompletions{name: name, display: name, temperature: defaultTemperature, maxTokens: defaultMaxTokens}
	case DriverAnthropic:
		p = &anthropicMessages{name: name, display: name, maxTokens: defaultMaxTokens}
	case DriverGemini:
		p = &gemini{name: name, display: name, temperature: defaultTemperature, maxTokens: defaultMaxTokens}
	default:
		return nil, fmt.Errorf("provider %q: unknown driver %q", name, s.Driver)
	}
	if s.Endpoint == "" && driver != DriverGemini {
		return nil, fmt.Errorf("provider %q: endpoint is required", name)
	}
	if s.Model == "" {
		return nil, fmt.Errorf("provider %q: model is required", name)
	}
	return withSettings(p, s), nil
}

// withSettings returns a copy of p with the non-zero settings applied.
func withSettings(p Provider, s config.ProviderSettings) Provider {
	switch v := p.(type) {
	case *chatCompletions:
		c := *v
		if s.Endpoint != "" {
			c.endpoint = s.Endpoint
		}
		if s.Model != "" {
			c.model = s.Model
		}
		if s.Temperature > 0 {
			c.temperature = s.Temperature
		}
		if s.MaxTokens > 0 {
			c.maxTokens = s.MaxTokens
		}
		return &c
	case *anthropicMessages:
		a := *v
		if s.Endpoint != "" {
			a.endpoint = s.Endpoint
		}
		if s.Model != "" {
			a.model = s.Model
		}
		if s.Temperature > 0 {
			a.temperature = s.Temperature
		}
		if s.MaxTokens > 0 {
			a.maxTokens = s.MaxTokens
		}
		return &a
	case *gemini:
		g := *v
		if s.Model != "" {
			g.endpoint = geminiEndpoint(s.Model)
		}
		if s.Endpoint != "" {
			g.endpoint = s.Endpoint
		}
		if s.Temperature > 0 {
			g.temperature = s.Temperature
		}
		if s.MaxTokens > 0 {
			g.maxTokens = s.MaxTokens
		}
		return &g
	}
	return p
}
