package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnemet/slidegen/internal/ai"
	"github.com/gnemet/slidegen/internal/config"
	"github.com/gnemet/slidegen/internal/pptx"
	"github.com/gnemet/slidegen/internal/slides"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubProvider answers every chat completion with content.
func stubProvider(t *testing.T, status int, content string) (*Service, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		if status == http.StatusOK {
			payload := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": content}}}}
			json.NewEncoder(w).Encode(payload)
			return
		}
		io.WriteString(w, content)
	}))
	t.Cleanup(srv.Close)

	registry, err := ai.NewRegistry(map[string]config.ProviderSettings{"openai": {Endpoint: srv.URL}})
	require.NoError(t, err)
	client := ai.NewClient(registry, 5*time.Second, quietLogger)
	return NewService(registry, client, pptx.NewRenderer(quietLogger), quietLogger), calls
}

func validRequest() Request {
	return Request{Text: "The sky is blue. Water is wet.", Provider: "openai", APIKey: "sk-test"}
}

var slideXML = regexp.MustCompile(`^ppt/slides/slide\d+\.xml$`)

func countSlides(t *testing.T, data []byte) int {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	n := 0
	for _, f := range zr.File {
		if slideXML.MatchString(f.Name) {
			n++
		}
	}
	return n
}

func TestGenerateEndToEnd(t *testing.T) {
	svc, calls := stubProvider(t, http.StatusOK,
		`{"slides":[{"title":"Sky","content":["Blue"]}],"presentationTitle":"Demo"}`)

	res, err := svc.Generate(context.Background(), validRequest(), nil)
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "Demo", res.Title)
	assert.Equal(t, "Demo.pptx", res.Filename)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("PK\x03\x04")))
	assert.Equal(t, 1, countSlides(t, res.Data))
	assert.Equal(t, 1, res.Document.TotalSlides)
}

func TestGenerateWithUnreadableTemplate(t *testing.T) {
	svc, _ := stubProvider(t, http.StatusOK, `{"slides":[{"title":"A"},{"title":"B"}]}`)

	res, err := svc.Generate(context.Background(), validRequest(), []byte("not a zip"))
	require.NoError(t, err)
	assert.Equal(t, 2, countSlides(t, res.Data))
	assert.Equal(t, "Generated_Presentation.pptx", res.Filename)
}

func TestAnalyzeValidation(t *testing.T) {
	svc, calls := stubProvider(t, http.StatusOK, `{}`)

	tests := map[string]Request{
		"no text":     {Provider: "openai", APIKey: "k"},
		"no provider": {Text: "t", APIKey: "k"},
		"no key":      {Text: "t", Provider: "openai"},
	}
	for name, req := range tests {
		_, err := svc.Analyze(context.Background(), req)
		var se *StageError
		require.ErrorAs(t, err, &se, name)
		assert.Equal(t, StageValidated, se.Stage)
		assert.ErrorIs(t, err, ErrMissingFields)
	}

	_, err := svc.Analyze(context.Background(), Request{Text: "t", Provider: "mistral", APIKey: "k"})
	var ue *ai.UnsupportedProviderError
	require.ErrorAs(t, err, &ue)
	assert.EqualValues(t, 0, calls.Load())
}

func TestAnalyzeProviderHTTPError(t *testing.T) {
	svc, _ := stubProvider(t, http.StatusTooManyRequests, `{"error":"slow down"}`)

	_, err := svc.Analyze(context.Background(), validRequest())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageProviderCalled, se.Stage)
	assert.Equal(t, "openai", se.Provider)

	var he *ai.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
}

func TestAnalyzeParseFailure(t *testing.T) {
	svc, _ := stubProvider(t, http.StatusOK, "I could not do that.")

	_, err := svc.Analyze(context.Background(), validRequest())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageParsed, se.Stage)

	var pe *slides.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "I could not do that.", pe.Raw)
	assert.True(t, errors.Is(err, slides.ErrNoJSON))
}

func TestAnalyzeExtractionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	registry, err := ai.NewRegistry(map[string]config.ProviderSettings{"openai": {Endpoint: srv.URL}})
	require.NoError(t, err)
	svc := NewService(registry, ai.NewClient(registry, time.Second, quietLogger), pptx.NewRenderer(quietLogger), quietLogger)

	_, err = svc.Analyze(context.Background(), validRequest())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageResponseExtracted, se.Stage)
}

func TestFilename(t *testing.T) {
	tests := map[string]string{
		"Demo":               "Demo.pptx",
		"Q3 Review: 2024!":   "Q3_Review__2024_.pptx",
		"Café":               "Caf_.pptx",
		"":                   ".pptx",
		"already_underscore": "already_underscore.pptx",
	}
	for in, want := range tests {
		assert.Equal(t, want, Filename(in), in)
	}
	assert.False(t, strings.ContainsAny(Filename("a/b\\c\"d"), "/\\\""))
}
