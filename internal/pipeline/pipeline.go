// Package pipeline runs one generation request through its stages:
// validation, prompt building, the provider call, parsing, optional theme
// extraction and rendering. Each call is independent; the Service holds only
// immutable collaborators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/gnemet/slidegen/internal/ai"
	"github.com/gnemet/slidegen/internal/pptx"
	"github.com/gnemet/slidegen/internal/slides"
)

type Stage string

const (
	StageReceived          Stage = "Received"
	StageValidated         Stage = "Validated"
	StagePromptBuilt       Stage = "PromptBuilt"
	StageProviderCalled    Stage = "ProviderCalled"
	StageResponseExtracted Stage = "ResponseExtracted"
	StageParsed            Stage = "Parsed"
	StageThemeExtracted    Stage = "ThemeExtracted"
	StageRendered          Stage = "Rendered"
)

// ErrMissingFields is the validation failure for an incomplete request.
var ErrMissingFields = errors.New("Missing required fields: text, provider, and apiKey are required")

// StageError reports the stage a request stopped at.
type StageError struct {
	Stage    Stage
	Provider string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Request struct {
	Text     string
	Guidance string
	Provider string
	APIKey   string
}

// Result is a rendered presentation ready to send.
type Result struct {
	Title    string
	Filename string
	Document *slides.Document
	Data     []byte
}

// Completer performs the outbound provider call.
type Completer interface {
	Complete(ctx context.Context, p ai.Provider, apiKey, prompt string) (string, error)
}

type Service struct {
	registry *ai.Registry
	client   Completer
	renderer *pptx.Renderer
	logger   *slog.Logger
}

func NewService(registry *ai.Registry, client Completer, renderer *pptx.Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		client:   client,
		renderer: renderer,
		logger:   logger.With("component", "pipeline"),
	}
}

func (s *Service) Providers() []string {
	return s.registry.Names()
}

// Validate checks the request fields and resolves the provider.
func (s *Service) Validate(req Request) (ai.Provider, error) {
	if req.Text == "" || req.Provider == "" || req.APIKey == "" {
		return nil, &StageError{Stage: StageValidated, Err: ErrMissingFields}
	}
	p, err := s.registry.Resolve(req.Provider)
	if err != nil {
		return nil, &StageError{Stage: StageValidated, Provider: req.Provider, Err: err}
	}
	return p, nil
}

// Analyze runs the request up to and including parsing.
func (s *Service) Analyze(ctx context.Context, req Request) (*slides.Document, error) {
	p, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, p, req)
}

func (s *Service) analyze(ctx context.Context, p ai.Provider, req Request) (*slides.Document, error) {
	prompt := ai.BuildPrompt(req.Text, req.Guidance)
	s.logger.InfoContext(ctx, "analyzing text", "provider", p.Name(), "chars", len(req.Text))

	start := time.Now()
	raw, err := s.client.Complete(ctx, p, req.APIKey, prompt)
	if err != nil {
		stage := StageProviderCalled
		var fe *ai.FormatError
		if errors.As(err, &fe) {
			stage = StageResponseExtracted
		}
		return nil, &StageError{Stage: stage, Provider: p.Name(), Err: err}
	}

	doc, err := slides.Parse(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to parse provider response", "provider", p.Name(), "error", err)
		return nil, &StageError{Stage: StageParsed, Provider: p.Name(), Err: err}
	}
	s.logger.InfoContext(ctx, "text analyzed",
		"provider", p.Name(), "slides", len(doc.Slides), "duration", time.Since(start))
	return doc, nil
}

// Generate runs the full pipeline. template may be nil; when it is present
// but unreadable the presentation is rendered without a theme.
func (s *Service) Generate(ctx context.Context, req Request, template []byte) (*Result, error) {
	p, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	doc, err := s.analyze(ctx, p, req)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, doc, template)
}

// Render covers the ThemeExtracted and Rendered stages for a parsed document.
func (s *Service) Render(ctx context.Context, doc *slides.Document, template []byte) (*Result, error) {
	theme := s.Theme(ctx, template)

	data, err := s.renderer.Render(doc, theme)
	if err != nil {
		return nil, &StageError{Stage: StageRendered, Err: err}
	}
	s.logger.InfoContext(ctx, "presentation generated",
		"title", doc.PresentationTitle, "slides", len(doc.Slides), "bytes", len(data), "themed", theme != nil)

	return &Result{
		Title:    doc.PresentationTitle,
		Filename: Filename(doc.PresentationTitle),
		Document: doc,
		Data:     data,
	}, nil
}

// Theme extracts style hints from template, or returns nil.
func (s *Service) Theme(ctx context.Context, template []byte) *pptx.Theme {
	if len(template) == 0 {
		return nil
	}
	theme, err := pptx.ExtractTheme(template, s.logger)
	if err != nil {
		s.logger.WarnContext(ctx, "template could not be read, using default styling", "error", err)
		return nil
	}
	return theme
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename returns the download name: every character outside [a-zA-Z0-9]
// becomes '_'.
func Filename(title string) string {
	return nonAlphanumeric.ReplaceAllString(title, "_") + ".pptx"
}

