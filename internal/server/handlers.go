package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gnemet/slidegen/internal/outline"
	"github.com/gnemet/slidegen/internal/pipeline"
	"github.com/gnemet/slidegen/internal/pptx"
	"github.com/gnemet/slidegen/internal/slides"
	"github.com/gnemet/slidegen/internal/templates"
)

// multipart overhead allowed on top of the template size
const formOverhead = 1 << 20

type generationRequest struct {
	Text         string `json:"text"`
	Guidance     string `json:"guidance"`
	Provider     string `json:"provider"`
	APIKey       string `json:"apiKey"`
	TemplateName string `json:"templateName"`
}

func (g generationRequest) pipelineRequest() pipeline.Request {
	return pipeline.Request{Text: g.Text, Guidance: g.Guidance, Provider: g.Provider, APIKey: g.APIKey}
}

type analyzeResponse struct {
	Success bool             `json:"success"`
	Slides  *slides.Document `json:"slides"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": s.pipeline.Providers()})
}

type templatesResponse struct {
	Templates []string          `json:"templates"`
	Entries   []templates.Entry `json:"entries"`
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, templatesResponse{
		Templates: s.library.Names(),
		Entries:   s.library.Entries(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgNotFound)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	doc, err := s.pipeline.Analyze(r.Context(), req.pipelineRequest())
	if err != nil {
		s.writePipelineError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Slides: doc})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, template, ok := s.readGenerateRequest(w, r)
	if !ok {
		return
	}

	res, err := s.pipeline.Generate(r.Context(), req.pipelineRequest(), template)
	if err != nil {
		s.writePipelineError(w, r, err, msgGenerateFailed)
		return
	}

	w.Header().Set("Content-Type", pptx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		requestLogger(r, s.logger).Warn("failed to send presentation", "error", err)
	}
}

// readGenerateRequest accepts multipart (with an optional template file) or
// JSON. The template is checked before anything is sent to a provider.
func (s *Server) readGenerateRequest(w http.ResponseWriter, r *http.Request) (generationRequest, []byte, bool) {
	var req generationRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if !s.decodeJSON(w, r, &req) {
			return req, nil, false
		}
		template, ok := s.libraryTemplate(w, req.TemplateName)
		return req, template, ok
	}

	maxTemplate := s.cfg.Application.MaxTemplateBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplate+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTemplateTooLarge)
			return req, nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return req, nil, false
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req = generationRequest{
		Text:         r.FormValue("text"),
		Guidance:     r.FormValue("guidance"),
		Provider:     r.FormValue("provider"),
		APIKey:       r.FormValue("apiKey"),
		TemplateName: r.FormValue("templateName"),
	}

	file, header, err := r.FormFile("template")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		template, ok := s.libraryTemplate(w, req.TemplateName)
		return req, template, ok
	case err != nil:
		writeError(w, http.StatusBadRequest, "Invalid template upload")
		return req, nil, false
	}
	defer file.Close()

	if header.Header.Get("Content-Type") != pptx.ContentType {
		writeError(w, http.StatusBadRequest, msgTemplateType)
		return req, nil, false
	}
	if header.Size > maxTemplate {
		writeError(w, http.StatusRequestEntityTooLarge, msgTemplateTooLarge)
		return req, nil, false
	}

	template, err := io.ReadAll(io.LimitReader(file, maxTemplate+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template upload")
		return req, nil, false
	}
	if int64(len(template)) > maxTemplate {
		writeError(w, http.StatusRequestEntityTooLarge, msgTemplateTooLarge)
		return req, nil, false
	}
	return req, template, true
}

// libraryTemplate loads a named server-side template. An empty name means none.
func (s *Server) libraryTemplate(w http.ResponseWriter, name string) ([]byte, bool) {
	if name == "" {
		return nil, true
	}
	data, err := s.library.Read(name)
	if errors.Is(err, templates.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Template not found: "+name)
		return nil, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal, Details: err.Error()})
		return nil, false
	}
	return data, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Application.MaxJSONBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}

	doc, err := slides.Parse(string(body))
	if err != nil {
		raw := string(body)
		resp := errorResponse{Error: msgParseFailed, RawResponse: &raw}
		var pe *slides.ParseError
		if errors.As(err, &pe) {
			resp.Details = pe.Reason.Error()
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, outline.Markdown(doc))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, outline.HTML(doc))
}

// decodeJSON reads a size-capped JSON body into v and answers on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Application.MaxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			// empty body: let field validation answer
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidJSON, Details: err.Error()})
		return false
	}
	return true
}

func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, resp := pipelineError(err, fallback)
	log := requestLogger(r, s.logger)
	if status >= 500 {
		log.Error("request failed", "stage", resp.Stage, "provider", resp.Provider, "error", err)
	} else {
		log.Warn("request rejected", "stage", resp.Stage, "provider", resp.Provider, "error", err)
	}
	writeJSON(w, status, resp)
}
