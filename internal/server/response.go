package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gnemet/slidegen/internal/ai"
	"github.com/gnemet/slidegen/internal/pipeline"
	"github.com/gnemet/slidegen/internal/slides"
)

const (
	msgInternal         = "Internal server error"
	msgGenerateFailed   = "Internal server error during PPTX generation"
	msgParseFailed      = "Failed to parse AI response into valid slide structure"
	msgNotFound         = "Endpoint not found"
	msgInvalidJSON      = "Invalid JSON body"
	msgBodyTooLarge     = "Request body too large"
	msgTemplateTooLarge = "Template file too large"
	msgTemplateType     = "Only PPTX files are allowed"
	msgRateLimited      = "Rate limit exceeded"
)

// errorResponse is the body of every non-binary failure.
type errorResponse struct {
	Error       string  `json:"error"`
	Details     string  `json:"details,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Stage       string  `json:"stage,omitempty"`
	RawResponse *string `json:"rawResponse,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// pipelineError maps a pipeline failure to its status code and body.
// fallback is the message used for errors without a more specific one.
func pipelineError(err error, fallback string) (int, errorResponse) {
	resp := errorResponse{Error: fallback, Details: err.Error()}

	var se *pipeline.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
		resp.Provider = se.Provider
	}

	var (
		unsupported *ai.UnsupportedProviderError
		httpErr     *ai.HTTPError
		netErr      *ai.NetworkError
		formatErr   *ai.FormatError
		parseErr    *slides.ParseError
	)
	switch {
	case errors.Is(err, pipeline.ErrMissingFields):
		resp.Error, resp.Details = pipeline.ErrMissingFields.Error(), ""
		return http.StatusBadRequest, resp
	case errors.As(err, &unsupported):
		resp.Error, resp.Details = unsupported.Error(), ""
		return http.StatusBadRequest, resp
	case errors.As(err, &httpErr):
		resp.Error, resp.Details = httpErr.Error(), httpErr.Body
		return upstreamStatus(httpErr.StatusCode), resp
	case errors.As(err, &netErr):
		resp.Error = "Network error calling " + netErr.Provider + " API"
		if netErr.Err != nil {
			resp.Details = netErr.Err.Error()
		}
		return http.StatusInternalServerError, resp
	case errors.As(err, &formatErr):
		resp.Error, resp.Details = formatErr.Error(), ""
		if formatErr.Err != nil {
			resp.Details = formatErr.Err.Error()
		}
		return http.StatusInternalServerError, resp
	case errors.As(err, &parseErr):
		raw := parseErr.Raw
		resp.Error, resp.Details, resp.RawResponse = msgParseFailed, parseErr.Reason.Error(), &raw
		return http.StatusInternalServerError, resp
	}
	return http.StatusInternalServerError, resp
}

// upstreamStatus keeps provider error codes unless they are not errors at all.
func upstreamStatus(code int) int {
	if code < 400 || code > 599 {
		return http.StatusBadGateway
	}
	return code
}
