package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// QueryRequest is the body of both chat query routes.
type QueryRequest struct {
	Message      string            `json:"message"`
	ContextLimit int               `json:"context_limit,omitempty"`
	Scope        map[string]string `json:"scope,omitempty"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := s.ports.Answer.Answer(r.Context(), req.Message, req.options())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := s.ports.Answer.AnswerStream(r.Context(), req.Message, req.options())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The pipeline stops emitting once the request context is cancelled,
	// so draining the channel always terminates.
	for ev := range events {
		if err := writeEvent(w, ev); err != nil {
			logger.Debug("SSE client gone: %v", err)
			continue
		}
		flusher.Flush()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ports.Health == nil {
		writeError(w, http.StatusNotImplemented, "health service not configured")
		return
	}

	report := s.ports.Health.Check(r.Context())
	w.Header().Set("X-Health-Status", string(report.Status))
	writeJSON(w, report.Status.HTTPStatus(), report)
}

func (q QueryRequest) options() domain.AnswerOptions {
	return domain.AnswerOptions{
		ContextLimit: q.ContextLimit,
		Scope:        domain.Scope(q.Scope),
	}
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// writeServiceError maps a service error to a status code.
// The answer service only returns errors for invalid input.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error("answer service: %v", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeEvent(w http.ResponseWriter, ev domain.ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
