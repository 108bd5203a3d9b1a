package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
)

type extractRequest struct {
	BlobPath string `json:"blob_path"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePreflight answers CORS preflight requests; the CORS middleware has
// already set the headers.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleExtract runs one job synchronously. Failures are reported in the
// body with status 200.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, errs.E(errs.KindInvalidRequest, "web.decode", fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	if strings.TrimSpace(req.BlobPath) == "" {
		s.respondError(w, r, errs.Errorf(errs.KindInvalidRequest, "web.decode", "blob_path is required"))
		return
	}

	result, err := s.extractor.Extract(r.Context(), req.BlobPath)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
