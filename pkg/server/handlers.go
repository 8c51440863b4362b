package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vango-dev/vtree/pkg/htmldom"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// DiffRequest is the body of POST /diff.
type DiffRequest struct {
	Old *vdom.VNode `json:"old"`
	New *vdom.VNode `json:"new"`
}

// DiffResponse is the reply to POST /diff.
type DiffResponse struct {
	Patches []vdom.Patch `json:"patches"`
}

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	HTML           string `json:"html"`
	KeepWhitespace bool   `json:"keepWhitespace,omitempty"`
	Minify         bool   `json:"minify,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Old == nil || req.New == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("old and new are required"))
		return
	}
	patches := vdom.Diff(req.Old, req.New)
	if patches == nil {
		patches = []vdom.Patch{}
	}
	s.writeJSON(w, http.StatusOK, DiffResponse{Patches: patches})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	var opts []htmldom.ParseOption
	if req.KeepWhitespace {
		opts = append(opts, htmldom.KeepWhitespace())
	}
	if req.Minify {
		opts = append(opts, htmldom.WithMinify())
	}
	tree, err := htmldom.ParseString(req.HTML, opts...)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

// decode reads a JSON body into v, answering 400 or 413 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
			return false
		}
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
