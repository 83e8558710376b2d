package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/okian/ipa27/internal/adapters/repository"
	"github.com/okian/ipa27/internal/domain/types"
)

// handleSnapshot serves GET /api/snapshot: the raw document as fetched.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Snapshot(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if notModified(w, r, e.Version) {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Raw)))
	w.Header().Set("Last-Modified", e.LoadedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Raw)
}

// handleState serves GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateOf(s.deps.State(r.Context())))
}

// handleViews serves GET /api/views.
func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	v, version, err := s.deps.Views(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if notModified(w, r, version) {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleView serves GET /api/views/{name}.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, version, err := s.deps.View(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if notModified(w, r, version) {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func stateOf(st repository.Status) types.State {
	out := types.State{
		State:     string(st.State),
		Version:   st.Version,
		Periodo:   st.Periodo,
		Source:    st.Source,
		LastError: st.LastError,
		Loads:     st.Loads,
		Failures:  st.Failures,
		Warnings:  st.Warnings,
	}
	if !st.LoadedAt.IsZero() {
		t := st.LoadedAt
		out.LoadedAt = &t
	}
	if !st.LastAttempt.IsZero() {
		t := st.LastAttempt
		out.LastAttempt = &t
	}
	for _, v := range st.History {
		out.History = append(out.History, types.VersionInfo{Version: v.Version, Periodo: v.Periodo, LoadedAt: v.LoadedAt})
	}
	return out
}
