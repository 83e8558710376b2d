package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/ipa27/internal/adapters/mq/queue"
	"github.com/okian/ipa27/internal/domain/types"
	"github.com/okian/ipa27/pkg/logger"
)

// handleRefresh serves POST /api/refresh. With ?wait=true the response is
// sent once the refresh finished; otherwise it is 202 Accepted.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, types.CodeBadRequest, fmt.Errorf("%w: wait must be a boolean", ErrBadRequest))
			return
		}
		wait = v
	}

	if !wait {
		req, queued, err := s.deps.Refresh(r.Context(), queue.OriginManual)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		status := types.RefreshQueued
		if !queued {
			status = types.RefreshCoalesced
		}
		s.logger.Info(r.Context(), "refresh requested", logger.String("request_id", req.ID), logger.String("status", status))
		writeJSON(w, http.StatusAccepted, types.RefreshResponse{RequestID: req.ID, Origin: req.Origin, Status: status})
		return
	}

	res, err := s.deps.RefreshAndWait(r.Context(), queue.OriginManual)
	if err != nil && res.Request.ID == "" {
		s.writeFailure(w, r, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, types.CodeDataUnavailable, err)
		return
	}
	changed := res.Changed
	writeJSON(w, http.StatusOK, types.RefreshResponse{
		RequestID:  res.Request.ID,
		Origin:     res.Request.Origin,
		Status:     types.RefreshCompleted,
		Changed:    &changed,
		Warnings:   res.Warnings,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	})
}
