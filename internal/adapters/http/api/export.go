package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/ipa27/internal/export"
)

// handleExport serves GET /api/export.xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v, version, err := s.deps.Views(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if notModified(w, r, version) {
		return
	}

	// Buffer the workbook so a build error can still become a JSON error.
	var buf bytes.Buffer
	if err := export.Write(&buf, v, s.labels); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(v.Periodo)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func exportName(periodo string) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, periodo)
	if safe == "" {
		return "ipa27.xlsx"
	}
	return "ipa27_" + safe + ".xlsx"
}
