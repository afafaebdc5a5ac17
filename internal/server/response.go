// internal/server/response.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "opportunity-engine/internal/common/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDetail mirrors the {"detail": ...} error envelope the API has always
// used.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 with a generic detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case apperrors.ErrCodeNotFound:
			writeDetail(w, http.StatusNotFound, stdErr.Message)
			return
		case apperrors.ErrCodeInvalidParameter:
			detail := stdErr.Details
			if detail == "" {
				detail = stdErr.Message
			}
			writeDetail(w, http.StatusBadRequest, detail)
			return
		case apperrors.ErrCodeStoreUnavailable:
			writeDetail(w, http.StatusServiceUnavailable, stdErr.Message)
			return
		}
	}

	s.logger.Error("request failed", map[string]interface{}{
		"requestId": requestIDFromContext(r.Context()),
		"path":      r.URL.Path,
		"error":     err.Error(),
	})
	writeDetail(w, http.StatusInternalServerError, "internal server error")
}
