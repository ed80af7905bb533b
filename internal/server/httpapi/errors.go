package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gemdeck/internal/common"
)

// statusFor maps service errors onto coarse HTTP categories.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden), errors.Is(err, common.ErrorVerification):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorBadInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalidToken):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends the category text only. Server errors are logged with
// their detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// setHTMLSecurityHeaders confines user supplied HTML: no sniffing, no
// framing, and a sandboxed content policy.
func setHTMLSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src * data:; sandbox allow-scripts allow-forms allow-popups;")
}
