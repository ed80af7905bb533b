package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
)

// withSession resolves the session cookie, if any, into a principal on the
// request context. Invalid cookies are treated as absent.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(common.SessionCookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := auth.ParseSession(c.Value, s.opts.SessionSecret, s.opts.LegacySessions)
		if err != nil {
			if !errors.Is(err, common.ErrTokenExpired) {
				s.logger.Debug(r.Context(), "rejected session cookie", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), s.opts.Policy.Principal(sess))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal returns the caller or common.ErrorUnauthorized.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok || p.Email == "" {
		return auth.Principal{}, common.ErrorUnauthorized
	}
	return p, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// instrument counts calls of op by response status class.
func (s *Server) instrument(op string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		h(rec, r)
		if s.metrics == nil {
			return
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.APICall(op, strconv.Itoa(status/100)+"xx")
	})
}
