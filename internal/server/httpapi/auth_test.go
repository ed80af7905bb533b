package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginRedirectsWithState(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil), "")
	require.Equal(t, http.StatusFound, rr.Code)

	state := findCookie(rr, common.StateCookieName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Len(t, state.Value, 32)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
}

func TestCallbackIssuesSession(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: common.StateCookieName, Value: "s1"})
	rr := f.do(t, req, "")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	c := findCookie(rr, common.SessionCookieName)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	sess, err := auth.ParseSession(c.Value, sessionSecret, false)
	require.NoError(t, err)
	assert.Equal(t, auth.Structured{Email: alice, Name: "Alice"}, sess)
}

func TestCallbackRejects(t *testing.T) {
	t.Run("state mismatch", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: common.StateCookieName, Value: "other"})
		rr := f.do(t, req, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, findCookie(rr, common.SessionCookieName))
	})

	t.Run("no state cookie", func(t *testing.T) {
		f := newFixture(t)
		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil), "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("exchange failure", func(t *testing.T) {
		f := newFixture(t, func(_ *Options, s *Server) {
			s.provider = fakeProvider{err: errors.New("invalid_grant")}
		})
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: common.StateCookieName, Value: "s1"})
		rr := f.do(t, req, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestLoginNotConfigured(t *testing.T) {
	f := newFixture(t, func(_ *Options, s *Server) { s.provider = nil })

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/login", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestLogoutExpiresCookie(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/logout", nil), alice)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	c := findCookie(rr, common.SessionCookieName)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestMe(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/me", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"authenticated":false,"isAdmin":false}`, rr.Body.String())

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/auth/me", nil), root)
	require.Equal(t, http.StatusOK, rr.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.True(t, me.Authenticated)
	assert.True(t, me.IsAdmin)
	assert.Equal(t, root, me.Email)
	assert.Equal(t, "root", me.Name)
}
