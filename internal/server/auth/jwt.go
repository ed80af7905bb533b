// Package auth issues and parses the auth_session cookie and carries the
// resulting principal through request contexts.
package auth

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed payload of a session cookie.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Session is the parsed cookie: either Structured or Legacy.
type Session interface {
	Owner() string
	session()
}

// Structured is a signed session carrying the identity provider profile.
type Structured struct {
	Email   string
	Name    string
	Picture string
}

// Legacy is a session created before cookies were signed. It only ever
// carries an email.
type Legacy struct {
	Email string
}

func (s Structured) Owner() string { return s.Email }
func (Structured) session()        {}

func (l Legacy) Owner() string { return l.Email }
func (Legacy) session()        {}

// DisplayName returns the profile name, or the local part of the email for
// sessions that have none.
func DisplayName(s Session) string {
	if st, ok := s.(Structured); ok && st.Name != "" {
		return st.Name
	}
	local, _, _ := strings.Cut(s.Owner(), "@")
	return local
}

// IssueSession signs a session cookie value for the given profile.
func IssueSession(profile Structured, secretKey []byte, validityDuration time.Duration) (string, error) {
	if profile.Email == "" {
		return "", common.ErrorBadInput
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.Email,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	})

	return token.SignedString(secretKey)
}

// ParseSession decodes a cookie value. A valid HS256 token yields Structured.
// With allowLegacy set, a plain email or an unsigned {"email":...} JSON
// value yields Legacy. Expired tokens never fall back to the legacy forms.
func ParseSession(value string, secretKey []byte, allowLegacy bool) (Session, error) {
	if value == "" {
		return nil, common.ErrorUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil && token.Valid && claims.Email != "":
		return Structured{Email: claims.Email, Name: claims.Name, Picture: claims.Picture}, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	case err == nil:
		return nil, common.ErrInvalidToken
	}

	if !allowLegacy {
		return nil, common.ErrInvalidToken
	}
	return parseLegacy(value)
}

func parseLegacy(value string) (Session, error) {
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, "{") {
		var payload struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal([]byte(value), &payload); err != nil || !looksLikeEmail(payload.Email) {
			return nil, common.ErrInvalidToken
		}
		return Legacy{Email: payload.Email}, nil
	}

	if !looksLikeEmail(value) {
		return nil, common.ErrInvalidToken
	}
	return Legacy{Email: value}, nil
}

func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n/\\")
}
