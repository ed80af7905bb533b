package common

const (
	// SessionCookieName is the cookie carrying the signed user session.
	SessionCookieName = "auth_session"

	// StateCookieName holds the OAuth state between login and callback.
	StateCookieName = "oauth_state"

	// FileRoutePrefix is the URL prefix under which blobs are served by
	// opaque token. Image references inside stored documents point here.
	FileRoutePrefix = "/api/file/"

	// TurnstileHeaderName carries the human-verification token on API calls.
	TurnstileHeaderName = "X-Turnstile-Token"

	// TurnstileFormField carries the human-verification token in forms and
	// query strings.
	TurnstileFormField = "cf_token"
)
