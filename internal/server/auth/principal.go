package auth

import "context"

type ctxKey string

const principalKey ctxKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	Email   string
	Name    string
	Picture string
	IsAdmin bool
}

// CanAccess reports whether p may act on resources owned by owner.
func (p Principal) CanAccess(owner string) bool {
	return p.IsAdmin || (p.Email != "" && p.Email == owner)
}

// Policy resolves sessions into principals.
type Policy struct {
	AdminEmail string
}

func (p Policy) IsAdmin(email string) bool {
	return p.AdminEmail != "" && email == p.AdminEmail
}

func (p Policy) Principal(s Session) Principal {
	pr := Principal{Email: s.Owner(), Name: DisplayName(s), IsAdmin: p.IsAdmin(s.Owner())}
	if st, ok := s.(Structured); ok {
		pr.Picture = st.Picture
	}
	return pr
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
