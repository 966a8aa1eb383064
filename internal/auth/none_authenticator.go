package auth

import (
	"net/http"
)

const (
	userIDHeader   = "X-User-ID"
	userRoleHeader = "X-User-Role"

	defaultUserID = "dev-user"
)

// NoneAuthenticator trusts the caller. The principal may be picked with the X-User-ID and X-User-Role headers.
type NoneAuthenticator struct{}

func NewNoneAuthenticator() (*NoneAuthenticator, error) {
	return &NoneAuthenticator{}, nil
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := User{
			ID:   defaultUserID,
			Name: defaultUserID,
			Role: RoleUser,
		}
		if id := r.Header.Get(userIDHeader); id != "" {
			user.ID = id
			user.Name = id
		}
		if r.Header.Get(userRoleHeader) == RoleAdmin {
			user.Role = RoleAdmin
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
