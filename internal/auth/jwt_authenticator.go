package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type JWTAuthenticator struct {
	keyFn   func(t *jwt.Token) (any, error)
	methods []string
}

func NewJWTAuthenticatorWithKeyFn(keyFn func(t *jwt.Token) (any, error), methods ...string) (*JWTAuthenticator, error) {
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodRS256.Name}
	}
	return &JWTAuthenticator{keyFn: keyFn, methods: methods}, nil
}

// NewJWKAuthenticator validates RS256 tokens against the keys published at jwkCertUrl.
func NewJWKAuthenticator(ctx context.Context, jwkCertUrl string) (*JWTAuthenticator, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwkCertUrl})
	if err != nil {
		return nil, fmt.Errorf("failed to get public keys: %w", err)
	}

	return NewJWTAuthenticatorWithKeyFn(k.Keyfunc)
}

// NewHMACAuthenticator validates HS256 tokens signed with secret.
func NewHMACAuthenticator(secret string) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	key := []byte(secret)
	return NewJWTAuthenticatorWithKeyFn(func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.SigningMethodHS256.Name)
}

func (a *JWTAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(a.methods), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, a.keyFn)
	if err != nil {
		zap.S().Named("auth").Debugw("failed to parse or the token is invalid", "error", err)
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	if !t.Valid {
		return User{}, fmt.Errorf("failed to parse or validate token")
	}

	return a.parseToken(t)
}

func (a *JWTAuthenticator) parseToken(userToken *jwt.Token) (User, error) {
	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("failed to parse jwt token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return User{}, errors.New("token has no subject")
	}

	user := User{
		ID:    sub,
		Name:  sub,
		Role:  RoleUser,
		Token: userToken,
	}
	if name, ok := claims["preferred_username"].(string); ok && name != "" {
		user.Name = name
	}
	if role, ok := claims["role"].(string); ok && role == RoleAdmin {
		user.Role = RoleAdmin
	}

	return user, nil
}

func (a *JWTAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get("Authorization")
		if !strings.HasPrefix(accessToken, "Bearer ") {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		user, err := a.Authenticate(strings.TrimPrefix(accessToken, "Bearer "))
		if err != nil {
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
