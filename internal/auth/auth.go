package auth

import (
	"context"
	"net/http"

	"github.com/docuflow/extraction-tracker/internal/config"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
}

const (
	JWTAuthentication  string = "jwt"
	NoneAuthentication string = "none"
)

func NewAuthenticator(authConfig config.Auth) (Authenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", authConfig.AuthenticationType)

	switch authConfig.AuthenticationType {
	case JWTAuthentication:
		if authConfig.JwkCertURL != "" {
			return NewJWKAuthenticator(context.Background(), authConfig.JwkCertURL)
		}
		return NewHMACAuthenticator(authConfig.JwtSecret)
	default:
		return NewNoneAuthenticator()
	}
}
