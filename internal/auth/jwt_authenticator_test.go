package auth_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("jwt authentication", func() {
	Context("rs256 tokens", func() {
		It("successfully validate the token", func() {
			sToken, keyFn := generateRSAToken(jwt.MapClaims{"sub": "batman", "preferred_username": "bruce", "role": "admin"})
			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			user, err := authenticator.Authenticate(sToken)
			Expect(err).To(BeNil())
			Expect(user.ID).To(Equal("batman"))
			Expect(user.Name).To(Equal("bruce"))
			Expect(user.IsAdmin()).To(BeTrue())
		})

		It("defaults to the user role", func() {
			sToken, keyFn := generateRSAToken(jwt.MapClaims{"sub": "robin", "role": "superhero"})
			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			user, err := authenticator.Authenticate(sToken)
			Expect(err).To(BeNil())
			Expect(user.Role).To(Equal(auth.RoleUser))
			Expect(user.Name).To(Equal("robin"))
		})

		It("fails to authenticate -- wrong signing method", func() {
			privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			Expect(err).To(BeNil())
			token := jwt.NewWithClaims(jwt.SigningMethodES256, withTimes(jwt.MapClaims{"sub": "joker"}))
			sToken, err := token.SignedString(privateKey)
			Expect(err).To(BeNil())

			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(func(t *jwt.Token) (any, error) {
				return privateKey.Public(), nil
			})
			Expect(err).To(BeNil())

			_, err = authenticator.Authenticate(sToken)
			Expect(err).ToNot(BeNil())
		})

		It("fails to authenticate -- no subject", func() {
			sToken, keyFn := generateRSAToken(jwt.MapClaims{"preferred_username": "nobody"})
			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			_, err = authenticator.Authenticate(sToken)
			Expect(err).ToNot(BeNil())
		})

		It("fails to authenticate -- expired", func() {
			claims := withTimes(jwt.MapClaims{"sub": "batman"})
			claims["exp"] = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
			Expect(err).To(BeNil())
			sToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
			Expect(err).To(BeNil())

			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(func(t *jwt.Token) (any, error) {
				return privateKey.Public(), nil
			})
			Expect(err).To(BeNil())

			_, err = authenticator.Authenticate(sToken)
			Expect(err).ToNot(BeNil())
		})
	})

	Context("hs256 tokens", func() {
		It("successfully validate the token", func() {
			sToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, withTimes(jwt.MapClaims{"sub": "alice"})).SignedString([]byte("secret"))
			Expect(err).To(BeNil())

			authenticator, err := auth.NewHMACAuthenticator("secret")
			Expect(err).To(BeNil())

			user, err := authenticator.Authenticate(sToken)
			Expect(err).To(BeNil())
			Expect(user.ID).To(Equal("alice"))
		})

		It("fails with another secret", func() {
			sToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, withTimes(jwt.MapClaims{"sub": "alice"})).SignedString([]byte("other"))
			Expect(err).To(BeNil())

			authenticator, err := auth.NewHMACAuthenticator("secret")
			Expect(err).To(BeNil())

			_, err = authenticator.Authenticate(sToken)
			Expect(err).ToNot(BeNil())
		})

		It("refuses an empty secret", func() {
			_, err := auth.NewHMACAuthenticator("")
			Expect(err).ToNot(BeNil())
		})
	})

	Context("middleware", func() {
		It("successfully authenticate", func() {
			sToken, keyFn := generateRSAToken(jwt.MapClaims{"sub": "batman"})
			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			h := &handler{}
			ts := httptest.NewServer(authenticator.Authenticator(h))
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			Expect(err).To(BeNil())
			req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", sToken))

			resp, rerr := http.DefaultClient.Do(req)
			Expect(rerr).To(BeNil())
			Expect(resp.StatusCode).To(Equal(200))
			Expect(h.user.ID).To(Equal("batman"))
		})

		It("failed to authenticate without a token", func() {
			_, keyFn := generateRSAToken(jwt.MapClaims{"sub": "batman"})
			authenticator, err := auth.NewJWTAuthenticatorWithKeyFn(keyFn)
			Expect(err).To(BeNil())

			ts := httptest.NewServer(authenticator.Authenticator(&handler{}))
			defer ts.Close()

			resp, rerr := http.Get(ts.URL)
			Expect(rerr).To(BeNil())
			Expect(resp.StatusCode).To(Equal(401))
		})
	})
})

type handler struct {
	user auth.User
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.user = auth.MustHaveUser(r.Context())
	w.WriteHeader(200)
}

func withTimes(claims jwt.MapClaims) jwt.MapClaims {
	claims["exp"] = jwt.NewNumericDate(time.Now().Add(24 * time.Hour))
	claims["iat"] = jwt.NewNumericDate(time.Now())
	claims["nbf"] = jwt.NewNumericDate(time.Now())
	claims["iss"] = "test"
	return claims
}

func generateRSAToken(claims jwt.MapClaims) (string, func(t *jwt.Token) (any, error)) {
	// generate a pair of keys RSA
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	Expect(err).To(BeNil())

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, withTimes(claims))
	ss, err := token.SignedString(privateKey)
	Expect(err).To(BeNil())

	return ss, func(t *jwt.Token) (any, error) {
		return privateKey.Public(), nil
	}
}
