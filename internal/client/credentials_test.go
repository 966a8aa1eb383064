package client_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/docuflow/extraction-tracker/internal/client"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type lookupFunc func(ctx context.Context, principalID string) (*model.Credential, error)

func (f lookupFunc) Get(ctx context.Context, principalID string) (*model.Credential, error) {
	return f(ctx, principalID)
}

var _ = Describe("credential provider", func() {
	var (
		tokenServer *httptest.Server
		calls       atomic.Int32
		accessToken string
	)

	BeforeEach(func() {
		calls.Store(0)
		accessToken = "abc"
		tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			Expect(r.ParseForm()).To(Succeed())
			Expect(r.Form.Get("grant_type")).To(Equal("client_credentials"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","expires_in":3600}`, accessToken)
		}))
	})

	AfterEach(func() {
		tokenServer.Close()
	})

	notFound := lookupFunc(func(ctx context.Context, principalID string) (*model.Credential, error) {
		return nil, store.ErrRecordNotFound
	})

	It("issues and caches a token from the principal credential", func() {
		lookup := lookupFunc(func(ctx context.Context, principalID string) (*model.Credential, error) {
			Expect(principalID).To(Equal("alice"))
			return &model.Credential{PrincipalID: "alice", ClientID: "id", ClientSecret: "secret", TokenURL: tokenServer.URL}, nil
		})
		provider := client.NewCredentialProvider(lookup, nil, time.Second)

		token, err := provider.AccessToken(context.TODO(), "alice")
		Expect(err).To(BeNil())
		Expect(token).To(Equal("abc"))

		token, err = provider.AccessToken(context.TODO(), "alice")
		Expect(err).To(BeNil())
		Expect(token).To(Equal("abc"))
		Expect(calls.Load()).To(BeNumerically("==", 1))

		provider.Evict("alice")
		_, err = provider.AccessToken(context.TODO(), "alice")
		Expect(err).To(BeNil())
		Expect(calls.Load()).To(BeNumerically("==", 2))
	})

	It("falls back to the service credential", func() {
		fallback := &model.Credential{ClientID: "svc", ClientSecret: "secret", TokenURL: tokenServer.URL}
		provider := client.NewCredentialProvider(notFound, fallback, time.Second)

		token, err := provider.AccessToken(context.TODO(), "bob")
		Expect(err).To(BeNil())
		Expect(token).To(Equal("abc"))
	})

	It("fails when no credential exists", func() {
		provider := client.NewCredentialProvider(notFound, nil, time.Second)

		_, err := provider.AccessToken(context.TODO(), "bob")
		Expect(err).To(MatchError(client.ErrCredentialUnavailable))
	})

	It("fails when the token endpoint returns an empty token", func() {
		accessToken = ""
		fallback := &model.Credential{ClientID: "svc", ClientSecret: "secret", TokenURL: tokenServer.URL}
		provider := client.NewCredentialProvider(notFound, fallback, time.Second)

		_, err := provider.AccessToken(context.TODO(), "bob")
		Expect(err).To(MatchError(client.ErrCredentialUnavailable))
	})

	It("keeps issuing a shared token when the first caller goes away", func() {
		release := make(chan struct{})
		slowServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			<-release
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"access_token":"shared","token_type":"bearer","expires_in":3600}`)
		}))
		defer slowServer.Close()

		fallback := &model.Credential{ClientID: "svc", ClientSecret: "secret", TokenURL: slowServer.URL}
		provider := client.NewCredentialProvider(notFound, fallback, 5*time.Second)

		first, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := provider.AccessToken(first, "bob")
			firstErr <- err
		}()
		Eventually(calls.Load).Should(BeNumerically("==", 1))

		secondToken := make(chan string, 1)
		go func() {
			defer GinkgoRecover()
			token, err := provider.AccessToken(context.Background(), "bob")
			Expect(err).To(BeNil())
			secondToken <- token
		}()
		time.Sleep(50 * time.Millisecond)

		cancelFirst()
		Eventually(firstErr).Should(Receive(MatchError(context.Canceled)))

		close(release)
		Eventually(secondToken).Should(Receive(Equal("shared")))
		Expect(calls.Load()).To(BeNumerically("==", 1))
	})

	It("fails when the credential store is down", func() {
		lookup := lookupFunc(func(ctx context.Context, principalID string) (*model.Credential, error) {
			return nil, errors.New("connection refused")
		})
		provider := client.NewCredentialProvider(lookup, nil, time.Second)

		_, err := provider.AccessToken(context.TODO(), "alice")
		Expect(err).To(MatchError(client.ErrCredentialUnavailable))
	})
})
