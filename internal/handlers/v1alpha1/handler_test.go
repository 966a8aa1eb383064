package v1alpha1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	apiv1 "github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/client"
	"github.com/docuflow/extraction-tracker/internal/config"
	handlers "github.com/docuflow/extraction-tracker/internal/handlers/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/opa"
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type stubExtraction struct {
	mu     sync.Mutex
	jobs   []model.JobStatus
	err    error
	result json.RawMessage
}

func (s *stubExtraction) FetchAllJobs(ctx context.Context, token string) ([]model.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs, s.err
}

func (s *stubExtraction) GetJobResult(ctx context.Context, token, jobID string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

type stubTokens struct {
	err error
}

func (t *stubTokens) AccessToken(ctx context.Context, principalID string) (string, error) {
	return "token", t.err
}

func (t *stubTokens) Evict(principalID string) {}

var _ = Describe("service handler", Ordered, func() {
	var (
		s          store.Store
		gormdb     *gorm.DB
		authz      *opa.Authorizer
		extraction *stubExtraction
		tokens     *stubTokens
		server     *httptest.Server
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		Expect(store.AutoMigrate(db)).To(Succeed())

		s = store.NewStore(db)
		gormdb = db

		authz, err = opa.NewAuthorizerFromDir("")
		Expect(err).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		extraction = &stubExtraction{}
		tokens = &stubTokens{}

		reconciler := service.NewReconciler(s, extraction, tokens)
		h := handlers.NewServiceHandler(
			service.NewDocumentService(s, reconciler, extraction, authz, "http://tracker.local"),
			service.NewCredentialService(s, tokens),
			service.NewReportService(),
		)

		authenticator, err := auth.NewNoneAuthenticator()
		Expect(err).To(BeNil())

		router := chi.NewRouter()
		h.RegisterPublicRoutes(router)
		router.Group(func(r chi.Router) {
			r.Use(authenticator.Authenticator)
			h.RegisterRoutes(r)
		})
		server = httptest.NewServer(router)
	})

	AfterEach(func() {
		server.Close()
		gormdb.Exec("DELETE FROM documents;")
		gormdb.Exec("DELETE FROM extraction_credentials;")
	})

	do := func(method, path, user, body string) *http.Response {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequest(method, server.URL+path, reader)
		Expect(err).To(BeNil())
		req.Header.Set("Content-Type", "application/json")
		if user != "" {
			req.Header.Set("X-User-ID", user)
		}
		if user == "root" {
			req.Header.Set("X-User-Role", auth.RoleAdmin)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).To(BeNil())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	create := func(user, jobID string) apiv1.Document {
		resp := do(http.MethodPost, "/api/v1/documents", user, fmt.Sprintf(`{"name":"%s.pdf","size":12,"externalJobId":%q}`, jobID, jobID))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		var doc apiv1.Document
		decode(resp, &doc)
		return doc
	}

	Context("documents", func() {
		It("registers a document", func() {
			doc := create("alice", "job-1")
			Expect(doc.OwnerId).To(Equal("alice"))
			Expect(doc.Status).To(Equal(apiv1.DocumentStatusUploading))
			Expect(doc.Size).To(BeNumerically("==", 12))
		})

		It("refuses a duplicate job", func() {
			create("alice", "job-1")
			resp := do(http.MethodPost, "/api/v1/documents", "bob", `{"name":"x.pdf","externalJobId":"job-1"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("refuses an invalid body", func() {
			resp := do(http.MethodPost, "/api/v1/documents", "alice", `{"name":"x.pdf"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			resp = do(http.MethodPost, "/api/v1/documents", "alice", `not json`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("lists with reconciliation", func() {
			create("alice", "job-1")
			create("alice", "job-2")
			create("bob", "job-3")
			extraction.jobs = []model.JobStatus{{ExternalJobID: "job-2", State: model.DocumentStateDone}}

			resp := do(http.MethodGet, "/api/v1/documents?status=DONE", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var list apiv1.DocumentList
			decode(resp, &list)
			Expect(list.Total).To(BeNumerically("==", 1))
			Expect(list.CurrentPage).To(Equal(1))
			Expect(list.Stale).To(BeFalse())
			Expect(list.Documents[0].ExternalJobId).To(Equal("job-2"))
			Expect(list.Documents[0].Status).To(Equal(apiv1.DocumentStatusDone))

			resp = do(http.MethodGet, "/api/v1/documents?scope=team", "alice", "")
			decode(resp, &list)
			Expect(list.Total).To(BeNumerically("==", 3))
		})

		It("flags stale results when the extraction service is down", func() {
			create("alice", "job-1")
			extraction.err = client.ErrServiceUnavailable

			resp := do(http.MethodGet, "/api/v1/documents", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var list apiv1.DocumentList
			decode(resp, &list)
			Expect(list.Stale).To(BeTrue())
			Expect(list.Documents).To(HaveLen(1))
		})

		It("reports a rejected credential", func() {
			extraction.err = client.ErrAuthExpired

			resp := do(http.MethodGet, "/api/v1/documents", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var apiErr apiv1.Error
			decode(resp, &apiErr)
			Expect(apiErr.Code).NotTo(BeNil())
			Expect(*apiErr.Code).To(Equal("AUTH_EXPIRED"))
		})

		It("asks to retry without a credential", func() {
			tokens.err = client.ErrCredentialUnavailable

			resp := do(http.MethodGet, "/api/v1/documents/stats", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(resp.Header.Get("Retry-After")).NotTo(BeEmpty())
		})

		DescribeTable("refuses invalid filters",
			func(query string) {
				resp := do(http.MethodGet, "/api/v1/documents?"+query, "alice", "")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			},
			Entry("unknown status", "status=running"),
			Entry("unknown window", "window=year"),
			Entry("unknown scope", "scope=all"),
			Entry("limit too high", "limit=500"),
			Entry("page not a number", "page=two"),
		)

		It("gets, deletes and authorizes", func() {
			doc := create("alice", "job-1")
			path := "/api/v1/documents/" + doc.Id.String()

			Expect(do(http.MethodGet, path, "alice", "").StatusCode).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, path, "bob", "").StatusCode).To(Equal(http.StatusForbidden))
			Expect(do(http.MethodDelete, path, "bob", "").StatusCode).To(Equal(http.StatusForbidden))
			Expect(do(http.MethodDelete, path, "alice", "").StatusCode).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, path, "alice", "").StatusCode).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodGet, "/api/v1/documents/not-a-uuid", "alice", "").StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("proxies the extraction result", func() {
			doc := create("alice", "job-1")
			extraction.result = json.RawMessage(`{"id":"job-1","extraction":{}}`)

			resp := do(http.MethodGet, "/api/v1/documents/"+doc.Id.String()+"/extraction", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())
			Expect(string(body)).To(Equal(`{"id":"job-1","extraction":{}}`))
		})
	})

	Context("stats", func() {
		It("aggregates the filtered documents", func() {
			create("alice", "job-1")
			create("alice", "job-2")
			extraction.jobs = []model.JobStatus{
				{ExternalJobID: "job-1", State: model.DocumentStateDone, Category: ptr("invoice")},
				{ExternalJobID: "job-2", State: model.DocumentStateFailed, Category: ptr("invoice")},
			}

			resp := do(http.MethodGet, "/api/v1/documents/stats", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats apiv1.DashboardStats
			decode(resp, &stats)
			Expect(stats.Total).To(Equal(2))
			Expect(stats.Completed).To(Equal(1))
			Expect(stats.Error).To(Equal(1))
			Expect(stats.SuccessRate).To(Equal(50))
			Expect(stats.ByCategory["invoice"].SuccessRate).To(Equal(50))
		})

		It("exports the statistics", func() {
			create("alice", "job-1")

			resp := do(http.MethodGet, "/api/v1/documents/stats/export?format=csv", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(".csv"))

			resp = do(http.MethodGet, "/api/v1/documents/stats/export", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(".xlsx"))

			resp = do(http.MethodGet, "/api/v1/documents/stats/export?format=pdf", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Context("sharing", func() {
		It("publishes a document behind a public link", func() {
			doc := create("alice", "job-1")

			resp := do(http.MethodPost, "/api/v1/documents/"+doc.Id.String()+"/share", "alice", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var link apiv1.ShareLink
			decode(resp, &link)
			Expect(link.ShareLink).To(HavePrefix("http://tracker.local/shared/"))

			token := strings.TrimPrefix(link.ShareLink, "http://tracker.local/shared/")
			resp = do(http.MethodGet, "/api/v1/shared/"+token, "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var shared apiv1.Document
			decode(resp, &shared)
			Expect(shared.Id).To(Equal(doc.Id))
			Expect(shared.IsShared).To(BeTrue())

			Expect(do(http.MethodGet, "/api/v1/shared/unknown", "", "").StatusCode).To(Equal(http.StatusNotFound))
		})

		It("restricts team sharing to admins", func() {
			doc := create("alice", "job-1")
			path := "/api/v1/documents/" + doc.Id.String() + "/share-team"

			Expect(do(http.MethodPost, path, "alice", "").StatusCode).To(Equal(http.StatusForbidden))

			resp := do(http.MethodPost, path, "root", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var shared apiv1.Document
			decode(resp, &shared)
			Expect(shared.IsTeamShared).To(BeTrue())

			Expect(do(http.MethodGet, "/api/v1/documents/"+doc.Id.String(), "bob", "").StatusCode).To(Equal(http.StatusOK))
		})
	})

	Context("credentials", func() {
		It("stores the caller's credential", func() {
			resp := do(http.MethodPut, "/api/v1/credentials", "alice", `{"clientId":"id","clientSecret":"secret","tokenUrl":"https://auth.local/token"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			cred, err := s.Credential().Get(context.TODO(), "alice")
			Expect(err).To(BeNil())
			Expect(cred.ClientID).To(Equal("id"))
		})

		It("refuses an incomplete credential", func() {
			resp := do(http.MethodPut, "/api/v1/credentials", "alice", `{"clientId":"id"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	It("answers the health probe", func() {
		Expect(do(http.MethodGet, "/health", "", "").StatusCode).To(Equal(http.StatusOK))
	})
})

func ptr[T any](v T) *T {
	return &v
}
