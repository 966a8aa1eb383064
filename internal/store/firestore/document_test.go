package firestore_test

import (
	"context"
	"os"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/firestore"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// These specs need the firestore emulator (FIRESTORE_EMULATOR_HOST).
var _ = Describe("firestore document store", Ordered, func() {
	var (
		s     *firestore.Store
		jobID string
	)

	BeforeAll(func() {
		if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
			Skip("FIRESTORE_EMULATOR_HOST is not set")
		}
		client, err := firestore.NewClient(context.TODO(), "extraction-tracker-test")
		Expect(err).To(BeNil())
		s = firestore.NewStore(client)
	})

	AfterAll(func() {
		if s != nil {
			s.Close()
		}
	})

	BeforeEach(func() {
		jobID = "job-" + uuid.NewString()
		_, err := s.Document().Create(context.TODO(), model.NewDocument("alice", jobID, "invoice.pdf"))
		Expect(err).To(BeNil())
	})

	It("refuses a duplicate external job", func() {
		_, err := s.Document().Create(context.TODO(), model.NewDocument("bob", jobID, "other.pdf"))
		Expect(err).To(MatchError(store.ErrDuplicateKey))
	})

	It("merges forward and never regresses", func() {
		started := time.Now().UTC().Add(-time.Minute)
		finished := started.Add(30 * time.Second)
		category := "invoice"

		outcome, err := s.Document().ApplyJobStatus(context.TODO(), model.JobStatus{
			ExternalJobID: jobID,
			State:         model.DocumentStateDone,
			Category:      &category,
			StartedAt:     &started,
			FinishedAt:    &finished,
		})
		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(model.MergeTransitioned))

		outcome, err = s.Document().ApplyJobStatus(context.TODO(), model.JobStatus{ExternalJobID: jobID, State: model.DocumentStateDone})
		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(model.MergeRefreshed))

		outcome, err = s.Document().ApplyJobStatus(context.TODO(), model.JobStatus{ExternalJobID: jobID, State: model.DocumentStatePending})
		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(model.MergeStale))

		doc, err := s.Document().FindByExternalJobID(context.TODO(), jobID)
		Expect(err).To(BeNil())
		Expect(doc.State).To(Equal(model.DocumentStateDone))
		Expect(*doc.Category).To(Equal("invoice"))
		Expect(doc.ExternalFinishedAt).NotTo(BeNil())
	})

	It("refuses job ids that are not a single document key", func() {
		_, err := s.Document().Create(context.TODO(), model.NewDocument("alice", "tenant/"+jobID, "nested.pdf"))
		Expect(err).To(MatchError(store.ErrInvalidJobID))

		_, err = s.Document().FindByExternalJobID(context.TODO(), "tenant/"+jobID)
		Expect(err).To(MatchError(store.ErrRecordNotFound))
	})

	It("reports unknown jobs as not found", func() {
		_, err := s.Document().ApplyJobStatus(context.TODO(), model.JobStatus{ExternalJobID: "ghost-" + uuid.NewString(), State: model.DocumentStateDone})
		Expect(err).To(MatchError(store.ErrRecordNotFound))
	})
})
