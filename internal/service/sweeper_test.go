package service_test

import (
	"context"
	"time"

	"github.com/docuflow/extraction-tracker/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("sweeper", func() {
	It("reconciles periodically until stopped", func() {
		fetcher := &fakeFetcher{}
		reconciler := service.NewReconciler(nil, fetcher, &fakeTokens{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			service.NewSweeper(reconciler, "svc", 20*time.Millisecond).Run(ctx)
		}()

		Eventually(fetcher.calls.Load).WithTimeout(2 * time.Second).Should(BeNumerically(">=", 2))
		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("returns at once when disabled", func() {
		fetcher := &fakeFetcher{}
		reconciler := service.NewReconciler(nil, fetcher, &fakeTokens{})

		service.NewSweeper(reconciler, "svc", 0).Run(context.Background())
		service.NewSweeper(reconciler, "", time.Second).Run(context.Background())
		Expect(fetcher.calls.Load()).To(BeZero())
	})
})
