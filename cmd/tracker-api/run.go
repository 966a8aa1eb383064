package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/docuflow/extraction-tracker/internal/api_server"
	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/client"
	"github.com/docuflow/extraction-tracker/internal/config"
	"github.com/docuflow/extraction-tracker/internal/events"
	handlers "github.com/docuflow/extraction-tracker/internal/handlers/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/opa"
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/docuflow/extraction-tracker/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		restore := initLogger(cfg)
		defer restore()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		s, err := openStore(ctx, cfg)
		if err != nil {
			zap.S().Errorw("failed to open the store", "error", err)
			return err
		}
		defer s.Close()

		if err := metrics.RegisterDocumentStatsCollector(s); err != nil {
			zap.S().Warnw("failed to register document metrics", "error", err)
		}

		producer, err := newEventProducer(cfg)
		if err != nil {
			return err
		}
		defer producer.Close()

		authz, err := opa.NewAuthorizerFromDir(cfg.Service.PoliciesFolder)
		if err != nil {
			zap.S().Errorw("failed to load authorization policies", "error", err)
			return err
		}

		authenticator, err := auth.NewAuthenticator(cfg.Service.Auth)
		if err != nil {
			zap.S().Errorw("failed to create authenticator", "error", err)
			return err
		}

		extraction := client.NewExtractionClient(cfg.Extraction.BaseURL, cfg.Extraction.Timeout)
		tokens := client.NewCredentialProvider(s.Credential(), &model.Credential{
			ClientID:     cfg.Extraction.ClientID,
			ClientSecret: cfg.Extraction.ClientSecret,
			TokenURL:     cfg.Extraction.TokenURL,
		}, cfg.Extraction.Timeout)

		reconciler := service.NewReconciler(s, extraction, tokens,
			service.WithWorkers(cfg.Reconcile.Workers),
			service.WithMaxConsecutiveFailures(cfg.Reconcile.MaxConsecutiveFailures),
			service.WithFetchTimeout(cfg.Extraction.Timeout),
			service.WithEventWriter(producer),
		)

		h := handlers.NewServiceHandler(
			service.NewDocumentService(s, reconciler, extraction, authz, cfg.Service.FrontendURL),
			service.NewCredentialService(s, tokens),
			service.NewReportService(),
		)

		apiListener, err := newListener(cfg.Service.Address)
		if err != nil {
			zap.S().Errorw("creating listener", "error", err)
			return err
		}
		metricsListener, err := newListener(cfg.Service.MetricsAddress)
		if err != nil {
			zap.S().Errorw("creating metrics listener", "error", err)
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return apiserver.New(cfg, h, authenticator, apiListener).Run(gctx)
		})
		g.Go(func() error {
			return apiserver.NewMetricServer(cfg.Service.MetricsAddress, metricsListener).Run(gctx)
		})
		g.Go(func() error {
			service.NewSweeper(reconciler, cfg.Reconcile.SweepPrincipal, cfg.Reconcile.SweepInterval).Run(gctx)
			return nil
		})

		if err := g.Wait(); err != nil {
			zap.S().Errorw("Error running server", "error", err)
			return err
		}
		return nil
	},
}

func newEventProducer(cfg *config.Config) (*events.EventProducer, error) {
	opts := []events.ProducerOptions{
		events.WithOutputTopic(cfg.Events.Topic),
		events.WithBufferCapacity(cfg.Events.BufferCapacity),
	}
	if cfg.Events.SinkURL == "" {
		return events.NewEventProducer(&events.StdoutWriter{}, opts...), nil
	}

	w, err := events.NewHTTPWriter(cfg.Events.SinkURL)
	if err != nil {
		zap.S().Errorw("failed to create event writer", "sink", cfg.Events.SinkURL, "error", err)
		return nil, err
	}
	return events.NewEventProducer(w, opts...), nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
