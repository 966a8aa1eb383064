package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	api "github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/config"
	handlers "github.com/docuflow/extraction-tracker/internal/handlers/v1alpha1"
	"github.com/docuflow/extraction-tracker/pkg/metrics"
	"github.com/docuflow/extraction-tracker/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg           *config.Config
	handler       *handlers.ServiceHandler
	authenticator auth.Authenticator
	listener      net.Listener
}

// New returns a new instance of the tracker api server.
func New(
	cfg *config.Config,
	handler *handlers.ServiceHandler,
	authenticator auth.Authenticator,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:           cfg,
		handler:       handler,
		authenticator: authenticator,
		listener:      listener,
	}
}

func oapiErrorHandler(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = fmt.Fprintf(w, `{"message":%q}`, fmt.Sprintf("API Error: %s", message))
}

// Router builds the api routes. Shared documents and the health probe skip authentication.
func (s *Server) Router() (http.Handler, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load swagger spec: %w", err)
	}
	// Skip server name validation
	swagger.Servers = nil
	validator := oapimiddleware.OapiRequestValidatorWithOptions(swagger, &oapimiddleware.Options{
		ErrorHandler: oapiErrorHandler,
	})

	metricMiddleware := metrics.NewMiddleware("api_server")
	if err := metricMiddleware.RegisterDefault(); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}

	router := chi.NewRouter()
	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.CorsOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		render.SetContentType(render.ContentTypeJSON),
	)

	router.Group(func(r chi.Router) {
		r.Use(
			middleware.RequestID,
			middleware.Logger(),
			chiMiddleware.Recoverer,
			validator,
		)
		s.handler.RegisterPublicRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(
			s.authenticator.Authenticator,
			middleware.RequestID,
			middleware.Logger(),
			chiMiddleware.Recoverer,
			validator,
		)
		s.handler.RegisterRoutes(r)
	})

	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	router, err := s.Router()
	if err != nil {
		return err
	}
	return serve(ctx, "api_server", &http.Server{Addr: s.cfg.Service.Address, Handler: router}, s.listener)
}

// serve blocks until srv stops. Cancelling ctx shuts srv down gracefully.
func serve(ctx context.Context, name string, srv *http.Server, listener net.Listener) error {
	logger := zap.S().Named(name)

	go func() {
		<-ctx.Done()
		logger.Infof("shutdown signal received: %s", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(shutdownCtx)
		logger.Info("server terminated")
	}()

	logger.Infof("listening on %s", listener.Addr().String())
	err := srv.Serve(listener)
	if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
