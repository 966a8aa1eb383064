package v1alpha1

import (
	"github.com/docuflow/extraction-tracker/internal/handlers/validator"
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/go-chi/chi/v5"
)

type ServiceHandler struct {
	documentSrv   *service.DocumentService
	credentialSrv *service.CredentialService
	reportSrv     *service.ReportService
	validator     *validator.Validator
}

func NewServiceHandler(documentService *service.DocumentService, credentialService *service.CredentialService, reportService *service.ReportService) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewDocumentValidationRules()...)

	return &ServiceHandler{
		documentSrv:   documentService,
		credentialSrv: credentialService,
		reportSrv:     reportService,
		validator:     v,
	}
}

// RegisterRoutes mounts the endpoints that require an authenticated user.
func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents", h.ListDocuments)
		r.Post("/documents", h.CreateDocument)
		r.Get("/documents/stats", h.GetDocumentStats)
		r.Get("/documents/stats/export", h.ExportDocumentStats)
		r.Get("/documents/{id}", h.GetDocument)
		r.Delete("/documents/{id}", h.DeleteDocument)
		r.Get("/documents/{id}/extraction", h.GetDocumentExtraction)
		r.Post("/documents/{id}/share", h.ShareDocument)
		r.Post("/documents/{id}/share-team", h.ShareDocumentWithTeam)
		r.Put("/credentials", h.PutCredential)
	})
}

// RegisterPublicRoutes mounts the endpoints served without authentication.
func (h *ServiceHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/v1/shared/{token}", h.GetSharedDocument)
	r.Get("/health", h.Health)
}
