package v1alpha1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/handlers/v1alpha1/mappers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// (GET /api/v1/documents)
func (h *ServiceHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	query, err := h.documentQuery(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.MustHaveUser(r.Context())
	page, err := h.documentSrv.ListWithReconciliation(r.Context(), user, mappers.DocumentFilterApi(query), mappers.PaginationApi(query))
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.DocumentPageToApi(page))
}

// (POST /api/v1/documents)
func (h *ServiceHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var form v1alpha1.DocumentCreate
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.MustHaveUser(r.Context())
	doc, err := h.documentSrv.Register(r.Context(), user, mappers.DocumentFormApi(form))
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.DocumentToApi(*doc))
}

// (GET /api/v1/documents/stats)
func (h *ServiceHandler) GetDocumentStats(w http.ResponseWriter, r *http.Request) {
	query, err := h.documentQuery(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.MustHaveUser(r.Context())
	result, err := h.documentSrv.ComputeStats(r.Context(), user, mappers.DocumentFilterApi(query))
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.DashboardToApi(result))
}

// (GET /api/v1/documents/stats/export)
func (h *ServiceHandler) ExportDocumentStats(w http.ResponseWriter, r *http.Request) {
	query, err := h.documentQuery(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.MustHaveUser(r.Context())
	result, err := h.documentSrv.ComputeStats(r.Context(), user, mappers.DocumentFilterApi(query))
	if err != nil {
		handleError(w, r, err)
		return
	}

	report, err := h.reportSrv.GenerateReport(result, mappers.ReportOptionsApi(query))
	if err != nil {
		handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Content)
}

// (GET /api/v1/documents/{id})
func (h *ServiceHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.documentSrv.Get(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.DocumentToApi(*doc))
}

// (DELETE /api/v1/documents/{id})
func (h *ServiceHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.documentSrv.Delete(r.Context(), auth.MustHaveUser(r.Context()), id); err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, v1alpha1.Status{Message: fmt.Sprintf("document %s deleted", id)})
}

// (GET /api/v1/documents/{id}/extraction)
func (h *ServiceHandler) GetDocumentExtraction(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	result, err := h.documentSrv.GetExtraction(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

// (POST /api/v1/documents/{id}/share)
func (h *ServiceHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	link, err := h.documentSrv.Share(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, v1alpha1.ShareLink{ShareLink: link})
}

// (POST /api/v1/documents/{id}/share-team)
func (h *ServiceHandler) ShareDocumentWithTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.documentSrv.TeamShare(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.DocumentToApi(*doc))
}

// (GET /api/v1/shared/{token})
func (h *ServiceHandler) GetSharedDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documentSrv.GetShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.DocumentToApi(*doc))
}

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, v1alpha1.Status{Message: "ok"})
}

func (h *ServiceHandler) documentQuery(r *http.Request) (v1alpha1.DocumentQuery, error) {
	values := r.URL.Query()
	query := v1alpha1.DocumentQuery{
		Scope:    values.Get("scope"),
		Status:   values.Get("status"),
		Category: values.Get("category"),
		Window:   values.Get("window"),
		Format:   values.Get("format"),
	}

	var err error
	if query.Page, err = intParam(values.Get("page")); err != nil {
		return query, fmt.Errorf("invalid page: %w", err)
	}
	if query.Limit, err = intParam(values.Get("limit")); err != nil {
		return query, fmt.Errorf("invalid limit: %w", err)
	}

	if err := h.validator.Struct(query); err != nil {
		return query, err
	}
	return query, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid document id %q", chi.URLParam(r, "id")))
		return uuid.Nil, false
	}
	return id, true
}
