package v1alpha1

import (
	"net/http"

	"github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/handlers/v1alpha1/mappers"
	"github.com/go-chi/render"
)

// (PUT /api/v1/credentials)
func (h *ServiceHandler) PutCredential(w http.ResponseWriter, r *http.Request) {
	var form v1alpha1.CredentialUpdate
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.credentialSrv.Put(r.Context(), auth.MustHaveUser(r.Context()), mappers.CredentialFormApi(form)); err != nil {
		handleError(w, r, err)
		return
	}

	render.JSON(w, r, v1alpha1.Status{Message: "credential stored"})
}
