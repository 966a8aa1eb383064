package mappers

import (
	"github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/docuflow/extraction-tracker/internal/store/model"
)

func DocumentFormApi(resource v1alpha1.DocumentCreate) service.RegisterForm {
	form := service.RegisterForm{
		Name:          resource.Name,
		ExternalJobID: resource.ExternalJobId,
	}
	if resource.Size != nil {
		form.Size = *resource.Size
	}
	if resource.ContentType != nil {
		form.ContentType = *resource.ContentType
	}
	return form
}

func CredentialFormApi(resource v1alpha1.CredentialUpdate) service.CredentialForm {
	form := service.CredentialForm{
		ClientID:     resource.ClientId,
		ClientSecret: resource.ClientSecret,
	}
	if resource.TokenUrl != nil {
		form.TokenURL = *resource.TokenUrl
	}
	return form
}

// DocumentFilterApi expects a validated query.
func DocumentFilterApi(query v1alpha1.DocumentQuery) *service.DocumentFilter {
	filter := service.NewDocumentFilter()

	if query.Scope != "" {
		filter = filter.WithScope(service.Scope(query.Scope))
	}
	if state, ok := model.ParseDocumentState(query.Status); ok {
		filter = filter.WithState(state)
	}
	if query.Category != "" {
		filter = filter.WithCategory(query.Category)
	}
	if window, ok := service.ParseTimeWindow(query.Window); ok {
		filter = filter.WithWindow(window)
	}

	return filter
}

func PaginationApi(query v1alpha1.DocumentQuery) service.Pagination {
	return service.Pagination{Page: query.Page, Limit: query.Limit}
}

func ReportOptionsApi(query v1alpha1.DocumentQuery) service.ReportOptions {
	options := service.ReportOptions{
		Format: service.ReportFormatXLSX,
		Scope:  string(service.ScopeMine),
		Window: string(service.WindowAll),
	}
	if query.Format != "" {
		options.Format = service.ReportFormat(query.Format)
	}
	if query.Scope != "" {
		options.Scope = query.Scope
	}
	if query.Window != "" {
		options.Window = query.Window
	}
	return options
}
