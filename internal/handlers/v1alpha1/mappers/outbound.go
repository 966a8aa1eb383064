package mappers

import (
	"strings"

	"github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/docuflow/extraction-tracker/internal/store/model"
)

func DocumentToApi(doc model.Document) v1alpha1.Document {
	return v1alpha1.Document{
		Id:                 doc.ID,
		Name:               doc.Name,
		Size:               doc.Size,
		ContentType:        doc.ContentType,
		ExternalJobId:      doc.ExternalJobID,
		Status:             v1alpha1.DocumentStatus(strings.ToLower(doc.State.String())),
		Category:           doc.Category,
		ClientId:           doc.ClientID,
		OwnerId:            doc.OwnerID,
		SubmittedAt:        doc.SubmittedAt,
		ExternalStartedAt:  doc.ExternalStartedAt,
		ExternalFinishedAt: doc.ExternalFinishedAt,
		IsShared:           doc.IsShared,
		IsTeamShared:       doc.IsTeamShared,
		TeamSharedBy:       doc.TeamSharedBy,
	}
}

func DocumentPageToApi(page *service.DocumentPage) v1alpha1.DocumentList {
	documents := make([]v1alpha1.Document, 0, len(page.Documents))
	for _, doc := range page.Documents {
		documents = append(documents, DocumentToApi(doc))
	}

	return v1alpha1.DocumentList{
		Documents:   documents,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.Page,
		Stale:       page.Stale,
	}
}

func DashboardToApi(result *service.DashboardResult) v1alpha1.DashboardStats {
	byCategory := make(map[string]v1alpha1.CategoryStats, len(result.Stats.ByCategory))
	for name, c := range result.Stats.ByCategory {
		byCategory[name] = v1alpha1.CategoryStats{
			Total:                c.Total,
			Done:                 c.Done,
			SuccessRate:          c.SuccessRate,
			AvgTurnaroundSeconds: c.AvgTurnaroundSeconds,
		}
	}

	return v1alpha1.DashboardStats{
		Total:                result.Stats.Total,
		Completed:            result.Stats.Completed,
		InProgress:           result.Stats.InProgress,
		Error:                result.Stats.Error,
		SuccessRate:          result.Stats.SuccessRate,
		AvgTurnaroundSeconds: result.Stats.AvgTurnaroundSeconds,
		ByCategory:           byCategory,
		Stale:                result.Stale,
	}
}
