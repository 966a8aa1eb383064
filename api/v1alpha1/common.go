package v1alpha1

import "strings"

func StringToDocumentStatus(s string) (DocumentStatus, bool) {
	switch DocumentStatus(strings.ToLower(s)) {
	case DocumentStatusUploading:
		return DocumentStatusUploading, true
	case DocumentStatusPending:
		return DocumentStatusPending, true
	case DocumentStatusDone:
		return DocumentStatusDone, true
	case DocumentStatusFailed:
		return DocumentStatusFailed, true
	default:
		return "", false
	}
}
