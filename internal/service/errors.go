package service

import (
	"errors"
	"fmt"

	"github.com/docuflow/extraction-tracker/internal/client"
	"github.com/google/uuid"
)

var (
	ErrAuthExpired           = client.ErrAuthExpired
	ErrServiceUnavailable    = client.ErrServiceUnavailable
	ErrCredentialUnavailable = client.ErrCredentialUnavailable
	ErrStoreUnavailable      = errors.New("document store unavailable")
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrDocumentNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id.String(), "document")
}

func NewErrSharedDocumentNotFound() *ErrResourceNotFound {
	return &ErrResourceNotFound{errors.New("shared document not found")}
}

func NewErrExtractionResultNotFound(jobID string) *ErrResourceNotFound {
	return NewErrResourceNotFound(jobID, "extraction result of job")
}

type ErrForbidden struct {
	error
}

func NewErrForbidden(action string, id uuid.UUID) *ErrForbidden {
	return &ErrForbidden{fmt.Errorf("forbidden to %s document %s", action, id)}
}

type ErrInvalidInput struct {
	error
}

func NewErrInvalidInput(message string) *ErrInvalidInput {
	return &ErrInvalidInput{fmt.Errorf("invalid input: %s", message)}
}

type ErrDuplicateJob struct {
	error
}

func NewErrDuplicateJob(jobID string) *ErrDuplicateJob {
	return &ErrDuplicateJob{fmt.Errorf("a document is already registered for job %s", jobID)}
}
