package validator

import (
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/go-playground/validator/v10"
)

func jobIDValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return model.ValidExternalJobID(val)
}

func documentStateValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if val == "" {
		return true
	}

	_, ok = model.ParseDocumentState(val)
	return ok
}

func timeWindowValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	_, ok = service.ParseTimeWindow(val)
	return ok
}
