package assignment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

var (
	statusTag  = "assignment_status"
	statusText = "{0} must be one of draft, published or closed"
)

// InitValidators registers the assignment validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}
