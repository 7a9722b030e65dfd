package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

var (
	levelTag  = "level"
	levelText = "{0} must be one of beginner, intermediate or advanced"
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, levelValidation)
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)
}

func levelValidation(fl validator.FieldLevel) bool {
	lvl := fl.Field().String()
	for _, l := range Levels {
		if l == lvl {
			return true
		}
	}
	return false
}
