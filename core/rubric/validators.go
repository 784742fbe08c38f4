package rubric

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/qacenter/qacenter/core"
)

var rules = []core.Rule{
	{
		Tag:  "channel",
		Text: "channel must be one of: call, chat",
		Func: func(fl validator.FieldLevel) bool { return Channel(fl.Field().String()).IsValid() },
	},
	{
		Tag:  "grade",
		Text: "grade must be one of: yes, partial, no",
		Func: func(fl validator.FieldLevel) bool { return Grade(fl.Field().String()).IsValid() },
	},
}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterRules(validate, translator, rules...)
}
