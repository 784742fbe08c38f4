package evaluation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/qacenter/qacenter/core"
)

var uniqueItems = core.Rule{Tag: "uniqueitems", Text: "item ids must be unique"}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newEvaluationStructValidation, NewEvaluation{})
	core.RegisterRules(validate, translator, uniqueItems)
}

func newEvaluationStructValidation(sl validator.StructLevel) {
	ne, ok := sl.Current().Interface().(NewEvaluation)
	if !ok {
		return
	}
	seen := make(map[string]struct{}, len(ne.Items))
	for _, it := range ne.Items {
		if it.ItemID == "" {
			continue // reported by "required"
		}
		if _, dup := seen[it.ItemID]; dup {
			sl.ReportError(ne.Items, "items", "Items", uniqueItems.Tag, "")
			return
		}
		seen[it.ItemID] = struct{}{}
	}
}
