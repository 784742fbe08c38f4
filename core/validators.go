package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Rule is a custom validation tag with its English message.
type Rule struct {
	Tag  string
	Text string
	Func validator.Func
}

var (
	alphaNumUnderRegex = regexp.MustCompile(`^\w+$`)

	globalRules = []Rule{
		{
			Tag:  "alphanum_",
			Text: "only alphanumeric characters and underscores are allowed",
			Func: func(fl validator.FieldLevel) bool { return alphaNumUnderRegex.MatchString(fl.Field().String()) },
		},
	}

	requiredText = "this field is required"
)

// InitValidators sets up field naming, the default English messages and the global rules.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// errors are keyed by JSON names, not Go names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterRules(validate, translator, globalRules...)
	for _, tag := range []string{"required", "required_with"} {
		RegisterCustomTranslation(validate, translator, tag, requiredText, true)
	}
}

// RegisterRules registers each rule's validation func (when set) and its message.
func RegisterRules(validate *validator.Validate, translator ut.Translator, rules ...Rule) {
	for _, r := range rules {
		if r.Func != nil {
			_ = validate.RegisterValidation(r.Tag, r.Func)
		}
		RegisterCustomTranslation(validate, translator, r.Tag, r.Text)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateErrors maps each failing field to its translated message.
// Keys are namespaced without the root struct, eg: "items[1].grade".
func TranslateErrors(errs validator.ValidationErrors, translator ut.Translator) map[string]string {
	fldErrs := make(map[string]string, len(errs))
	for _, vErr := range errs {
		key := vErr.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		fldErrs[key] = vErr.Translate(translator)
	}
	return fldErrs
}

// CleanString trims `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
