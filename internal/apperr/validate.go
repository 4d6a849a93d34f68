package apperr

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Check valide v selon ses tags `validate` et traduit la première
// violation en erreur Validation nommant le champ (préfixé par prefix).
func Check(prefix string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return Validation(prefix, "invalid %s", prefix)
	}
	fe := fieldErrs[0]
	field := fe.Field()
	if prefix != "" {
		field = prefix + "." + field
	}
	return Validation(field, "%s %s", field, describe(fe))
}

// CheckVar valide une valeur isolée.
func CheckVar(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return Validation(field, "%s %s", field, describe(fieldErrs[0]))
	}
	return Validation(field, "%s is invalid", field)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return "must be " + fe.Param() + " characters long"
	case "numeric":
		return "must contain only digits"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "hexcolor":
		return "must be a #RRGGBB color"
	default:
		return "is invalid"
	}
}
