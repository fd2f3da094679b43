package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with JSON field naming
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their json name
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		default:
			return name
		}
	})
	return &Validator{validate: v}
}

// RegisterStringRule adds a tag that checks string (or *string) fields with fn
func (v *Validator) RegisterStringRule(tag string, fn func(string) bool) error {
	return v.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		field := fl.Field()
		return field.Kind() == reflect.String && fn(field.String())
	})
}

// Struct validates s and returns validator.ValidationErrors on failure
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Engine exposes the underlying validator, e.g. for gin's binding.Validator
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// ValidationFields flattens validation errors into field path -> failed rule.
// Paths drop the root struct name, so nested fields read "items[0].quantity".
// It returns nil when err carries no field errors.
func ValidationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		if _, seen := fields[path]; !seen {
			fields[path] = fe.Tag()
		}
	}
	return fields
}
