package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"accession/internal/services"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestError collects every failed rule of a request. It matches
// services.ErrValidation.
type RequestError struct {
	Fields []FieldError
}

func (e *RequestError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e.Fields))
	for i, field := range e.Fields {
		messages[i] = field.Message
	}
	return strings.Join(messages, "; ")
}

func (e *RequestError) Is(target error) bool {
	return target == services.ErrValidation
}

// Validator returns the shared validator. Field names in errors use the json
// tag so messages match the wire names callers send.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(fmt.Sprintf("register notblank validator: %v", err))
		}
	})
	return validate
}

// Struct validates s and returns a *RequestError on failure.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Fields: []FieldError{{Field: "request", Tag: "invalid", Message: err.Error()}}}
	}
	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestError{Fields: out}
}

var plainMessages = map[string]string{
	"required": "%s is required",
	"notblank": "%s must not be blank",
	"url":      "%s must be a valid URL",
}

var paramMessages = map[string]string{
	"required_without": "%s is required when %s is absent",
	"oneof":            "%s must be one of: %s",
	"gte":              "%s must be greater than or equal to %s",
	"lte":              "%s must be less than or equal to %s",
	"min":              "%s must be at least %s",
	"max":              "%s must be at most %s",
}

func translate(fe validator.FieldError) string {
	if template, ok := plainMessages[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field())
	}
	if template, ok := paramMessages[fe.Tag()]; ok {
		param := fe.Param()
		if fe.Tag() == "required_without" {
			param = strings.ToLower(param)
		}
		return fmt.Sprintf(template, fe.Field(), param)
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
