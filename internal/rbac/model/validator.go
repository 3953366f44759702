package model

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		// report json/query names so field keys match what the client sent
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// FormatValidationError converts validator errors to ErrorDetail. Every
// failing field is listed in Fields; Message carries the first one.
func FormatValidationError(err error) *ErrorDetail {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		detail := &ErrorDetail{Code: "bad_request"}
		for _, e := range validationErrors {
			detail.Fields = append(detail.Fields, ProcessMessage{
				Key:  e.Field(),
				Code: "validate." + e.Tag(),
			})
		}
		e := validationErrors[0]
		detail.Message = "Field validation for '" + e.Field() + "' failed on the '" + e.Tag() + "' tag"
		return detail
	}

	return &ErrorDetail{
		Code:    "bad_request",
		Message: err.Error(),
	}
}
