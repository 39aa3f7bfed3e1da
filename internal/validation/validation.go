// Package validation centralises request-payload validation behind a
// single go-playground/validator instance with struct tags on the job
// request types.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/shiftcycle/shiftopt/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Struct validates v against its `validate` struct tags, returning a
// single AppError with one field per failed rule.
func Struct(v interface{}) *apperrors.AppError {
	if err := validate.Struct(v); err != nil {
		ve := &apperrors.ValidationErrors{}
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			ve.Add("request", err.Error())
			return ve.ToAppError()
		}
		for _, fe := range err.(validator.ValidationErrors) {
			ve.Add(fieldName(fe), describe(fe))
		}
		return ve.ToAppError()
	}
	return nil
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
