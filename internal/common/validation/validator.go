package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jgirmay/alif24/internal/common/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	register(validate)

	// gin validates request DTOs with its own instance; teach it the same tags.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("password", strongPassword)
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks data against its `validate` tags.
func Validate(data interface{}) []ValidationError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	return toValidationErrors(err)
}

// Check is Validate folded into an AppError.
func Check(data interface{}) error {
	if errs := Validate(data); len(errs) > 0 {
		return errors.Validation("Validation failed", errs)
	}
	return nil
}

// FromBindError turns a gin binding failure into an AppError with per-field details.
func FromBindError(err error) error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		return errors.Validation("Validation failed", toValidationErrors(verrs))
	}
	return errors.BadRequest("invalid request body: " + err.Error())
}

func toValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return []ValidationError{{Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "password":
		return "must contain at least one uppercase letter, one lowercase letter, and one number"
	}
	return fmt.Sprintf("field must satisfy %s constraint", fe.Tag())
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func strongPassword(fl validator.FieldLevel) bool {
	var upper, lower, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func ValidateIntRange(value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("value must be between %d and %d", min, max)
	}
	return nil
}

func ValidateFloatRange(value float64, min, max float64) error {
	if value < min || value > max {
		return fmt.Errorf("value must be between %g and %g", min, max)
	}
	return nil
}
