package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every domain type. Initialized in init() with the
// custom "entityid" rule.
var validate *validator.Validate

var entityIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("entityid", validateEntityID); err != nil {
		panic(fmt.Sprintf("model: register entityid validation: %v", err))
	}
	// Report json field names so errors match what API clients sent.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

func validateEntityID(fl validator.FieldLevel) bool {
	return entityIDPattern.MatchString(fl.Field().String())
}

// ValidationError reports a domain object that was rejected before reaching storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// check runs the struct tags of s and converts the first failure into a *ValidationError.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Reason: describe(fe)}
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt", "gte", "lte":
		return fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())
	case "entityid":
		return "may only contain letters, digits, '.', '_', ':' and '-'"
	}
	return "failed " + fe.Tag() + " check"
}
