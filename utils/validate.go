package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs the `validate` struct tags and returns the first error.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
