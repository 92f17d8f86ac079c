package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/robert/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that a string has no leading or trailing whitespace.
var NoWhitespace = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_whitespace_type", "must be a string")
	}
	if s != strings.TrimSpace(s) {
		return validation.NewError("validation_whitespace", "must not have leading or trailing whitespace")
	}
	return nil
})
