package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates request DTOs against their `validate` tags and returns a
// caller-presentable error for the first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
		f := fields[0]
		return fmt.Errorf("field %s failed on %s", f.Field(), f.Tag())
	}
	return err
}
