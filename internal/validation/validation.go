// Package validation configures the validator shared by gin binding and the
// broker handlers, and turns its errors into client-facing details.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their json names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONTagName)
	return v
}

// JSONTagName names a field after its json tag.
func JSONTagName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return lowerCamel(field.Name)
	default:
		return name
	}
}

// Describe lists one line per failed field. It returns nil when err is not
// a validator error.
func Describe(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		field := lowerCamel(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "numeric":
			details = append(details, fmt.Sprintf("%s must contain digits only", field))
		case "email":
			details = append(details, fmt.Sprintf("%s must be a valid email", field))
		case "min", "gte":
			details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", field))
		}
	}
	return details
}

// Message joins Describe into one sentence, falling back to err itself.
func Message(err error) string {
	if details := Describe(err); len(details) > 0 {
		return strings.Join(details, "; ")
	}
	return err.Error()
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
