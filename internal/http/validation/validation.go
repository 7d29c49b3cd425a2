// Package validation checks request payloads against their validate tags and
// renders the first failure as a message fit for the client.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var messages = map[string]string{
	"required": "is required",
	"max":      "must be at most %s characters",
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates v, a struct or pointer to one.
func Struct(v any) error {
	return validate.Struct(v)
}

// Message renders the first failed rule as "field message".
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	msg, ok := messages[fe.Tag()]
	if !ok {
		msg = "is invalid"
	}
	return fe.Field() + " " + strings.Replace(msg, "%s", fe.Param(), 1)
}
