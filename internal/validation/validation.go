// Package validation checks form input locally so that invalid submissions
// never reach the network.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// part excludes @ and every character a browser treats as whitespace: the
// ASCII set, vertical tab, the Unicode separators and the BOM
const part = `[^\s\v\p{Z}\x{FEFF}@]+`

// emailPattern is deliberately loose: something@something.tld with no whitespace
var emailPattern = regexp.MustCompile(`^` + part + `@` + part + `\.` + part + `$`)

// Error is a field-scoped validation failure
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// messages override the generic text, keyed by "<Form>.<field>.<tag>" or "<field>.<tag>"
var messages = map[string]string{
	"email.webemail":          "Please enter a valid email address",
	"password.min":            "Password must be at least 8 characters",
	"ResetForm.password.min":  "Password must be at least 8 characters long",
	"confirmPassword.eqfield": "Passwords do not match",
	"username.required":       "Name is required",
	"otp.required":            "Please enter the OTP",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("webemail", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})

	return v
}

// IsEmail reports whether s has the shape of an email address
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Struct validates a form and returns the first failing field as *Error
func Struct(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fmt.Errorf("validation failed: %w", err)
	}

	fe := ve[0]
	return &Error{Field: fe.Field(), Message: formatValidationError(fe)}
}

func formatValidationError(fe validator.FieldError) string {
	form, _, _ := strings.Cut(fe.Namespace(), ".")
	if msg, ok := messages[form+"."+fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must have a minimum of %s characters", fe.Param())
	case "eqfield":
		return fmt.Sprintf("Must match %s", fe.Param())
	default:
		return fmt.Sprintf("Failed validation: %s", fe.Tag())
	}
}
