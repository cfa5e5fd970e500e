// Package checkout validates the recipient form before an order is
// constructed from the cart. The validator performs no I/O and has no side
// effects; on failure it returns field-keyed messages for the form to
// re-present.
package checkout

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// Form is the checkout input. Notes are optional and unconstrained.
type Form struct {
	Name    string `json:"name" validate:"required,min=2"`
	Address string `json:"address" validate:"required,min=5"`
	Phone   string `json:"phone" validate:"required,phone"`
	Notes   string `json:"notes"`
}

// At least seven digits, optional leading +, spaces and dashes allowed.
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 -]{5,}[0-9]$`)

// Validator wraps a configured go-playground validator instance. Safe for
// concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the phone rule and the json-tag field naming.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate checks the form and returns field-keyed, human-readable messages.
// An empty map means the form is valid.
func (v *Validator) Validate(form Form) map[string]string {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	fieldErrors := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fieldErrors["form"] = "the form could not be validated"
		return fieldErrors
	}

	for _, fe := range verrs {
		fieldErrors[fe.Field()] = message(fe)
	}
	return fieldErrors
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		return "enter the recipient's name (at least 2 characters)"
	case "address":
		return "enter a delivery address (at least 5 characters)"
	case "phone":
		return "enter a valid phone number"
	default:
		return "invalid value"
	}
}
