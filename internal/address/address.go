package address

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Draft is the address as typed by the customer, before validation.
type Draft struct {
	Street       string `json:"street" validate:"required,max=256"`
	Number       string `json:"number" validate:"required,max=32"`
	Complement   string `json:"complement,omitempty" validate:"max=128"`
	Neighborhood string `json:"neighborhood" validate:"required,max=128"`
	City         string `json:"city" validate:"required,max=128"`
	State        string `json:"state" validate:"required,max=64"`
	ZipCode      string `json:"zip_code" validate:"required,min=8,max=16"`
}

// Address is a validated shipping address. It is never mutated once handed to payment.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
}

// FieldErrors maps the json field name to a human readable message.
type FieldErrors map[string]string

// Err converts the field errors into a VALIDATION_ERROR carrying them as details.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid address").WithDetails(map[string]string(f))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Normalize trims every field.
func (d Draft) Normalize() Draft {
	return Draft{
		Street:       strings.TrimSpace(d.Street),
		Number:       strings.TrimSpace(d.Number),
		Complement:   strings.TrimSpace(d.Complement),
		Neighborhood: strings.TrimSpace(d.Neighborhood),
		City:         strings.TrimSpace(d.City),
		State:        strings.TrimSpace(d.State),
		ZipCode:      strings.TrimSpace(d.ZipCode),
	}
}

// Validate returns the normalized address, or the field errors that block it.
func Validate(draft Draft) (Address, FieldErrors) {
	draft = draft.Normalize()
	if err := validate.Struct(draft); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return Address{}, FieldErrors{"address": err.Error()}
		}
		fields := FieldErrors{}
		for _, fe := range errs {
			fields[fe.Field()] = message(fe)
		}
		return Address{}, fields
	}
	return Address(draft), nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}

// Draft returns the address as an editable draft.
func (a Address) Draft() Draft {
	return Draft(a)
}

// Format renders the single-line "{street}, {number} - {complement}, {neighborhood}" form.
// The " - {complement}" segment is omitted when there is no complement.
func Format(a Address) string {
	line := a.Street + ", " + a.Number
	if a.Complement != "" {
		line += " - " + a.Complement
	}
	return line + ", " + a.Neighborhood
}

// ParseLegacy splits a string produced by Format back into its street parts.
// It is lossy: a comma inside any segment shifts the fields that follow it.
func ParseLegacy(line string) Draft {
	parts := strings.Split(line, ",")
	var d Draft
	d.Street = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		numberAndComplement := strings.SplitN(parts[1], "-", 2)
		d.Number = strings.TrimSpace(numberAndComplement[0])
		if len(numberAndComplement) > 1 {
			d.Complement = strings.TrimSpace(numberAndComplement[1])
		}
	}
	if len(parts) > 2 {
		d.Neighborhood = strings.TrimSpace(parts[2])
	}
	return d
}
