// Package checkout validates the customer form, assembles the order from a
// cart snapshot and hands it off to WhatsApp.
package checkout

import (
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type DeliveryMode string

const (
	ModePickup   DeliveryMode = "pickup"
	ModeDelivery DeliveryMode = "delivery"
)

const (
	minAddressLen = 10
	maxNotesLen   = 500
)

// Form is what the customer types on the checkout screen.
type Form struct {
	Name    string       `json:"name" validate:"required,personname"`
	Phone   string       `json:"phone" validate:"required,mobile"`
	Mode    DeliveryMode `json:"deliveryType" validate:"required,oneof=pickup delivery"`
	Address string       `json:"address"`
	Notes   string       `json:"notes" validate:"max=500"`
}

func (f Form) normalized() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// FieldErrors maps a json field name to a message for the customer.
type FieldErrors map[string]string

var (
	namePattern  = regexp.MustCompile(`^[\p{Latin} ]+$`)
	phonePattern = regexp.MustCompile(`^3[0-9]{9}$`)
)

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
	v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		n := utf8.RuneCountInString(s)
		return n >= 2 && n <= 100 && namePattern.MatchString(s)
	})
	v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(Form)
		if f.Mode != ModeDelivery {
			return
		}
		switch {
		case f.Address == "":
			sl.ReportError(f.Address, "address", "Address", "required", "")
		case utf8.RuneCountInString(f.Address) < minAddressLen:
			sl.ReportError(f.Address, "address", "Address", "min", "10")
		}
	}, Form{})
	return v
}

// Validate checks the whole form. A nil result means the form is valid.
func Validate(f Form) FieldErrors {
	err := validate.Struct(f.normalized())
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"form": "Formulario inválido."}
	}
	out := FieldErrors{}
	for _, fe := range errs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

// ValidateField returns the message for one field, or "" when it is valid.
// It is used when a field loses focus.
func ValidateField(f Form, field string) string {
	return Validate(f)[field]
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		if fe.Tag() == "required" {
			return "Ingresa tu nombre."
		}
		return "El nombre debe tener entre 2 y 100 letras, sin números ni símbolos."
	case "phone":
		if fe.Tag() == "required" {
			return "Ingresa tu número de celular."
		}
		return "El celular debe tener 10 dígitos y empezar por 3."
	case "deliveryType":
		return "Elige recoger en tienda o entrega a domicilio."
	case "address":
		if fe.Tag() == "required" {
			return "Ingresa la dirección de entrega."
		}
		return "La dirección debe tener al menos 10 caracteres."
	case "notes":
		return "Las notas no pueden superar 500 caracteres."
	}
	return "Valor inválido."
}
