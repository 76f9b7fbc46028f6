package quotes

import (
	"reflect"
	"strings"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// ContactInfo is the shopper's contact block of a quote request.
type ContactInfo struct {
	FirstName  string                  `json:"nombre" validate:"required,max=100"`
	LastName   string                  `json:"apellidos" validate:"required,max=100"`
	Email      string                  `json:"email" validate:"required,email,max=254"`
	Phone      string                  `json:"telefono" validate:"required,max=40"`
	Preference enums.ContactPreference `json:"preferenciaContacto" validate:"required"`
}

func (c ContactInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// NormalizeContact trims every field, canonicalizes the contact preference
// and validates the result.
func NormalizeContact(c ContactInfo) (ContactInfo, error) {
	out := ContactInfo{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Email:     strings.TrimSpace(c.Email),
		Phone:     strings.TrimSpace(c.Phone),
	}
	details := map[string]string{}
	if raw := strings.TrimSpace(string(c.Preference)); raw != "" {
		pref, err := enums.ParseContactPreference(raw)
		if err != nil {
			details["preferenciaContacto"] = "must be whatsapp or email"
		}
		out.Preference = pref
	}

	if err := validate.Struct(out); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				if _, seen := details[fe.Field()]; !seen {
					details[fe.Field()] = fieldMessage(fe)
				}
			}
		} else {
			return ContactInfo{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contact")
		}
	}
	if len(details) > 0 {
		return ContactInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact").WithDetails(details)
	}
	return out, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
