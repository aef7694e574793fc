package utils

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Custom validations
	v.RegisterValidation("role", validateRole)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func validateRole(fl validator.FieldLevel) bool {
	supportedRoles := map[string]bool{
		"organizer": true,
		"attendee":  true,
	}
	return supportedRoles[fl.Field().String()]
}
