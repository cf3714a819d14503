package models

import (
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var quantityPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// NewValidator returns a validator with the "quantity" and "unit" tags
// registered. Quantities are positive decimal strings.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("quantity", validateQuantity)
	_ = v.RegisterValidation("unit", validateUnit)
	return v
}

func validateUnit(fl validator.FieldLevel) bool {
	return ValidUnit(fl.Field().String())
}

func validateQuantity(fl validator.FieldLevel) bool {
	return ValidQuantity(fl.Field().String())
}

func ValidQuantity(s string) bool {
	if len(s) > 20 || !quantityPattern.MatchString(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}
