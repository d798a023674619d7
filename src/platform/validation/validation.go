// Package validation exposes a single process-wide go-playground/validator
// instance with the project's custom tags registered once at init.
package validation

import (
	"chat/src/util"

	"github.com/go-playground/validator/v10"
)

// Instance is shared by platform/config, clients/kafka, and every other
// package that validates a struct via tags instead of hand-rolled checks.
var Instance = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	mustRegister(v, "unique_values", util.ValidateUnique)
	mustRegister(v, "enum_values", util.ValidateEnum)
	mustRegister(v, "not_blank", util.ValidateNotBlank)
	mustRegister(v, "host_port_list", util.ValidateHostPortList)

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("validation: failed to register tag " + tag + ": " + err.Error())
	}
}
