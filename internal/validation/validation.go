// Package validation wraps go-playground/validator for request structs.
package validation

import (
	"fmt"
	"strings"

	"arbirupee/internal/services/chain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Checksummed EVM address.
	_ = v.RegisterValidation("evm_address", func(fl validator.FieldLevel) bool {
		return chain.IsValidAddress(fl.Field().String())
	})

	return v
}

// Struct validates a request struct and flattens the first failure into a
// readable message.
func Struct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); !ok || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "evm_address":
		return fmt.Errorf("%s must be a valid wallet address", field)
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
