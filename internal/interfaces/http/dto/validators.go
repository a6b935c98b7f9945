package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// RegisterValidators installs custom binding rules on gin's validator.
// Call once at startup, before the router handles traffic.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("kephone", validateKenyanPhone)
	}
}

// validateKenyanPhone accepts any input the Phone value object can normalize
func validateKenyanPhone(fl validator.FieldLevel) bool {
	_, err := valueobject.NewPhone(fl.Field().String())
	return err == nil
}
